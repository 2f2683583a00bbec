package core

import (
	"fmt"
	"time"
)

// Registry — функции работы задач по имени типа.
//
// Документ хранит только описательные записи; сторона, восстанавливающая
// граф, должна знать код задач и регистрирует его здесь. Служебные типы
// Parameter и GetItem восстанавливаются без реестра.
type Registry map[string]RunFunc

// Build восстанавливает граф из документа.
//
// Задачи создаются в порядке их позиций; рёбра и константы привязываются
// по тем же позициям. Восстановленный граф валидируется как при обычном
// построении.
func (d Document) Build(reg Registry) (*Graph, error) {
	g := NewGraph()

	specs := make([]Spec, len(d.Tasks))
	for i, info := range d.Tasks {
		s, err := rehydrate(info, reg)
		if err != nil {
			return nil, fmt.Errorf("task %d (%s): %w", i, info.Name, err)
		}
		specs[i] = s
		g.AddTask(s)
	}

	for _, e := range d.Edges {
		if !validPosition(e.Upstream, specs) || !validPosition(e.Downstream, specs) {
			return nil, fmt.Errorf("edge %d->%d: %w", e.Upstream, e.Downstream, ErrBadTaskPosition)
		}
		g.addEdge(Edge{
			Upstream:   specs[e.Upstream],
			Downstream: specs[e.Downstream],
			Key:        e.Key,
		})
	}

	for _, c := range d.Constants {
		if !validPosition(c.Task, specs) {
			return nil, fmt.Errorf("constant %q of task %d: %w", c.Key, c.Task, ErrBadTaskPosition)
		}
		g.setConstant(specs[c.Task], c.Key, c.Value)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// rehydrate создаёт задачу из описательной записи.
func rehydrate(info Info, reg Registry) (Spec, error) {
	switch info.Type {
	case "Parameter":
		opts := ParameterOptions{
			Description: info.Description,
			Default:     info.Default,
		}
		if info.Required != nil {
			opts.Optional = !*info.Required
		}
		return NewParameter(nil, info.Name, opts), nil

	case "GetItem":
		return NewGetItem(info.Index, info.Name), nil

	default:
		run, ok := reg[info.Type]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, info.Type)
		}

		// Неизвестное имя триггера заменяется триггером по умолчанию:
		// сохранённый документ не должен становиться невыполнимым.
		trigger, _ := TriggerByName(info.Trigger)

		return newTask(nil, Options{
			Name:          info.Name,
			Slug:          info.Slug,
			Description:   info.Description,
			MaxRetries:    info.MaxRetries,
			RetryDelay:    time.Duration(info.RetryDelayMs) * time.Millisecond,
			Timeout:       time.Duration(info.TimeoutMs) * time.Millisecond,
			Trigger:       trigger,
			PropagateSkip: info.PropagateSkip,
			Environment:   info.Environment,
			Checkpoint:    info.Checkpoint,
			TypeName:      info.Type,
			Run:           run,
		}), nil
	}
}

func validPosition(i int, specs []Spec) bool {
	return i >= 0 && i < len(specs)
}
