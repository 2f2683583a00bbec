package core

import (
	"context"
	"fmt"
)

// Result — одно вхождение задачи в конкретный flow.
//
// Задача может фигурировать во многих Result (по одному на место
// вызова), но в множество узлов flow попадает не более одного раза.
// Result не несёт состояния кроме пары (задача, flow).
type Result struct {
	// Task — привязанная задача.
	Task Spec

	// Flow — flow-владелец вхождения.
	Flow Flow
}

// NewResult создаёт Result, гарантируя регистрацию задачи во flow.
// nil flow заменяется новым пустым графом.
func NewResult(s Spec, f Flow) *Result {
	if f == nil {
		f = NewGraph()
	}
	f.AddTask(s)
	return &Result{Task: s, Flow: f}
}

// Index превращает доступ по индексу к результату задачи в ребро графа.
//
// Создаётся производная задача GetItem с детерминированным именем
// "родитель[индекс]", подключается downstream от этого Result обычным
// путём вызова и возвращается её Result.
func (r *Result) Index(index any) (*Result, error) {
	item := NewGetItem(index, fmt.Sprintf("%s[%v]", r.Task.Describe().Name, index))
	return Call(nil, item, CallArgs{
		Kwargs: map[string]any{"source": r},
		Flow:   r.Flow,
	})
}

// SetDependencies добавляет рёбра к уже созданному узлу.
//
// Запрос уходит во flow-владельца с его собственным режимом валидации
// по умолчанию (включена).
func (r *Result) SetDependencies(upstream, downstream []Spec, keywordResults map[string]any) error {
	_, err := r.Flow.SetDependencies(Dependencies{
		Task:           r.Task,
		Upstream:       upstream,
		Downstream:     downstream,
		KeywordResults: keywordResults,
	})
	return err
}

// GetItem — производная задача «извлечь элемент из результата
// upstream задачи». Подписочный доступ к результату становится
// узлом графа, а не обращением во время выполнения.
type GetItem struct {
	*Task
	index any
}

// NewGetItem создаёт задачу извлечения элемента index.
func NewGetItem(index any, name string) *GetItem {
	return &GetItem{
		Task: newTask(nil, Options{
			Name:     name,
			TypeName: "GetItem",
			Params:   Params("source"),
		}),
		index: index,
	}
}

// Index возвращает извлекаемый индекс.
func (g *GetItem) Index() any {
	return g.index
}

// Describe расширяет базовую запись извлекаемым индексом.
func (g *GetItem) Describe() Info {
	info := g.Task.Describe()
	info.Index = g.index
	return info
}

// Evaluate извлекает элемент из значения аргумента source.
func (g *GetItem) Evaluate(ctx context.Context, in Inputs) Outcome {
	source, ok := in.Args["source"]
	if !ok {
		return Failf("task %q: no source value", g.Name())
	}

	switch container := source.(type) {
	case map[string]any:
		key, ok := g.index.(string)
		if !ok {
			return Failf("task %q: cannot index map with %T", g.Name(), g.index)
		}
		value, ok := container[key]
		if !ok {
			return Failf("task %q: key %q not found", g.Name(), key)
		}
		return Success(value)

	case []any:
		i, ok := toInt(g.index)
		if !ok {
			return Failf("task %q: cannot index slice with %T", g.Name(), g.index)
		}
		if i < 0 || i >= len(container) {
			return Failf("task %q: index %d out of range [0, %d)", g.Name(), i, len(container))
		}
		return Success(container[i])

	default:
		return Failf("task %q: cannot index value of type %T", g.Name(), source)
	}
}

// toInt нормализует целочисленный индекс.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
