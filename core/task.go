package core

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DefaultRetryDelay — задержка между попытками по умолчанию.
const DefaultRetryDelay = time.Minute

// Spec — интерфейс варианта задачи.
//
// Базовый Task, Parameter, GetItem и пользовательские варианты
// реализуют его; переопределения полей через встраивание не требуется.
type Spec interface {
	// Describe возвращает описательную запись задачи.
	// Метод чистый: без побочных эффектов.
	Describe() Info

	// DeclaredParams возвращает объявленный список параметров.
	DeclaredParams() ParamList

	// Evaluate выполняет одну попытку вычисления задачи.
	// Все ожидаемые исходы выражаются через Outcome, а не panic.
	Evaluate(ctx context.Context, in Inputs) Outcome
}

// Info — описательная запись задачи для внешней сериализации.
//
// Длительности хранятся в миллисекундах; TimeoutMs = 0 означает
// отсутствие таймаута.
type Info struct {
	Name          string `json:"name"`
	Slug          string `json:"slug,omitempty"`
	Type          string `json:"type"`
	Description   string `json:"description,omitempty"`
	MaxRetries    int    `json:"max_retries"`
	RetryDelayMs  int64  `json:"retry_delay_ms"`
	TimeoutMs     int64  `json:"timeout_ms,omitempty"`
	Trigger       string `json:"trigger"`
	PropagateSkip bool   `json:"propagate_skip"`
	Environment   string `json:"environment,omitempty"`
	Checkpoint    bool   `json:"checkpoint"`

	// Поля Parameter: заполняются только для задач-параметров.
	Required *bool `json:"required,omitempty"`
	Default  any   `json:"default,omitempty"`

	// Index — извлекаемый индекс; заполняется только для GetItem.
	Index any `json:"index,omitempty"`
}

// Options — метаданные конструируемой задачи.
type Options struct {
	// Name — имя задачи. По умолчанию — имя варианта (TypeName).
	Name string

	// Slug — вторичная идентичность для контроля уникальности в flow.
	Slug string

	// Description — описание назначения задачи.
	Description string

	// Group — группа. По умолчанию берётся из контекста.
	Group string

	// Tags — теги; объединяются с тегами контекста и фиксируются
	// в момент конструирования.
	Tags []string

	// MaxRetries — максимальное число повторных попыток (default: 0).
	MaxRetries int

	// RetryDelay — задержка между попытками (default: 1 минута).
	RetryDelay time.Duration

	// Timeout — таймаут одной попытки. 0 — без таймаута.
	Timeout time.Duration

	// Trigger — предикат готовности (default: AllSuccessful).
	// Пользовательский триггер без Name работает при локальном
	// выполнении, но в Info сериализуется пустым именем и после
	// восстановления документа заменяется триггером по умолчанию.
	Trigger Trigger

	// PropagateSkip — пропуск этой задачи распространяется на downstream.
	PropagateSkip bool

	// Environment — ссылка на окружение размещения; для этого слоя
	// непрозрачна и переносится как есть.
	Environment string

	// Checkpoint — сохранять результат задачи в checkpoint.
	Checkpoint bool

	// TypeName — имя варианта задачи для Info.Type и имени по умолчанию.
	TypeName string

	// Params — объявленный список параметров работы задачи.
	Params ParamList

	// Run — функция работы задачи. Без неё Evaluate возвращает FAIL.
	Run RunFunc
}

// Task — объявленная единица работы.
//
// Конструирование задачи — побочный эффект: при наличии текущего flow
// в контексте задача регистрируется в нём (идемпотентно). Группа и теги
// снимаются с контекста один раз и далее не меняются.
type Task struct {
	name        string
	slug        string
	description string
	group       string
	tags        []string

	maxRetries    int
	retryDelay    time.Duration
	timeout       time.Duration
	trigger       Trigger
	propagateSkip bool
	environment   string
	checkpoint    bool

	typ    string
	params ParamList
	run    RunFunc
}

// New конструирует задачу и регистрирует её в текущем flow контекста.
func New(actx *Context, opts Options) *Task {
	t := newTask(actx, opts)
	register(actx, t)
	return t
}

// newTask заполняет поля задачи без регистрации во flow.
// Используется вариантами, которые регистрируют себя сами.
func newTask(actx *Context, opts Options) *Task {
	typ := opts.TypeName
	if typ == "" {
		typ = "Task"
	}

	name := opts.Name
	if name == "" {
		name = typ
	}

	group := opts.Group
	if group == "" {
		group = actx.currentGroup()
	}

	retryDelay := opts.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}

	trigger := opts.Trigger
	if trigger.Ready == nil {
		trigger = AllSuccessful
	}

	return &Task{
		name:          name,
		slug:          opts.Slug,
		description:   opts.Description,
		group:         group,
		tags:          snapshotTags(opts.Tags, actx.currentTags()),
		maxRetries:    opts.MaxRetries,
		retryDelay:    retryDelay,
		timeout:       opts.Timeout,
		trigger:       trigger,
		propagateSkip: opts.PropagateSkip,
		environment:   opts.Environment,
		checkpoint:    opts.Checkpoint,
		typ:           typ,
		params:        opts.Params,
		run:           opts.Run,
	}
}

// register добавляет задачу в текущий flow контекста, если он есть.
func register(actx *Context, s Spec) {
	if f := actx.currentFlow(); f != nil {
		f.AddTask(s)
	}
}

// snapshotTags объединяет явные теги и теги контекста в отсортированное
// множество. Снимок делается один раз: дальнейшие изменения контекста
// не затрагивают уже сконструированную задачу.
func snapshotTags(explicit, ambient []string) []string {
	seen := make(map[string]struct{}, len(explicit)+len(ambient))
	for _, t := range explicit {
		seen[t] = struct{}{}
	}
	for _, t := range ambient {
		seen[t] = struct{}{}
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Name возвращает имя задачи.
func (t *Task) Name() string { return t.name }

// Slug возвращает slug задачи (может быть пустым).
func (t *Task) Slug() string { return t.slug }

// Group возвращает группу задачи.
func (t *Task) Group() string { return t.group }

// Tags возвращает копию тегов задачи.
func (t *Task) Tags() []string {
	tags := make([]string, len(t.tags))
	copy(tags, t.tags)
	return tags
}

// Trigger возвращает триггер готовности задачи.
func (t *Task) Trigger() Trigger { return t.trigger }

// SetName задаёт имя задачи. Для базовой задачи всегда успешно;
// варианты с фиксированной идентичностью возвращают IdentityError.
func (t *Task) SetName(name string) error {
	t.name = name
	return nil
}

// SetSlug задаёт slug задачи.
func (t *Task) SetSlug(slug string) error {
	t.slug = slug
	return nil
}

// Inputs возвращает упорядоченные имена параметров работы задачи.
func (t *Task) Inputs() []string {
	return t.params.Names()
}

// DeclaredParams возвращает объявленный список параметров.
func (t *Task) DeclaredParams() ParamList {
	return t.params
}

// Describe возвращает описательную запись задачи.
func (t *Task) Describe() Info {
	return Info{
		Name:          t.name,
		Slug:          t.slug,
		Type:          t.typ,
		Description:   t.description,
		MaxRetries:    t.maxRetries,
		RetryDelayMs:  t.retryDelay.Milliseconds(),
		TimeoutMs:     t.timeout.Milliseconds(),
		Trigger:       t.trigger.Name,
		PropagateSkip: t.propagateSkip,
		Environment:   t.environment,
		Checkpoint:    t.checkpoint,
	}
}

// Evaluate выполняет одну попытку вычисления через функцию работы.
func (t *Task) Evaluate(ctx context.Context, in Inputs) Outcome {
	if t.run == nil {
		return Failf("task %q has no run function", t.name)
	}
	return t.run(ctx, in)
}

// String возвращает краткое представление для логов.
func (t *Task) String() string {
	return fmt.Sprintf("<Task: %s>", t.name)
}
