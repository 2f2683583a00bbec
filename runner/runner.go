package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Konveyer/core"
	"github.com/shaiso/Konveyer/telemetry"
)

// Config — конфигурация Runner.
type Config struct {
	// Logger — логгер; nil заменяется slog.Default().
	Logger *slog.Logger

	// Sink — приёмник событий выполнения (опционально).
	Sink EventSink
}

// Runner — локальный исполнитель графа.
type Runner struct {
	logger *slog.Logger
	sink   EventSink
}

// New создаёт Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, sink: cfg.Sink}
}

// TaskReport — итог одной задачи в запуске.
type TaskReport struct {
	// Name — имя задачи.
	Name string `json:"name"`

	// Slug — slug задачи.
	Slug string `json:"slug,omitempty"`

	// State — финальное состояние.
	State core.State `json:"state"`

	// Attempts — количество сделанных попыток.
	Attempts int `json:"attempts,omitempty"`

	// Reason — причина для FAILED/SKIPPED/WAITING.
	Reason string `json:"reason,omitempty"`

	// Value — результат задачи (для SUCCEEDED).
	Value any `json:"value,omitempty"`
}

// Report — итог запуска графа.
type Report struct {
	// RunID — идентификатор запуска.
	RunID uuid.UUID `json:"run_id"`

	// State — итоговое состояние запуска: FAILED при любой неудаче,
	// WAITING если есть отложенные задачи, иначе SUCCEEDED.
	State core.State `json:"state"`

	// Tasks — итоги задач в порядке выполнения.
	Tasks []TaskReport `json:"tasks"`

	// StartedAt — время начала запуска.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения запуска.
	FinishedAt time.Time `json:"finished_at"`
}

// Result возвращает итог задачи по имени.
func (r *Report) Result(name string) (TaskReport, bool) {
	for _, tr := range r.Tasks {
		if tr.Name == name {
			return tr, true
		}
	}
	return TaskReport{}, false
}

// Run выполняет граф с данными значениями параметров под новым
// идентификатором запуска.
//
// Ошибка возвращается только для проблем уровня графа (цикл) и отмены
// контекста; неудачи отдельных задач фиксируются в Report.
func (r *Runner) Run(ctx context.Context, g *core.Graph, params map[string]any) (*Report, error) {
	return r.RunWithID(ctx, uuid.New(), g, params)
}

// RunWithID выполняет граф под заранее известным идентификатором,
// например взятым из записи запуска в БД.
func (r *Runner) RunWithID(ctx context.Context, runID uuid.UUID, g *core.Graph, params map[string]any) (*Report, error) {
	order, err := g.Sorted()
	if err != nil {
		return nil, fmt.Errorf("sort graph: %w", err)
	}

	report := &Report{
		RunID:     runID,
		StartedAt: time.Now(),
		Tasks:     make([]TaskReport, 0, len(order)),
	}
	states := make(map[core.Spec]core.State, len(order))
	results := make(map[core.Spec]any, len(order))

	r.logger.Info("run started", "run_id", report.RunID, "tasks", len(order))

	for _, s := range order {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		tr := r.runTask(ctx, g, s, states, results, params, report.RunID)
		states[s] = tr.State
		if tr.State.IsSuccessful() {
			results[s] = tr.Value
		}
		report.Tasks = append(report.Tasks, tr)

		telemetry.TaskEvaluationsTotal.WithLabelValues(string(tr.State)).Inc()
	}

	report.State = overallState(states)
	report.FinishedAt = time.Now()

	telemetry.RunsTotal.WithLabelValues(string(report.State)).Inc()
	r.logger.Info("run finished",
		"run_id", report.RunID,
		"state", report.State,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	return report, nil
}

// runTask выполняет одну задачу: пропуск, триггер, попытки.
func (r *Runner) runTask(
	ctx context.Context,
	g *core.Graph,
	s core.Spec,
	states map[core.Spec]core.State,
	results map[core.Spec]any,
	params map[string]any,
	runID uuid.UUID,
) TaskReport {
	info := s.Describe()
	tr := TaskReport{Name: info.Name, Slug: info.Slug}

	upstream := upstreamStates(g, s, states)

	// Отложенный upstream паркует и downstream задачи.
	for up, st := range upstream {
		if st == core.StateWaiting {
			tr.State = core.StateWaiting
			tr.Reason = fmt.Sprintf("upstream task %q is waiting", up.Describe().Name)
			r.emit(ctx, runID, tr, 0)
			return tr
		}
	}

	// Распространение пропуска от upstream задач с propagate_skip.
	for up, st := range upstream {
		if st == core.StateSkipped && up.Describe().PropagateSkip {
			tr.State = core.StateSkipped
			tr.Reason = fmt.Sprintf("upstream task %q was skipped", up.Describe().Name)
			r.emit(ctx, runID, tr, 0)
			return tr
		}
	}

	trig := triggerOf(s, info)
	if !trig.Ready(upstream) {
		tr.State = core.StateSkipped
		tr.Reason = fmt.Sprintf("trigger %q not ready", trig.Name)
		r.emit(ctx, runID, tr, 0)
		return tr
	}

	in := core.Inputs{
		Args:       boundArgs(g, s, results),
		Parameters: params,
	}

	attempts := info.MaxRetries + 1
	retryDelay := time.Duration(info.RetryDelayMs) * time.Millisecond

	for attempt := 1; attempt <= attempts; attempt++ {
		tr.Attempts = attempt
		tr.State = core.StateRunning
		r.emit(ctx, runID, tr, attempt)

		out := r.evaluate(ctx, s, info, in)

		switch out.Kind {
		case core.OutcomeSuccess:
			tr.State = core.StateSucceeded
			tr.Reason = ""
			tr.Value = out.Value
			r.emit(ctx, runID, tr, attempt)
			return tr

		case core.OutcomeWait:
			tr.State = core.StateWaiting
			tr.Reason = out.Reason
			r.emit(ctx, runID, tr, attempt)
			return tr

		case core.OutcomeSkip:
			tr.State = core.StateSkipped
			tr.Reason = out.Reason
			r.emit(ctx, runID, tr, attempt)
			return tr

		default: // core.OutcomeFail
			tr.State = core.StateFailed
			tr.Reason = out.Reason

			if attempt < attempts {
				telemetry.TaskRetriesTotal.Inc()
				r.logger.Warn("task failed, retrying",
					"run_id", runID,
					"task", info.Name,
					"attempt", attempt,
					"reason", out.Reason,
				)
				if !sleep(ctx, retryDelay) {
					return tr
				}
				continue
			}

			r.emit(ctx, runID, tr, attempt)
		}
	}

	return tr
}

// evaluate выполняет одну попытку с таймаутом из описательной записи.
func (r *Runner) evaluate(ctx context.Context, s core.Spec, info core.Info, in core.Inputs) core.Outcome {
	if info.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(info.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	out := s.Evaluate(ctx, in)

	// Попытка, не уложившаяся в таймаут — неудача,
	// даже если задача проигнорировала ctx.
	if ctx.Err() != nil && out.Kind != core.OutcomeFail {
		return core.Failf("task %q: %v", info.Name, ctx.Err())
	}
	return out
}

// upstreamStates собирает состояния upstream задач (с дедупликацией
// параллельных рёбер).
func upstreamStates(g *core.Graph, s core.Spec, states map[core.Spec]core.State) map[core.Spec]core.State {
	upstream := make(map[core.Spec]core.State)
	for _, e := range g.UpstreamOf(s) {
		upstream[e.Upstream] = states[e.Upstream]
	}
	return upstream
}

// boundArgs собирает аргументы вычисления: константы графа плюс
// результаты upstream задач по рёбрам данных.
func boundArgs(g *core.Graph, s core.Spec, results map[core.Spec]any) map[string]any {
	args := make(map[string]any)
	for k, v := range g.Constants(s) {
		args[k] = v
	}
	for _, e := range g.UpstreamOf(s) {
		if e.Key == "" {
			continue
		}
		if v, ok := results[e.Upstream]; ok {
			args[e.Key] = v
		}
	}
	return args
}

// triggerOf возвращает предикат готовности задачи: сам триггер,
// если вариант его отдаёт, иначе стандартный по имени из Info.
func triggerOf(s core.Spec, info core.Info) core.Trigger {
	if tp, ok := s.(interface{ Trigger() core.Trigger }); ok {
		if trig := tp.Trigger(); trig.Ready != nil {
			return trig
		}
	}
	if trig, ok := core.TriggerByName(info.Trigger); ok {
		return trig
	}
	return core.AllSuccessful
}

// overallState сводит состояния задач в итог запуска.
func overallState(states map[core.Spec]core.State) core.State {
	waiting := false
	for _, st := range states {
		switch st {
		case core.StateFailed:
			return core.StateFailed
		case core.StateWaiting:
			waiting = true
		}
	}
	if waiting {
		return core.StateWaiting
	}
	return core.StateSucceeded
}

// sleep ждёт d с уважением к отмене контекста.
// Возвращает false, если контекст отменён раньше.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// emit отправляет событие в приёмник, если он настроен.
func (r *Runner) emit(ctx context.Context, runID uuid.UUID, tr TaskReport, attempt int) {
	if r.sink == nil {
		return
	}
	e := Event{
		RunID:     runID,
		Task:      tr.Name,
		Slug:      tr.Slug,
		State:     tr.State,
		Attempt:   attempt,
		Reason:    tr.Reason,
		Timestamp: time.Now(),
	}
	if err := r.sink.Publish(ctx, e); err != nil {
		r.logger.Warn("event sink failed", "task", tr.Name, "error", err)
	}
}
