package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Konveyer/core"
	"github.com/shaiso/Konveyer/mq"
	"github.com/shaiso/Konveyer/runner"
)

// RunStore — нужный исполнителю срез хранилища запусков.
type RunStore interface {
	// MarkStarted переводит запуск в RUNNING.
	MarkStarted(ctx context.Context, id uuid.UUID, at time.Time) error

	// SaveReport фиксирует итог запуска.
	SaveReport(ctx context.Context, id uuid.UUID, report *runner.Report) error
}

// PipelineStore — доступ к сохранённым графам.
type PipelineStore interface {
	// Document возвращает граф pipeline; false — pipeline не существует.
	Document(ctx context.Context, id uuid.UUID) (core.Document, bool, error)
}

// Notifier объявляет итог запуска внешним потребителям.
type Notifier interface {
	NotifyRunFinished(ctx context.Context, runID, pipelineID uuid.UUID, state core.State) error
}

// Config — зависимости Worker.
type Config struct {
	// Runs — хранилище запусков.
	Runs RunStore

	// Pipelines — хранилище pipeline.
	Pipelines PipelineStore

	// Registry — функции работы задач по имени типа.
	Registry core.Registry

	// Runner — исполнитель графов. nil — исполнитель по умолчанию.
	Runner *runner.Runner

	// Notifier — объявление run.finished. nil отключает объявления.
	Notifier Notifier

	// Logger — логгер. nil — slog.Default().
	Logger *slog.Logger
}

// Worker выполняет запросы run.requested.
type Worker struct {
	runs      RunStore
	pipelines PipelineStore
	registry  core.Registry
	runner    *runner.Runner
	notifier  Notifier
	logger    *slog.Logger
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := cfg.Runner
	if r == nil {
		r = runner.New(runner.Config{Logger: logger})
	}

	return &Worker{
		runs:      cfg.Runs,
		pipelines: cfg.Pipelines,
		registry:  cfg.Registry,
		runner:    r,
		notifier:  cfg.Notifier,
		logger:    logger,
	}
}

// HandleRunRequested — mq.Handler очереди runs.requested.
//
// Битый payload подтверждается и отбрасывается: повторная доставка
// его не исправит. Ошибки хранилища возвращаются наружу — consumer
// вернёт сообщение в очередь.
func (w *Worker) HandleRunRequested(ctx context.Context, d *mq.Delivery) error {
	req, err := mq.ParsePayload[mq.RunRequestedPayload](&d.Message)
	if err != nil {
		w.logger.Error("malformed run request dropped",
			"message_id", d.Message.ID,
			"error", err,
		)
		return nil
	}
	return w.Execute(ctx, req)
}

// Execute выполняет один запрошенный запуск.
func (w *Worker) Execute(ctx context.Context, req mq.RunRequestedPayload) error {
	doc, ok, err := w.pipelines.Document(ctx, req.PipelineID)
	if err != nil {
		return fmt.Errorf("load pipeline %s: %w", req.PipelineID, err)
	}
	if !ok {
		return w.failRun(ctx, req, "pipeline not found")
	}

	graph, err := doc.Build(w.registry)
	if err != nil {
		return w.failRun(ctx, req, err.Error())
	}

	if err := w.runs.MarkStarted(ctx, req.RunID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark run %s started: %w", req.RunID, err)
	}

	report, err := w.runner.RunWithID(ctx, req.RunID, graph, req.Parameters)
	if err != nil {
		return fmt.Errorf("run %s: %w", req.RunID, err)
	}

	if err := w.runs.SaveReport(ctx, req.RunID, report); err != nil {
		return fmt.Errorf("save report of run %s: %w", req.RunID, err)
	}

	w.notify(ctx, req, report.State)

	w.logger.Info("run executed",
		"run_id", req.RunID,
		"pipeline_id", req.PipelineID,
		"state", report.State,
	)
	return nil
}

// failRun фиксирует невыполнимый запуск, чтобы он не завис в PENDING.
func (w *Worker) failRun(ctx context.Context, req mq.RunRequestedPayload, reason string) error {
	w.logger.Error("run cannot be executed",
		"run_id", req.RunID,
		"pipeline_id", req.PipelineID,
		"reason", reason,
	)

	now := time.Now().UTC()
	report := &runner.Report{
		RunID:      req.RunID,
		State:      core.StateFailed,
		StartedAt:  now,
		FinishedAt: now,
	}
	if err := w.runs.SaveReport(ctx, req.RunID, report); err != nil {
		return fmt.Errorf("save report of run %s: %w", req.RunID, err)
	}

	w.notify(ctx, req, core.StateFailed)
	return nil
}

// notify объявляет run.finished; итог уже зафиксирован в хранилище,
// так что потеря объявления не повод перевыполнять запуск.
func (w *Worker) notify(ctx context.Context, req mq.RunRequestedPayload, state core.State) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.NotifyRunFinished(ctx, req.RunID, req.PipelineID, state); err != nil {
		w.logger.Error("run finished but not announced",
			"run_id", req.RunID,
			"error", err,
		)
	}
}
