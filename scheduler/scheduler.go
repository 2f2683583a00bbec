package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Konveyer/telemetry"
)

// Scheduler обрабатывает расписания с истекшим next_due_at.
type Scheduler struct {
	schedules ScheduleStore
	runs      RunStore
	pipelines PipelineStore
	announcer Announcer
	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules ScheduleStore
	Runs      RunStore
	Pipelines PipelineStore
	Announcer Announcer // опционально
	Logger    *slog.Logger
	BatchSize int // расписаний за один тик (default: 100)
}

// New создаёт Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules: cfg.Schedules,
		runs:      cfg.Runs,
		pipelines: cfg.Pipelines,
		announcer: cfg.Announcer,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due расписания (enabled=true, next_due_at <= now)
// 2. Для каждого заводит pending запуск
// 3. Обновляет next_due_at
// 4. Объявляет запуск через Announcer
//
// Ошибки одного расписания не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()
	telemetry.SchedulerTicksTotal.Inc()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		runCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if runCreated {
			created++
		}
	}

	telemetry.ScheduledRunsTotal.Add(float64(created))
	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"runs_created", created,
	)

	return nil
}

// processSchedule обрабатывает одно расписание.
// Возвращает true, если запуск был создан (не дубликат).
func (s *Scheduler) processSchedule(ctx context.Context, sched *Schedule, now time.Time) (bool, error) {
	exists, err := s.pipelines.Exists(ctx, sched.PipelineID)
	if err != nil {
		return false, fmt.Errorf("check pipeline: %w", err)
	}
	if !exists {
		s.logger.Warn("pipeline not found for schedule, skipping",
			"schedule_id", sched.ID,
			"pipeline_id", sched.PipelineID,
		)
		return false, nil
	}

	// Ключ идемпотентности "{schedule_id}_{next_due_at_unix}":
	// для одного расписания и конкретного времени — один запуск.
	idempKey := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())

	existingID, found, err := s.runs.FindByIdempotencyKey(ctx, sched.PipelineID, idempKey)
	if err != nil {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	var run *PendingRun
	var runCreated bool
	var runID uuid.UUID

	if found {
		s.logger.Debug("run already exists (idempotency)",
			"schedule_id", sched.ID,
			"run_id", existingID,
			"idempotency_key", idempKey,
		)
		runID = existingID
	} else {
		scheduleID := sched.ID
		run = &PendingRun{
			ID:             uuid.New(),
			PipelineID:     sched.PipelineID,
			ScheduleID:     &scheduleID,
			IdempotencyKey: idempKey,
			Parameters:     sched.Parameters,
			CreatedAt:      now,
		}

		if err := s.runs.CreatePending(ctx, run); err != nil {
			return false, fmt.Errorf("create run: %w", err)
		}

		s.logger.Info("created run from schedule",
			"run_id", run.ID,
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
			"pipeline_id", sched.PipelineID,
		)

		runID = run.ID
		runCreated = true
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due, leaving schedule untouched",
			"schedule_id", sched.ID,
			"error", err,
		)
		return runCreated, nil
	}

	sched.RecordRun(runID, nextDue)
	if err := s.schedules.Update(ctx, sched); err != nil {
		return runCreated, fmt.Errorf("update schedule: %w", err)
	}

	// Объявление не фатально: запуск уже в БД, исполнители
	// могут забрать его через polling.
	if s.announcer != nil && runCreated {
		if err := s.announcer.AnnounceRun(ctx, run); err != nil {
			s.logger.Warn("failed to announce run",
				"run_id", runID,
				"error", err,
			)
		}
	}

	return runCreated, nil
}
