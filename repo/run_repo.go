package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Konveyer/core"
	"github.com/shaiso/Konveyer/runner"
	"github.com/shaiso/Konveyer/scheduler"
)

// Run — запись о запуске pipeline.
type Run struct {
	// ID — идентификатор запуска.
	ID uuid.UUID

	// PipelineID — выполняемый pipeline.
	PipelineID uuid.UUID

	// ScheduleID — расписание-источник (nil для ручных запусков).
	ScheduleID *uuid.UUID

	// State — текущее состояние запуска.
	State core.State

	// Parameters — значения параметров запуска.
	Parameters map[string]any

	// Report — итоговый отчёт (JSONB, nil до завершения).
	Report *runner.Report

	// IdempotencyKey — ключ идемпотентности планировщика.
	IdempotencyKey string

	// CreatedAt — время создания записи.
	CreatedAt time.Time

	// StartedAt, FinishedAt — границы выполнения.
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// RunRepo — репозиторий запусков.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Create сохраняет новый запуск.
func (r *RunRepo) Create(ctx context.Context, run *Run) error {
	paramsJSON, err := json.Marshal(run.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}

	query := `
		INSERT INTO runs (id, pipeline_id, schedule_id, state, parameters,
		                  idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID,
		run.PipelineID,
		run.ScheduleID,
		string(run.State),
		paramsJSON,
		nullString(run.IdempotencyKey),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CreatePending заводит pending запуск от планировщика.
// Реализует scheduler.RunStore.
func (r *RunRepo) CreatePending(ctx context.Context, run *scheduler.PendingRun) error {
	return r.Create(ctx, &Run{
		ID:             run.ID,
		PipelineID:     run.PipelineID,
		ScheduleID:     run.ScheduleID,
		State:          core.StatePending,
		Parameters:     run.Parameters,
		IdempotencyKey: run.IdempotencyKey,
		CreatedAt:      run.CreatedAt,
	})
}

// FindByIdempotencyKey ищет запуск по ключу идемпотентности.
// Реализует scheduler.RunStore.
func (r *RunRepo) FindByIdempotencyKey(ctx context.Context, pipelineID uuid.UUID, key string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM runs
		WHERE pipeline_id = $1 AND idempotency_key = $2
	`, pipelineID, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("find run by idempotency key: %w", err)
	}
	return id, true, nil
}

// GetByID возвращает запуск по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, pipeline_id, schedule_id, state, parameters, report,
		       idempotency_key, created_at, started_at, finished_at
		FROM runs
		WHERE id = $1
	`
	run, err := scanRunRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// RunFilter — параметры фильтрации запусков.
type RunFilter struct {
	PipelineID *uuid.UUID
	State      core.State
	Limit      int
	Offset     int
}

// List возвращает запуски с фильтрацией, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `
		SELECT id, pipeline_id, schedule_id, state, parameters, report,
		       idempotency_key, created_at, started_at, finished_at
		FROM runs
		WHERE ($1::uuid IS NULL OR pipeline_id = $1)
		  AND ($2::text IS NULL OR state = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.PipelineID),
		nullString(string(filter.State)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// MarkStarted переводит запуск в RUNNING.
func (r *RunRepo) MarkStarted(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE runs SET state = $2, started_at = $3 WHERE id = $1
	`, id, string(core.StateRunning), at)
	if err != nil {
		return fmt.Errorf("mark run started: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveReport фиксирует итог запуска.
func (r *RunRepo) SaveReport(ctx context.Context, id uuid.UUID, report *runner.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE runs SET state = $2, report = $3, finished_at = $4 WHERE id = $1
	`, id, string(report.State), reportJSON, report.FinishedAt)
	if err != nil {
		return fmt.Errorf("save run report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRunRow(row pgx.Row) (*Run, error) {
	var run Run
	var state string
	var paramsJSON, reportJSON []byte
	var idempotencyKey *string

	err := row.Scan(
		&run.ID,
		&run.PipelineID,
		&run.ScheduleID,
		&state,
		&paramsJSON,
		&reportJSON,
		&idempotencyKey,
		&run.CreatedAt,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.State = core.State(state)
	if idempotencyKey != nil {
		run.IdempotencyKey = *idempotencyKey
	}
	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &run.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	if reportJSON != nil {
		if err := json.Unmarshal(reportJSON, &run.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
	}

	return &run, nil
}
