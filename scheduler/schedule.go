package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание запусков pipeline.
//
// Задаётся либо cron-выражением, либо фиксированным интервалом;
// ровно одно из двух полей должно быть ненулевым.
type Schedule struct {
	// ID — идентификатор расписания.
	ID uuid.UUID

	// PipelineID — pipeline, который запускается.
	PipelineID uuid.UUID

	// Name — человекочитаемое имя.
	Name string

	// CronExpr — cron-выражение (5 полей, пусто для интервалов).
	CronExpr string

	// IntervalSec — интервал в секундах (0 для cron).
	IntervalSec int

	// Timezone — IANA timezone для cron-выражений (default: UTC).
	Timezone string

	// Enabled — участвует ли расписание в тиках.
	Enabled bool

	// Parameters — значения параметров создаваемых запусков.
	Parameters map[string]any

	// NextDueAt — следующее время срабатывания (UTC).
	NextDueAt time.Time

	// LastRunID — последний созданный запуск.
	LastRunID *uuid.UUID

	// CreatedAt, UpdatedAt — временные метки записи.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsCron сообщает, задано ли расписание cron-выражением.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval сообщает, задано ли расписание интервалом.
func (s *Schedule) IsInterval() bool {
	return s.IntervalSec > 0
}

// RecordRun фиксирует созданный запуск и следующее время срабатывания.
func (s *Schedule) RecordRun(runID uuid.UUID, nextDue time.Time) {
	s.LastRunID = &runID
	s.NextDueAt = nextDue
	s.UpdatedAt = time.Now().UTC()
}

// PendingRun — заявка на запуск, создаваемая планировщиком.
type PendingRun struct {
	ID             uuid.UUID
	PipelineID     uuid.UUID
	ScheduleID     *uuid.UUID
	IdempotencyKey string
	Parameters     map[string]any
	CreatedAt      time.Time
}

// ScheduleStore — доступ планировщика к расписаниям.
type ScheduleStore interface {
	// ListDue возвращает включённые расписания с next_due_at <= now,
	// не более limit штук.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Schedule, error)

	// Update сохраняет изменённое расписание.
	Update(ctx context.Context, s *Schedule) error
}

// RunStore — доступ планировщика к запускам.
type RunStore interface {
	// FindByIdempotencyKey ищет запуск по ключу идемпотентности.
	FindByIdempotencyKey(ctx context.Context, pipelineID uuid.UUID, key string) (uuid.UUID, bool, error)

	// CreatePending заводит новый pending запуск.
	CreatePending(ctx context.Context, run *PendingRun) error
}

// PipelineStore — проверка существования pipeline.
type PipelineStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Announcer объявляет созданные запуски внешним потребителям.
type Announcer interface {
	AnnounceRun(ctx context.Context, run *PendingRun) error
}
