package runner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Konveyer/core"
)

// Event — смена состояния задачи в рамках одного запуска.
type Event struct {
	// RunID — идентификатор запуска.
	RunID uuid.UUID `json:"run_id"`

	// Task — имя задачи.
	Task string `json:"task"`

	// Slug — slug задачи (может быть пустым).
	Slug string `json:"slug,omitempty"`

	// State — новое состояние.
	State core.State `json:"state"`

	// Attempt — номер попытки (начиная с 1; 0 для состояний без попытки).
	Attempt int `json:"attempt,omitempty"`

	// Reason — причина для FAILED/SKIPPED/WAITING.
	Reason string `json:"reason,omitempty"`

	// Timestamp — время события.
	Timestamp time.Time `json:"timestamp"`
}

// EventSink — приёмник событий выполнения.
//
// Реализация пакета mq публикует события в RabbitMQ. Ошибки приёмника
// не прерывают запуск: runner их логирует и продолжает.
type EventSink interface {
	Publish(ctx context.Context, e Event) error
}
