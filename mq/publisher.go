package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Konveyer/core"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunRequested MessageType = "run.requested"
	MessageTypeRunFinished  MessageType = "run.finished"
	MessageTypeTaskState    MessageType = "task.state"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RunRequestedPayload — запрос на выполнение pipeline.
type RunRequestedPayload struct {
	RunID      uuid.UUID `json:"run_id"`
	PipelineID uuid.UUID `json:"pipeline_id"`

	// ScheduleID — расписание-источник запроса (nil для ручных запусков).
	ScheduleID *uuid.UUID `json:"schedule_id,omitempty"`

	// IdempotencyKey защищает от повторной публикации одного тика.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Parameters — значения параметров запуска.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// RunFinishedPayload — итог выполнения pipeline.
type RunFinishedPayload struct {
	RunID      uuid.UUID  `json:"run_id"`
	PipelineID uuid.UUID  `json:"pipeline_id"`
	State      core.State `json:"state"`
}

// TaskStatePayload — смена состояния задачи внутри запуска.
type TaskStatePayload struct {
	RunID   uuid.UUID  `json:"run_id"`
	Task    string     `json:"task"`
	Slug    string     `json:"slug,omitempty"`
	State   core.State `json:"state"`
	Attempt int        `json:"attempt,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishRunRequested публикует запрос на выполнение pipeline.
func (p *Publisher) PublishRunRequested(ctx context.Context, payload RunRequestedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyRequested, envelope(MessageTypeRunRequested, payload))
}

// PublishRunFinished публикует итог выполнения pipeline.
func (p *Publisher) PublishRunFinished(ctx context.Context, payload RunFinishedPayload) error {
	return p.Publish(ctx, ExchangeRuns, RoutingKeyFinished, envelope(MessageTypeRunFinished, payload))
}

// PublishTaskState публикует смену состояния задачи.
func (p *Publisher) PublishTaskState(ctx context.Context, payload TaskStatePayload) error {
	return p.Publish(ctx, ExchangeEvents, RoutingKeyState, envelope(MessageTypeTaskState, payload))
}

// envelope оборачивает payload в конверт с новым идентификатором.
func envelope(t MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
