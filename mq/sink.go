package mq

import (
	"context"

	"github.com/google/uuid"

	"github.com/shaiso/Konveyer/core"
	"github.com/shaiso/Konveyer/runner"
)

// EventSink публикует события выполнения задач в RabbitMQ.
// Реализует runner.EventSink.
type EventSink struct {
	publisher *Publisher
}

// NewEventSink создаёт приёмник поверх готового Publisher.
func NewEventSink(p *Publisher) *EventSink {
	return &EventSink{publisher: p}
}

// Publish отправляет событие задачи в konveyer.events.
func (s *EventSink) Publish(ctx context.Context, e runner.Event) error {
	return s.publisher.PublishTaskState(ctx, TaskStatePayload{
		RunID:   e.RunID,
		Task:    e.Task,
		Slug:    e.Slug,
		State:   e.State,
		Attempt: e.Attempt,
		Reason:  e.Reason,
	})
}

// RunNotifier сообщает об итогах запусков в konveyer.runs.
// Реализует worker.Notifier.
type RunNotifier struct {
	publisher *Publisher
}

// NewRunNotifier создаёт RunNotifier поверх готового Publisher.
func NewRunNotifier(p *Publisher) *RunNotifier {
	return &RunNotifier{publisher: p}
}

// NotifyRunFinished публикует run.finished.
func (n *RunNotifier) NotifyRunFinished(ctx context.Context, runID, pipelineID uuid.UUID, state core.State) error {
	return n.publisher.PublishRunFinished(ctx, RunFinishedPayload{
		RunID:      runID,
		PipelineID: pipelineID,
		State:      state,
	})
}
