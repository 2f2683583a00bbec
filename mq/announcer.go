package mq

import (
	"context"

	"github.com/shaiso/Konveyer/scheduler"
)

// RunAnnouncer объявляет созданные планировщиком запуски в konveyer.runs.
// Реализует scheduler.Announcer.
type RunAnnouncer struct {
	publisher *Publisher
}

// NewRunAnnouncer создаёт RunAnnouncer поверх готового Publisher.
func NewRunAnnouncer(p *Publisher) *RunAnnouncer {
	return &RunAnnouncer{publisher: p}
}

// AnnounceRun публикует run.requested.
func (a *RunAnnouncer) AnnounceRun(ctx context.Context, run *scheduler.PendingRun) error {
	return a.publisher.PublishRunRequested(ctx, RunRequestedPayload{
		RunID:          run.ID,
		PipelineID:     run.PipelineID,
		ScheduleID:     run.ScheduleID,
		IdempotencyKey: run.IdempotencyKey,
		Parameters:     run.Parameters,
	})
}
