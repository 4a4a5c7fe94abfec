// Package worker drains the background job queue. Engagement-event inserts
// run here so a slow analytics write never blocks a viewer request.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/evergreen-webinar/backend/internal/analytics"
	"github.com/evergreen-webinar/backend/pkg/queue"
)

// Worker consumes jobs from the Redis queue.
type Worker struct {
	queue  *queue.Queue
	events *analytics.Repository
	logger *zap.Logger
}

// New creates a worker.
func New(q *queue.Queue, events *analytics.Repository, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: q, events: events, logger: logger}
}

// Run blocks, processing jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				w.logger.Info("worker stopped")
				return nil
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}
		if err := w.process(ctx, job); err != nil {
			w.logger.Warn("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if err := w.queue.Retry(ctx, job); err != nil {
				w.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEngagementEvent:
		var p queue.EngagementEventPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			// Unparseable payloads never succeed; drop rather than retry.
			w.logger.Error("bad job payload", zap.String("job_id", job.ID), zap.Error(err))
			return nil
		}
		return w.events.InsertEvent(ctx, p.WebinarID, p.RegistrationID, p.EventType, p.Metadata, p.OccurredAt)
	default:
		w.logger.Warn("unknown job type", zap.String("type", string(job.Type)))
		return nil
	}
}
