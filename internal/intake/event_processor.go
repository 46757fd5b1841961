package intake

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/queue"
	"github.com/waveline/engage-gateway/pkg/logger"
	"github.com/waveline/engage-gateway/pkg/prom"
)

// EventProcessor consumes webhook events from the queue and runs them
// through the intake pipeline, holding the per-contact lock for the
// duration so events for one contact never interleave.
type EventProcessor struct {
	pipeline *Pipeline
	lock     *ContactLock
}

func NewEventProcessor(pipeline *Pipeline, lock *ContactLock) *EventProcessor {
	return &EventProcessor{
		pipeline: pipeline,
		lock:     lock,
	}
}

func (p *EventProcessor) GetType() string {
	return "inbound-message"
}

func (p *EventProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var event model.InboundEvent
	if err := json.Unmarshal(queueMessage.Data, &event); err != nil {
		logger.Error("Failed to unmarshal inbound event", "error", err)
		prom.IncIntakeEvent("invalid")
		return err // malformed payload goes to the DLQ after retries
	}

	if err := p.lock.Acquire(ctx, event.From); err != nil {
		if errors.Is(err, ErrContactBusy) {
			logger.Info("Contact locked by another worker, will retry",
				"phone", event.From, "provider_message_id", event.ProviderMessageID)
			prom.IncIntakeEvent("requeued")
			return err // NACK so the queue redelivers later
		}
		logger.Error("Failed to acquire contact lock", "phone", event.From, "error", err)
		return err
	}
	defer p.lock.Release(ctx, event.From)

	start := time.Now()
	if err := p.pipeline.Process(ctx, event); err != nil {
		logger.Error("Intake pipeline failed",
			"phone", event.From,
			"provider_message_id", event.ProviderMessageID,
			"error", err)
		prom.IncIntakeEvent("failed")
		return err
	}

	prom.IncIntakeEvent("processed")
	prom.AddIntakeDuration(time.Since(start).Seconds())
	return nil
}
