package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/queue"
	"github.com/waveline/engage-gateway/pkg/logger"
)

var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrInvalidEvent = errors.New("invalid webhook event")
	ErrNotFound     = errors.New("error notfound")
)

// WebhookEvent is the raw payload the WhatsApp provider posts to the
// webhook endpoint.
type WebhookEvent struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type MobileNormalizer interface {
	Normalize(s string) (string, error)
}

// WebhookService validates provider events and hands them to the
// intake queue. It does no processing itself so the webhook endpoint
// can always answer fast.
type WebhookService struct {
	queue      *queue.Queue
	mobileNorm MobileNormalizer
}

func NewWebhookService(q *queue.Queue, mobileNorm MobileNormalizer) *WebhookService {
	return &WebhookService{
		queue:      q,
		mobileNorm: mobileNorm,
	}
}

// Accept normalizes and enqueues one provider event. A nil error means
// the event is durably queued; processing happens asynchronously.
func (s *WebhookService) Accept(ctx context.Context, ev WebhookEvent) error {
	if ev.ID == "" || ev.Type == "" {
		return ErrInvalidEvent
	}

	phone := strings.TrimSpace(ev.From)
	if s.mobileNorm != nil {
		np, err := s.mobileNorm.Normalize(phone)
		if err != nil || np == "" {
			return ErrInvalidPhone
		}
		phone = np
	}
	if phone == "" {
		return ErrInvalidPhone
	}

	event := model.InboundEvent{
		From:              phone,
		Text:              ev.Text,
		Type:              model.MessageType(ev.Type),
		ProviderMessageID: ev.ID,
		ReceivedAt:        time.Now(),
	}
	if err := event.Validate(); err != nil {
		return ErrInvalidEvent
	}

	id, err := s.queue.PublishJSON(ctx, event, map[string]string{"source": "webhook"})
	if err != nil {
		return err
	}

	logger.Info("Webhook event queued", "queue_id", id, "provider_message_id", ev.ID)
	return nil
}
