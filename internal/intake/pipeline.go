// Package intake orchestrates per-event processing of inbound WhatsApp
// messages: persist, classify, run triggers, decide the handover, and
// record the touchpoint. Persisting the inbound message is the only
// step that is mandatory for correctness; everything after it degrades
// to a logged outcome.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waveline/engage-gateway/internal/analysis"
	"github.com/waveline/engage-gateway/internal/handover"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/repository"
	"github.com/waveline/engage-gateway/internal/trigger"
	"github.com/waveline/engage-gateway/pkg/logger"
)

type ContactRepository interface {
	GetByPhone(ctx context.Context, phone string) (*model.Contact, error)
	Create(ctx context.Context, c *model.Contact) (*model.Contact, error)
	InitProfile(ctx context.Context, contactID int64) error
	AppendJourneyEvent(ctx context.Context, contactID int64, kind model.JourneyEventKind, payload map[string]string) error
}

type ConversationRepository interface {
	GetOpenByContact(ctx context.Context, contactID int64) (*model.Conversation, error)
	Create(ctx context.Context, c *model.Conversation) (*model.Conversation, error)
	Touch(ctx context.Context, id int64, from model.SenderType, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	Recent(ctx context.Context, conversationID int64, limit int) ([]*model.Message, error)
}

type AnalyticsRepository interface {
	RecordClassification(ctx context.Context, conversationID int64, c *model.Classification) (*model.ClassificationRecord, error)
}

type TriggerEngine interface {
	Evaluate(ctx context.Context, c *model.Classification, contact *model.Contact, conversation *model.Conversation) ([]trigger.Activation, error)
}

type HandoverUnit interface {
	Decide(ctx context.Context, c *model.Classification, contact *model.Contact, conversation *model.Conversation, history []*model.Message) (*handover.Decision, error)
}

type PipelineConfig struct {
	// ContextWindow bounds how many prior messages are handed to the
	// analysis service.
	ContextWindow int
}

type Pipeline struct {
	contacts      ContactRepository
	conversations ConversationRepository
	messages      MessageRepository
	analytics     AnalyticsRepository
	classifier    analysis.Classifier
	triggers      TriggerEngine
	handover      HandoverUnit
	contextWindow int
}

func NewPipeline(
	contacts ContactRepository,
	conversations ConversationRepository,
	messages MessageRepository,
	analytics AnalyticsRepository,
	classifier analysis.Classifier,
	triggers TriggerEngine,
	handoverUnit HandoverUnit,
	cfg PipelineConfig,
) *Pipeline {
	window := cfg.ContextWindow
	if window <= 0 {
		window = 10
	}
	return &Pipeline{
		contacts:      contacts,
		conversations: conversations,
		messages:      messages,
		analytics:     analytics,
		classifier:    classifier,
		triggers:      triggers,
		handover:      handoverUnit,
		contextWindow: window,
	}
}

// Process runs the full intake pipeline for one inbound event. A
// returned error means the mandatory part (contact/conversation
// resolution and inbound message persistence) did not complete and the
// event should be retried; failures after that point are logged and
// swallowed so the event is not re-processed.
func (p *Pipeline) Process(ctx context.Context, ev model.InboundEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid inbound event: %w", err)
	}

	contact, err := p.resolveContact(ctx, ev)
	if err != nil {
		return fmt.Errorf("resolve contact: %w", err)
	}

	conversation, err := p.resolveConversation(ctx, contact)
	if err != nil {
		return fmt.Errorf("resolve conversation: %w", err)
	}

	providerID := ev.ProviderMessageID
	inbound := &model.Message{
		ConversationID:    conversation.ID,
		SenderType:        model.SenderCustomer,
		Content:           ev.Text,
		MessageType:       ev.Type,
		DeliveryStatus:    model.DeliveryReceived,
		ProviderMessageID: &providerID,
	}
	inbound, err = p.messages.Create(ctx, inbound)
	if err != nil {
		return fmt.Errorf("persist inbound message: %w", err)
	}

	if err := p.conversations.Touch(ctx, conversation.ID, model.SenderCustomer, time.Now()); err != nil {
		logger.Error("Failed to touch conversation", "conversation_id", conversation.ID, "error", err)
	}

	// Non-text modalities are stored and left alone; classification of
	// media is a future extension, not a dependency of this pipeline.
	if ev.Type != model.MessageTypeText {
		logger.Info("Stored non-text message without classification",
			"conversation_id", conversation.ID,
			"message_type", ev.Type)
		return nil
	}

	history, err := p.messages.Recent(ctx, conversation.ID, p.contextWindow)
	if err != nil {
		logger.Error("Failed to load conversation context", "conversation_id", conversation.ID, "error", err)
		history = []*model.Message{inbound}
	}

	classification, err := p.classifier.Classify(ctx, analysis.ClassifyRequest{
		Text:            ev.Text,
		ContextMessages: analysis.ContextFromMessages(history),
		Contact:         contact,
	})
	if err != nil || classification == nil {
		// the SafeClassifier normally absorbs this; guard anyway
		logger.Error("Classification failed past the safe boundary", "error", err)
		classification = model.NeutralClassification()
	}

	if _, err := p.analytics.RecordClassification(ctx, conversation.ID, classification); err != nil {
		logger.Error("Failed to record classification", "conversation_id", conversation.ID, "error", err)
	}

	if _, err := p.triggers.Evaluate(ctx, classification, contact, conversation); err != nil {
		logger.Error("Trigger evaluation failed", "conversation_id", conversation.ID, "error", err)
	}

	if _, err := p.handover.Decide(ctx, classification, contact, conversation, history); err != nil {
		logger.Error("Handover decision failed", "conversation_id", conversation.ID, "error", err)
	}

	if err := p.contacts.AppendJourneyEvent(ctx, contact.ID, model.JourneyInboundMessage, map[string]string{
		"conversation_id": fmt.Sprintf("%d", conversation.ID),
		"intent":          classification.Intent,
	}); err != nil {
		logger.Error("Failed to append journey event", "contact_id", contact.ID, "error", err)
	}

	return nil
}

func (p *Pipeline) resolveContact(ctx context.Context, ev model.InboundEvent) (*model.Contact, error) {
	contact, err := p.contacts.GetByPhone(ctx, ev.From)
	if err == nil {
		return contact, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	contact, err = p.contacts.Create(ctx, &model.Contact{Phone: ev.From})
	if err != nil {
		return nil, err
	}
	if err := p.contacts.InitProfile(ctx, contact.ID); err != nil {
		logger.Error("Failed to initialize contact profile", "contact_id", contact.ID, "error", err)
	}
	logger.Info("Created contact on first inbound message", "contact_id", contact.ID, "phone", contact.Phone)
	return contact, nil
}

func (p *Pipeline) resolveConversation(ctx context.Context, contact *model.Contact) (*model.Conversation, error) {
	conversation, err := p.conversations.GetOpenByContact(ctx, contact.ID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	conversation, err = p.conversations.Create(ctx, &model.Conversation{
		ContactID:       contact.ID,
		Status:          model.ConversationActive,
		LastMessageFrom: model.SenderCustomer,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Created conversation", "conversation_id", conversation.ID, "contact_id", contact.ID)
	return conversation, nil
}
