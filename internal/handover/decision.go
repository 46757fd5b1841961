// Package handover decides, per classified inbound message, whether
// the AI keeps the conversation or a human agent takes over.
package handover

import (
	"context"
	"fmt"

	"github.com/waveline/engage-gateway/internal/analysis"
	gateway "github.com/waveline/engage-gateway/internal/gateways"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/pkg/logger"
	"github.com/waveline/engage-gateway/pkg/prom"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
}

type ConversationRepository interface {
	Transition(ctx context.Context, id int64, status model.ConversationStatus, from model.SenderType, reason *string, confidence *float64) error
}

type Transport interface {
	Send(ctx context.Context, req *gateway.SendRequest) (*gateway.SendResponse, error)
}

// Outcome names the decision taken for one event.
type Outcome string

const (
	OutcomeAIHandled     Outcome = "ai_handled"
	OutcomeAgentAssigned Outcome = "agent_assigned"
)

// Decision is the result of one handover evaluation.
type Decision struct {
	Outcome    Outcome
	Confidence float64
	Reply      *model.Message // set only for OutcomeAIHandled
}

type Unit struct {
	classifier       analysis.Classifier
	messageRepo      MessageRepository
	conversationRepo ConversationRepository
	transport        Transport
	threshold        float64
}

func NewUnit(classifier analysis.Classifier, messageRepo MessageRepository, conversationRepo ConversationRepository, transport Transport, threshold float64) *Unit {
	if threshold == 0 {
		threshold = 0.7
	}
	return &Unit{
		classifier:       classifier,
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		transport:        transport,
		threshold:        threshold,
	}
}

// Decide applies the confidence rule: at or above the threshold the AI
// answers and keeps the conversation; below it the conversation is
// escalated with reason "low_confidence" and no reply is sent. The
// transition is one-way per event; a conversation never reverts to
// active here.
func (u *Unit) Decide(ctx context.Context, c *model.Classification, contact *model.Contact, conversation *model.Conversation, history []*model.Message) (*Decision, error) {
	confidence := c.Confidence

	if confidence < u.threshold {
		reason := model.HandoverReasonLowConfidence
		err := u.conversationRepo.Transition(ctx, conversation.ID, model.ConversationAgentAssigned, "", &reason, &confidence)
		if err != nil {
			return nil, fmt.Errorf("transition to agent_assigned: %w", err)
		}
		prom.IncHandoverOutcome(string(OutcomeAgentAssigned))
		logger.Info("Conversation escalated to agent",
			"conversation_id", conversation.ID,
			"confidence", confidence,
			"reason", reason)
		return &Decision{Outcome: OutcomeAgentAssigned, Confidence: confidence}, nil
	}

	reply, err := u.classifier.GenerateReply(ctx, c, contact, history)
	if err != nil {
		// SafeClassifier already degrades; a hard error here means no
		// usable reply at all, fall back to escalation.
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	if reply == "" {
		reason := model.HandoverReasonLowConfidence
		if err := u.conversationRepo.Transition(ctx, conversation.ID, model.ConversationAgentAssigned, "", &reason, &confidence); err != nil {
			return nil, fmt.Errorf("transition to agent_assigned: %w", err)
		}
		prom.IncHandoverOutcome(string(OutcomeAgentAssigned))
		logger.Warn("No AI reply available, escalated to agent", "conversation_id", conversation.ID)
		return &Decision{Outcome: OutcomeAgentAssigned, Confidence: confidence}, nil
	}

	msg := &model.Message{
		ConversationID: conversation.ID,
		SenderType:     model.SenderAI,
		Content:        reply,
		MessageType:    model.MessageTypeText,
		DeliveryStatus: model.DeliverySent,
	}

	if u.transport != nil {
		res, sendErr := u.transport.Send(ctx, &gateway.SendRequest{To: contact.Phone, Body: reply})
		if sendErr != nil {
			// delivery failure does not demote the conversation; the AI
			// answer is still the recorded response
			logger.Warn("Failed to deliver AI reply", "conversation_id", conversation.ID, "error", sendErr)
			msg.DeliveryStatus = model.DeliveryFailed
		} else if res != nil && res.MessageID != "" {
			id := res.MessageID
			msg.ProviderMessageID = &id
		}
	}

	created, err := u.messageRepo.Create(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("persist ai reply: %w", err)
	}

	err = u.conversationRepo.Transition(ctx, conversation.ID, model.ConversationAIHandled, model.SenderAI, nil, &confidence)
	if err != nil {
		return nil, fmt.Errorf("transition to ai_handled: %w", err)
	}

	prom.IncHandoverOutcome(string(OutcomeAIHandled))
	logger.Info("AI kept the conversation",
		"conversation_id", conversation.ID,
		"confidence", confidence,
		"message_id", created.ID)

	return &Decision{Outcome: OutcomeAIHandled, Confidence: confidence, Reply: created}, nil
}
