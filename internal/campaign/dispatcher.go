// Package campaign runs broadcast dispatch: it resolves the target
// segment, renders personalized messages, and pushes them through the
// WhatsApp gateway at a bounded rate, with the campaign row in the
// database acting as the single arbiter of the run state.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	gateway "github.com/waveline/engage-gateway/internal/gateways"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/repository"
	"github.com/waveline/engage-gateway/internal/template"
	"github.com/waveline/engage-gateway/pkg/logger"
	"github.com/waveline/engage-gateway/pkg/prom"
)

var (
	ErrNotFound = errors.New("campaign not found")
	// ErrAlreadyRunning means the run guard lost: the campaign is
	// already running or past running.
	ErrAlreadyRunning = errors.New("campaign is not in a dispatchable state")
)

type CampaignRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	GetStatus(ctx context.Context, id int64) (model.CampaignStatus, error)
	MarkRunning(ctx context.Context, id int64) (bool, error)
	RevertRunning(ctx context.Context, id int64, to model.CampaignStatus) error
	SetTotalRecipients(ctx context.Context, id int64, total int64) error
	UpdateCounts(ctx context.Context, id int64, sent, failed int64) error
	MarkCompleted(ctx context.Context, id int64, sent, failed int64) error
}

type ContactRepository interface {
	ListSegment(ctx context.Context, tags []string) ([]*model.Contact, error)
	AppendJourneyEvent(ctx context.Context, contactID int64, kind model.JourneyEventKind, payload map[string]string) error
}

type ConversationRepository interface {
	GetOpenByContact(ctx context.Context, contactID int64) (*model.Conversation, error)
	Create(ctx context.Context, c *model.Conversation) (*model.Conversation, error)
	Touch(ctx context.Context, id int64, from model.SenderType, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
}

type Transport interface {
	Send(ctx context.Context, req *gateway.SendRequest) (*gateway.SendResponse, error)
}

type Dispatcher struct {
	campaigns     CampaignRepository
	contacts      ContactRepository
	conversations ConversationRepository
	messages      MessageRepository
	transport     Transport
	sendInterval  time.Duration
}

func NewDispatcher(
	campaigns CampaignRepository,
	contacts ContactRepository,
	conversations ConversationRepository,
	messages MessageRepository,
	transport Transport,
	sendInterval time.Duration,
) *Dispatcher {
	if sendInterval <= 0 {
		sendInterval = time.Second
	}
	return &Dispatcher{
		campaigns:     campaigns,
		contacts:      contacts,
		conversations: conversations,
		messages:      messages,
		transport:     transport,
		sendInterval:  sendInterval,
	}
}

// Execute runs one campaign to completion. It is synchronous; callers
// that need an async kick run it in a goroutine after this returns the
// guard errors, which are always surfaced before any send happens.
func (d *Dispatcher) Execute(ctx context.Context, campaignID int64) (*model.DispatchResult, error) {
	c, err := d.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ok, err := d.campaigns.MarkRunning(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	start := time.Now()
	logger.Info("Campaign dispatch started", "campaign_id", campaignID, "name", c.Name, "target_tags", c.TargetTags)

	recipients, err := d.contacts.ListSegment(ctx, c.TargetTags)
	if err != nil {
		// Nothing was sent yet; put the status back so a retry can
		// pass the run guard once the store recovers.
		if revertErr := d.campaigns.RevertRunning(ctx, campaignID, c.Status); revertErr != nil {
			logger.Error("Failed to revert campaign status after segment error", "campaign_id", campaignID, "error", revertErr)
		}
		return nil, fmt.Errorf("resolve segment: %w", err)
	}

	result := &model.DispatchResult{
		CampaignID:      campaignID,
		TotalRecipients: int64(len(recipients)),
	}

	if err := d.campaigns.SetTotalRecipients(ctx, campaignID, result.TotalRecipients); err != nil {
		logger.Error("Failed to persist recipient count", "campaign_id", campaignID, "error", err)
	}

	if len(recipients) == 0 {
		if err := d.campaigns.MarkCompleted(ctx, campaignID, 0, 0); err != nil {
			return nil, err
		}
		logger.Info("Campaign completed with empty segment", "campaign_id", campaignID)
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Every(d.sendInterval), 1)

	for _, contact := range recipients {
		status, err := d.campaigns.GetStatus(ctx, campaignID)
		if err != nil {
			logger.Error("Failed to read campaign status mid-run", "campaign_id", campaignID, "error", err)
		} else if status != model.CampaignRunning {
			result.Halted = true
			logger.Warn("Campaign run halted by external status change",
				"campaign_id", campaignID, "status", status,
				"sent", result.SentCount, "failed", result.FailedCount)
			return result, nil
		}

		if err := limiter.Wait(ctx); err != nil {
			result.Halted = true
			return result, err
		}

		body := template.Render(c.MessageTemplate, template.ContactFields(contact))

		res, sendErr := d.transport.Send(ctx, &gateway.SendRequest{To: contact.Phone, Body: body})
		if sendErr != nil || res == nil || !res.Success {
			result.FailedCount++
			prom.IncCampaignMessage("failed")
			logger.Warn("Campaign send failed", "campaign_id", campaignID, "contact_id", contact.ID, "error", sendErr)
		} else {
			result.SentCount++
			prom.IncCampaignMessage("sent")
			d.recordDelivery(ctx, c, contact, body, res)
		}

		if err := d.campaigns.UpdateCounts(ctx, campaignID, result.SentCount, result.FailedCount); err != nil {
			logger.Error("Failed to persist campaign counts", "campaign_id", campaignID, "error", err)
		}
	}

	if err := d.campaigns.MarkCompleted(ctx, campaignID, result.SentCount, result.FailedCount); err != nil {
		return result, err
	}

	prom.AddCampaignDispatchDuration(time.Since(start).Seconds())
	logger.Info("Campaign dispatch completed",
		"campaign_id", campaignID,
		"total", result.TotalRecipients,
		"sent", result.SentCount,
		"failed", result.FailedCount,
		"duration", time.Since(start))
	return result, nil
}

// recordDelivery writes the campaign message into the contact's
// conversation transcript and journey. Failures here never fail the
// send; the message is already out.
func (d *Dispatcher) recordDelivery(ctx context.Context, c *model.Campaign, contact *model.Contact, body string, res *gateway.SendResponse) {
	conversation, err := d.conversations.GetOpenByContact(ctx, contact.ID)
	if errors.Is(err, repository.ErrNotFound) {
		conversation, err = d.conversations.Create(ctx, &model.Conversation{
			ContactID:       contact.ID,
			Status:          model.ConversationActive,
			LastMessageFrom: model.SenderAgent,
		})
	}
	if err != nil {
		logger.Error("Failed to resolve conversation for campaign message", "contact_id", contact.ID, "error", err)
		return
	}

	msg := &model.Message{
		ConversationID: conversation.ID,
		SenderType:     model.SenderAgent,
		Content:        body,
		MessageType:    model.MessageTypeText,
		DeliveryStatus: model.DeliverySent,
		Metadata:       map[string]string{"campaign_id": fmt.Sprintf("%d", c.ID)},
	}
	if res.MessageID != "" {
		id := res.MessageID
		msg.ProviderMessageID = &id
	}
	if _, err := d.messages.Create(ctx, msg); err != nil {
		logger.Error("Failed to persist campaign message", "contact_id", contact.ID, "error", err)
	}

	if err := d.conversations.Touch(ctx, conversation.ID, model.SenderAgent, time.Now()); err != nil {
		logger.Error("Failed to touch conversation", "conversation_id", conversation.ID, "error", err)
	}

	if err := d.contacts.AppendJourneyEvent(ctx, contact.ID, model.JourneyCampaignMessage, map[string]string{
		"campaign_id": fmt.Sprintf("%d", c.ID),
	}); err != nil {
		logger.Error("Failed to append journey event", "contact_id", contact.ID, "error", err)
	}
}
