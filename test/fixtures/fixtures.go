package fixtures

import (
	"time"

	"github.com/waveline/engage-gateway/internal/model"
)

var (
	TestContactPlain = model.Contact{
		ID:    1,
		Phone: "15550000001",
		Name:  "Ada Byron",
	}

	TestContactVIP = model.Contact{
		ID:      2,
		Phone:   "15550000002",
		Name:    "Grace Hopper",
		Company: "Navy",
		Tags:    []string{"vip", "enterprise"},
	}

	TestContactChurned = model.Contact{
		ID:    3,
		Phone: "15550000003",
		Name:  "Alan Kay",
		Tags:  []string{"churned"},
	}
)

func NewInboundEvent(from, text string) model.InboundEvent {
	return model.InboundEvent{
		From:              from,
		Text:              text,
		Type:              model.MessageTypeText,
		ProviderMessageID: "wamid.test-" + from,
		ReceivedAt:        time.Now(),
	}
}

func NewTestConversation(contactID int64, status model.ConversationStatus) *model.Conversation {
	return &model.Conversation{
		ContactID:       contactID,
		Status:          status,
		LastMessageFrom: model.SenderCustomer,
		LastMessageAt:   time.Now(),
	}
}

func NewTestMessage(conversationID int64, sender model.SenderType, content string) *model.Message {
	return &model.Message{
		ConversationID: conversationID,
		SenderType:     sender,
		Content:        content,
		MessageType:    model.MessageTypeText,
		DeliveryStatus: model.DeliveryReceived,
		CreatedAt:      time.Now(),
	}
}

func NewClassification(intent string, confidence float64) *model.Classification {
	return &model.Classification{
		Intent:     intent,
		Sentiment:  "neutral",
		Urgency:    "medium",
		Topics:     []string{intent},
		Confidence: confidence,
	}
}

func NewKeywordTrigger(name string, keywords ...string) *model.Trigger {
	return &model.Trigger{
		Name:      name,
		EventType: "message_received",
		Conditions: []model.TriggerCondition{
			{Kind: model.ConditionKeyword, Keywords: keywords},
		},
		Action:   model.TriggerAction{Kind: model.ActionWebhook, URL: "http://crm.local/hook"},
		IsActive: true,
	}
}

func NewTestCampaign(name string, tags []string) *model.Campaign {
	return &model.Campaign{
		Name:            name,
		MessageTemplate: "Hi {{name}}, we have news for {{company}}.",
		TargetTags:      tags,
		Status:          model.CampaignDraft,
	}
}

var (
	ValidPhoneNumbers = []string{
		"+12025550123",
		"+442071838750",
		"+4915112345678",
	}

	InvalidPhoneNumbers = []string{
		"",
		"123",
		"invalid",
		"+",
		"abc123",
	}
)

func MessageFilterByConversation(conversationID int64) model.MessageFilter {
	return model.MessageFilter{
		ConversationID: &conversationID,
		Limit:          50,
		Offset:         0,
		Desc:           false,
	}
}

func ConversationFilterByContact(contactID int64) model.ConversationFilter {
	return model.ConversationFilter{
		ContactID: &contactID,
		Limit:     50,
		Offset:    0,
	}
}
