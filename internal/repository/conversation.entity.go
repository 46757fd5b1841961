package repository

import (
	"time"

	"github.com/waveline/engage-gateway/internal/model"
)

type ConversationEntity struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ContactID       int64     `gorm:"column:contact_id;not null;index"`
	Status          string    `gorm:"column:status;not null;index"`
	LastMessageAt   time.Time `gorm:"column:last_message_at"`
	LastMessageFrom string    `gorm:"column:last_message_from"`
	AssignedAgentID *int64    `gorm:"column:assigned_agent_id"`
	HandoverReason  *string   `gorm:"column:handover_reason"`
	Confidence      *float64  `gorm:"column:confidence"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ConversationEntity) TableName() string {
	return "conversations"
}

func toConversationEntity(c *model.Conversation) *ConversationEntity {
	if c == nil {
		return nil
	}
	return &ConversationEntity{
		ID:              c.ID,
		ContactID:       c.ContactID,
		Status:          string(c.Status),
		LastMessageAt:   c.LastMessageAt,
		LastMessageFrom: string(c.LastMessageFrom),
		AssignedAgentID: c.AssignedAgentID,
		HandoverReason:  c.HandoverReason,
		Confidence:      c.Confidence,
		CreatedAt:       c.CreatedAt,
	}
}

func toConversationModel(e *ConversationEntity) *model.Conversation {
	if e == nil {
		return nil
	}
	return &model.Conversation{
		ID:              e.ID,
		ContactID:       e.ContactID,
		Status:          model.ConversationStatus(e.Status),
		LastMessageAt:   e.LastMessageAt,
		LastMessageFrom: model.SenderType(e.LastMessageFrom),
		AssignedAgentID: e.AssignedAgentID,
		HandoverReason:  e.HandoverReason,
		Confidence:      e.Confidence,
		CreatedAt:       e.CreatedAt,
	}
}

func toConversationModels(entities []*ConversationEntity) []*model.Conversation {
	if entities == nil {
		return nil
	}
	models := make([]*model.Conversation, len(entities))
	for i, e := range entities {
		models[i] = toConversationModel(e)
	}
	return models
}
