package repository

import (
	"time"

	"github.com/waveline/engage-gateway/internal/model"
)

type MessageEntity struct {
	ID                int64             `gorm:"primaryKey;autoIncrement;column:id"`
	ConversationID    int64             `gorm:"column:conversation_id;not null;index"`
	SenderType        string            `gorm:"column:sender_type;not null"`
	Content           string            `gorm:"column:content"`
	MessageType       string            `gorm:"column:message_type;not null"`
	DeliveryStatus    string            `gorm:"column:delivery_status"`
	ProviderMessageID *string           `gorm:"column:provider_message_id"`
	Metadata          map[string]string `gorm:"column:metadata;serializer:json"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (MessageEntity) TableName() string {
	return "messages"
}

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	return &MessageEntity{
		ID:                m.ID,
		ConversationID:    m.ConversationID,
		SenderType:        string(m.SenderType),
		Content:           m.Content,
		MessageType:       string(m.MessageType),
		DeliveryStatus:    string(m.DeliveryStatus),
		ProviderMessageID: m.ProviderMessageID,
		Metadata:          m.Metadata,
		CreatedAt:         m.CreatedAt,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	return &model.Message{
		ID:                e.ID,
		ConversationID:    e.ConversationID,
		SenderType:        model.SenderType(e.SenderType),
		Content:           e.Content,
		MessageType:       model.MessageType(e.MessageType),
		DeliveryStatus:    model.DeliveryStatus(e.DeliveryStatus),
		ProviderMessageID: e.ProviderMessageID,
		Metadata:          e.Metadata,
		CreatedAt:         e.CreatedAt,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	if entities == nil {
		return nil
	}
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
