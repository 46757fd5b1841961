package model

import (
	"errors"
	"time"
)

// MessageType is the modality of a message. The intake pipeline only
// classifies text; other modalities are persisted and left alone.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeAudio MessageType = "audio"
)

type DeliveryStatus string

const (
	DeliveryReceived DeliveryStatus = "received"
	DeliverySent     DeliveryStatus = "sent"
	DeliveryFailed   DeliveryStatus = "failed"
)

// Message is one entry of a conversation transcript. Rows are
// append-only; ordering by created_at is the transcript order.
type Message struct {
	ID                int64             `json:"id"`
	ConversationID    int64             `json:"conversation_id"`
	SenderType        SenderType        `json:"sender_type"`
	Content           string            `json:"content"`
	MessageType       MessageType       `json:"message_type"`
	DeliveryStatus    DeliveryStatus    `json:"delivery_status"`
	ProviderMessageID *string           `json:"provider_message_id,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (m *Message) Validate() error {
	if m.ConversationID == 0 {
		return errors.New("conversation_id is required")
	}
	if m.SenderType == "" {
		return errors.New("sender_type is required")
	}
	return nil
}

// MessageFilter controls List queries.
type MessageFilter struct {
	ConversationID *int64
	SenderType     *SenderType
	From           *time.Time
	To             *time.Time
	Limit          int // default 50
	Offset         int
	Desc           bool // order by created_at
}

// InboundEvent is the normalized webhook payload from the messaging
// provider, as enqueued by the API process for the intake worker.
type InboundEvent struct {
	From              string      `json:"from"` // E.164 without '+'
	Text              string      `json:"text"`
	Type              MessageType `json:"type"`
	ProviderMessageID string      `json:"provider_message_id"`
	ReceivedAt        time.Time   `json:"received_at"`
}

func (e InboundEvent) Validate() error {
	if e.From == "" {
		return errors.New("from is required")
	}
	if e.ProviderMessageID == "" {
		return errors.New("provider_message_id is required")
	}
	if e.Type == "" {
		return errors.New("type is required")
	}
	return nil
}
