package model

import "time"

// ConversationStatus is the primary state machine of a conversation.
// A conversation starts active, moves to ai_handled or agent_assigned
// depending on each inbound message's classification confidence, and
// never returns to active. Closing is an administrative action.
type ConversationStatus string

const (
	ConversationActive        ConversationStatus = "active"
	ConversationAIHandled     ConversationStatus = "ai_handled"
	ConversationAgentAssigned ConversationStatus = "agent_assigned"
	ConversationClosed        ConversationStatus = "closed"
)

// OpenConversationStatuses are the statuses under which new inbound
// messages reuse the conversation instead of creating a new one.
var OpenConversationStatuses = []ConversationStatus{
	ConversationActive,
	ConversationAIHandled,
	ConversationAgentAssigned,
}

type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAgent    SenderType = "agent"
	SenderAI       SenderType = "ai"
)

const HandoverReasonLowConfidence = "low_confidence"

type Conversation struct {
	ID              int64              `json:"id"`
	ContactID       int64              `json:"contact_id"`
	Status          ConversationStatus `json:"status"`
	LastMessageAt   time.Time          `json:"last_message_at"`
	LastMessageFrom SenderType         `json:"last_message_from"`
	AssignedAgentID *int64             `json:"assigned_agent_id,omitempty"`
	HandoverReason  *string            `json:"handover_reason,omitempty"`
	Confidence      *float64           `json:"confidence,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ConversationFilter controls List queries.
type ConversationFilter struct {
	ContactID *int64
	Statuses  []ConversationStatus
	Limit     int
	Offset    int
	Desc      bool
}
