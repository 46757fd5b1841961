package model

import "time"

// Classification is the structured result of analyzing one inbound
// message. It is produced by the analysis boundary and consumed by the
// trigger engine and the handover decision.
type Classification struct {
	Intent         string   `json:"intent"`
	Sentiment      string   `json:"sentiment"`
	Urgency        string   `json:"urgency"`
	Topics         []string `json:"topics"`
	Confidence     float64  `json:"confidence"` // 0.0 - 1.0
	SuggestedReply string   `json:"suggested_response"`
	TriggerHints   []string `json:"triggers"`
}

// NeutralClassification is the safe default used when the analysis
// service fails or times out.
func NeutralClassification() *Classification {
	return &Classification{
		Intent:     "unknown",
		Sentiment:  "neutral",
		Urgency:    "normal",
		Confidence: 0.5,
	}
}

// ClassificationRecord is the write-only analytics row associating a
// classification with its conversation. The intake pipeline writes it
// and never reads it back.
type ClassificationRecord struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Intent         string    `json:"intent"`
	Sentiment      string    `json:"sentiment"`
	Urgency        string    `json:"urgency"`
	Topics         []string  `json:"topics"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}
