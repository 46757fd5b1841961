// Package analysis is the boundary to the natural-language analysis
// service. Two backends exist (an HTTP service and the OpenAI chat
// API); SafeClassifier wraps either so that a backend failure degrades
// to neutral defaults instead of propagating.
package analysis

import (
	"context"

	"github.com/waveline/engage-gateway/internal/model"
)

// ClassifyRequest carries the inbound text plus bounded conversation
// context for classification.
type ClassifyRequest struct {
	Text            string           `json:"text"`
	ContextMessages []ContextMessage `json:"contextMessages"`
	Contact         *model.Contact   `json:"contact"`
}

type ContextMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Classifier is the analysis service contract used by the intake
// pipeline and the handover decision.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (*model.Classification, error)
	GenerateReply(ctx context.Context, c *model.Classification, contact *model.Contact, history []*model.Message) (string, error)
}

// ContextFromMessages converts a transcript window into the wire shape
// the backends expect.
func ContextFromMessages(history []*model.Message) []ContextMessage {
	out := make([]ContextMessage, 0, len(history))
	for _, m := range history {
		out = append(out, ContextMessage{
			Sender: string(m.SenderType),
			Text:   m.Content,
		})
	}
	return out
}
