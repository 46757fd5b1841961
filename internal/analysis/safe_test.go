package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waveline/engage-gateway/internal/model"
)

type stubBackend struct {
	classification *model.Classification
	classifyErr    error
	reply          string
	replyErr       error
}

func (s *stubBackend) Classify(ctx context.Context, req ClassifyRequest) (*model.Classification, error) {
	return s.classification, s.classifyErr
}

func (s *stubBackend) GenerateReply(ctx context.Context, c *model.Classification, contact *model.Contact, history []*model.Message) (string, error) {
	return s.reply, s.replyErr
}

func TestSafeClassifier_Classify(t *testing.T) {
	t.Run("passes through a good classification", func(t *testing.T) {
		inner := &stubBackend{classification: &model.Classification{Intent: "order_status", Confidence: 0.9}}
		safe := NewSafeClassifier(inner, time.Second)

		c, err := safe.Classify(context.Background(), ClassifyRequest{Text: "where is my order"})
		require.NoError(t, err)
		assert.Equal(t, "order_status", c.Intent)
		assert.Equal(t, 0.9, c.Confidence)
	})

	t.Run("backend error degrades to neutral defaults", func(t *testing.T) {
		inner := &stubBackend{classifyErr: errors.New("service unavailable")}
		safe := NewSafeClassifier(inner, time.Second)

		c, err := safe.Classify(context.Background(), ClassifyRequest{Text: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "unknown", c.Intent)
		assert.Equal(t, "neutral", c.Sentiment)
		assert.Equal(t, "normal", c.Urgency)
		assert.Equal(t, 0.5, c.Confidence)
	})

	t.Run("nil classification degrades to neutral defaults", func(t *testing.T) {
		safe := NewSafeClassifier(&stubBackend{}, time.Second)

		c, err := safe.Classify(context.Background(), ClassifyRequest{Text: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "unknown", c.Intent)
	})

	t.Run("confidence is clamped into [0,1]", func(t *testing.T) {
		safe := NewSafeClassifier(&stubBackend{classification: &model.Classification{Confidence: 1.7}}, time.Second)
		c, err := safe.Classify(context.Background(), ClassifyRequest{})
		require.NoError(t, err)
		assert.Equal(t, 1.0, c.Confidence)

		safe = NewSafeClassifier(&stubBackend{classification: &model.Classification{Confidence: -0.3}}, time.Second)
		c, err = safe.Classify(context.Background(), ClassifyRequest{})
		require.NoError(t, err)
		assert.Equal(t, 0.0, c.Confidence)
	})
}

func TestSafeClassifier_GenerateReply(t *testing.T) {
	classification := &model.Classification{
		Intent:         "order_status",
		SuggestedReply: "Your order ships tomorrow.",
	}

	t.Run("passes through the backend reply", func(t *testing.T) {
		safe := NewSafeClassifier(&stubBackend{reply: "generated reply"}, time.Second)
		reply, err := safe.GenerateReply(context.Background(), classification, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "generated reply", reply)
	})

	t.Run("backend error falls back to the suggested reply", func(t *testing.T) {
		safe := NewSafeClassifier(&stubBackend{replyErr: errors.New("timeout")}, time.Second)
		reply, err := safe.GenerateReply(context.Background(), classification, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "Your order ships tomorrow.", reply)
	})

	t.Run("empty backend reply falls back to the suggested reply", func(t *testing.T) {
		safe := NewSafeClassifier(&stubBackend{reply: ""}, time.Second)
		reply, err := safe.GenerateReply(context.Background(), classification, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "Your order ships tomorrow.", reply)
	})

	t.Run("no reply anywhere yields empty", func(t *testing.T) {
		safe := NewSafeClassifier(&stubBackend{replyErr: errors.New("down")}, time.Second)
		reply, err := safe.GenerateReply(context.Background(), &model.Classification{}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "", reply)
	})
}

func TestContextFromMessages(t *testing.T) {
	history := []*model.Message{
		{SenderType: model.SenderCustomer, Content: "hi"},
		{SenderType: model.SenderAI, Content: "hello, how can I help"},
	}

	out := ContextFromMessages(history)
	require.Len(t, out, 2)
	assert.Equal(t, "customer", out[0].Sender)
	assert.Equal(t, "hi", out[0].Text)
	assert.Equal(t, "ai", out[1].Sender)
}
