package analysis

import (
	"context"
	"time"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/pkg/logger"
)

// SafeClassifier enforces the degrade-never-throw contract of the
// analysis boundary: classification failures yield the neutral default
// and reply generation falls back to the suggested response from the
// classification. Every call is bounded by the configured timeout.
type SafeClassifier struct {
	inner   Classifier
	timeout time.Duration
}

func NewSafeClassifier(inner Classifier, timeout time.Duration) *SafeClassifier {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SafeClassifier{inner: inner, timeout: timeout}
}

func (s *SafeClassifier) Classify(ctx context.Context, req ClassifyRequest) (*model.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	c, err := s.inner.Classify(ctx, req)
	if err != nil {
		logger.Warn("classification failed, using neutral defaults", "error", err)
		return model.NeutralClassification(), nil
	}
	if c == nil {
		return model.NeutralClassification(), nil
	}
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}
	return c, nil
}

func (s *SafeClassifier) GenerateReply(ctx context.Context, cl *model.Classification, contact *model.Contact, history []*model.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.inner.GenerateReply(ctx, cl, contact, history)
	if err != nil || reply == "" {
		if err != nil {
			logger.Warn("reply generation failed, falling back to suggested response", "error", err)
		}
		return cl.SuggestedReply, nil
	}
	return reply, nil
}
