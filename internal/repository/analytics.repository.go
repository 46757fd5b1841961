package repository

import (
	"context"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/pkg/pg"
)

// AnalyticsRepository is write-mostly: the intake pipeline records each
// classification and nothing in the core reads it back.
type AnalyticsRepository struct {
	*pg.DB
}

func NewAnalyticsRepository(db *pg.DB) *AnalyticsRepository {
	return &AnalyticsRepository{
		db,
	}
}

func (r *AnalyticsRepository) RecordClassification(ctx context.Context, conversationID int64, c *model.Classification) (*model.ClassificationRecord, error) {
	entity := &ClassificationRecordEntity{
		ConversationID: conversationID,
		Intent:         c.Intent,
		Sentiment:      c.Sentiment,
		Urgency:        c.Urgency,
		Topics:         c.Topics,
		Confidence:     c.Confidence,
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toClassificationRecordModel(entity), nil
}
