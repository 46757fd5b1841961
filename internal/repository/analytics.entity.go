package repository

import (
	"time"

	"github.com/waveline/engage-gateway/internal/model"
)

type ClassificationRecordEntity struct {
	ID             int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ConversationID int64     `gorm:"column:conversation_id;not null;index"`
	Intent         string    `gorm:"column:intent"`
	Sentiment      string    `gorm:"column:sentiment"`
	Urgency        string    `gorm:"column:urgency"`
	Topics         []string  `gorm:"column:topics;serializer:json"`
	Confidence     float64   `gorm:"column:confidence"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ClassificationRecordEntity) TableName() string {
	return "classification_records"
}

func toClassificationRecordModel(e *ClassificationRecordEntity) *model.ClassificationRecord {
	if e == nil {
		return nil
	}
	return &model.ClassificationRecord{
		ID:             e.ID,
		ConversationID: e.ConversationID,
		Intent:         e.Intent,
		Sentiment:      e.Sentiment,
		Urgency:        e.Urgency,
		Topics:         e.Topics,
		Confidence:     e.Confidence,
		CreatedAt:      e.CreatedAt,
	}
}
