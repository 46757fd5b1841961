package repository

import (
	"time"

	"github.com/waveline/engage-gateway/internal/model"
)

type TriggerEntity struct {
	ID             int64                    `gorm:"primaryKey;autoIncrement;column:id"`
	Name           string                   `gorm:"column:name;not null;uniqueIndex"`
	EventType      string                   `gorm:"column:event_type;not null"`
	Conditions     []model.TriggerCondition `gorm:"column:conditions;serializer:json"`
	Action         model.TriggerAction      `gorm:"column:action;serializer:json"`
	IsActive       bool                     `gorm:"column:is_active;not null;index"`
	ExecutionCount int64                    `gorm:"column:execution_count;not null;default:0"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (TriggerEntity) TableName() string {
	return "triggers"
}

func toTriggerEntity(t *model.Trigger) *TriggerEntity {
	if t == nil {
		return nil
	}
	return &TriggerEntity{
		ID:             t.ID,
		Name:           t.Name,
		EventType:      t.EventType,
		Conditions:     t.Conditions,
		Action:         t.Action,
		IsActive:       t.IsActive,
		ExecutionCount: t.ExecutionCount,
		CreatedAt:      t.CreatedAt,
	}
}

func toTriggerModel(e *TriggerEntity) *model.Trigger {
	if e == nil {
		return nil
	}
	return &model.Trigger{
		ID:             e.ID,
		Name:           e.Name,
		EventType:      e.EventType,
		Conditions:     e.Conditions,
		Action:         e.Action,
		IsActive:       e.IsActive,
		ExecutionCount: e.ExecutionCount,
		CreatedAt:      e.CreatedAt,
	}
}

func toTriggerModels(entities []*TriggerEntity) []*model.Trigger {
	if entities == nil {
		return nil
	}
	models := make([]*model.Trigger, len(entities))
	for i, e := range entities {
		models[i] = toTriggerModel(e)
	}
	return models
}
