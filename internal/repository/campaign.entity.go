package repository

import (
	"time"

	"github.com/waveline/engage-gateway/internal/model"
)

type CampaignEntity struct {
	ID              int64      `gorm:"primaryKey;autoIncrement;column:id"`
	Name            string     `gorm:"column:name;not null"`
	MessageTemplate string     `gorm:"column:message_template;not null"`
	TargetTags      []string   `gorm:"column:target_tags;serializer:json"`
	ScheduledAt     *time.Time `gorm:"column:scheduled_at"`
	Status          string     `gorm:"column:status;not null;index"`
	TotalRecipients int64      `gorm:"column:total_recipients;not null;default:0"`
	SentCount       int64      `gorm:"column:sent_count;not null;default:0"`
	FailedCount     int64      `gorm:"column:failed_count;not null;default:0"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (CampaignEntity) TableName() string {
	return "campaigns"
}

func toCampaignEntity(c *model.Campaign) *CampaignEntity {
	if c == nil {
		return nil
	}
	return &CampaignEntity{
		ID:              c.ID,
		Name:            c.Name,
		MessageTemplate: c.MessageTemplate,
		TargetTags:      c.TargetTags,
		ScheduledAt:     c.ScheduledAt,
		Status:          string(c.Status),
		TotalRecipients: c.TotalRecipients,
		SentCount:       c.SentCount,
		FailedCount:     c.FailedCount,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func toCampaignModel(e *CampaignEntity) *model.Campaign {
	if e == nil {
		return nil
	}
	return &model.Campaign{
		ID:              e.ID,
		Name:            e.Name,
		MessageTemplate: e.MessageTemplate,
		TargetTags:      e.TargetTags,
		ScheduledAt:     e.ScheduledAt,
		Status:          model.CampaignStatus(e.Status),
		TotalRecipients: e.TotalRecipients,
		SentCount:       e.SentCount,
		FailedCount:     e.FailedCount,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toCampaignModels(entities []*CampaignEntity) []*model.Campaign {
	if entities == nil {
		return nil
	}
	models := make([]*model.Campaign, len(entities))
	for i, e := range entities {
		models[i] = toCampaignModel(e)
	}
	return models
}
