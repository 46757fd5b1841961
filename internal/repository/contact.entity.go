package repository

import (
	"time"

	"github.com/waveline/engage-gateway/internal/model"
)

type ContactEntity struct {
	ID        int64             `gorm:"primaryKey;autoIncrement;column:id"`
	Phone     string            `gorm:"column:phone;not null;uniqueIndex"`
	Name      string            `gorm:"column:name"`
	Company   string            `gorm:"column:company"`
	Email     string            `gorm:"column:email"`
	Tags      []string          `gorm:"column:tags;serializer:json"`
	Metadata  map[string]string `gorm:"column:metadata;serializer:json"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (ContactEntity) TableName() string {
	return "contacts"
}

type JourneyEventEntity struct {
	ID        int64             `gorm:"primaryKey;autoIncrement;column:id"`
	ContactID int64             `gorm:"column:contact_id;not null;index"`
	Kind      string            `gorm:"column:kind;not null"`
	Payload   map[string]string `gorm:"column:payload;serializer:json"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (JourneyEventEntity) TableName() string {
	return "journey_events"
}

func toContactEntity(c *model.Contact) *ContactEntity {
	if c == nil {
		return nil
	}
	return &ContactEntity{
		ID:        c.ID,
		Phone:     c.Phone,
		Name:      c.Name,
		Company:   c.Company,
		Email:     c.Email,
		Tags:      c.Tags,
		Metadata:  c.Metadata,
		CreatedAt: c.CreatedAt,
	}
}

func toContactModel(e *ContactEntity) *model.Contact {
	if e == nil {
		return nil
	}
	return &model.Contact{
		ID:        e.ID,
		Phone:     e.Phone,
		Name:      e.Name,
		Company:   e.Company,
		Email:     e.Email,
		Tags:      e.Tags,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}

func toContactModels(entities []*ContactEntity) []*model.Contact {
	if entities == nil {
		return nil
	}
	models := make([]*model.Contact, len(entities))
	for i, e := range entities {
		models[i] = toContactModel(e)
	}
	return models
}

func toJourneyEventModel(e *JourneyEventEntity) *model.JourneyEvent {
	if e == nil {
		return nil
	}
	return &model.JourneyEvent{
		ID:        e.ID,
		ContactID: e.ContactID,
		Kind:      model.JourneyEventKind(e.Kind),
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}
