package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/pkg/pg"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	*pg.DB
}

func NewConversationRepository(db *pg.DB) *ConversationRepository {
	return &ConversationRepository{
		db,
	}
}

func (r *ConversationRepository) Create(ctx context.Context, c *model.Conversation) (*model.Conversation, error) {
	entity := toConversationEntity(c)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toConversationModel(entity), nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	var entity ConversationEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toConversationModel(&entity), nil
}

// GetOpenByContact returns the contact's current open conversation, if
// any. At most one such row is a maintained invariant; the newest row
// wins as a deterministic tie-break.
func (r *ConversationRepository) GetOpenByContact(ctx context.Context, contactID int64) (*model.Conversation, error) {
	statuses := make([]string, len(model.OpenConversationStatuses))
	for i, s := range model.OpenConversationStatuses {
		statuses[i] = string(s)
	}

	var entity ConversationEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("contact_id = ? AND status IN ?", contactID, statuses).
		Order("created_at DESC").
		First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toConversationModel(&entity), nil
}

// Transition applies a handover state change together with its
// bookkeeping fields in one write.
func (r *ConversationRepository) Transition(ctx context.Context, id int64, status model.ConversationStatus, from model.SenderType, reason *string, confidence *float64) error {
	updates := map[string]interface{}{
		"status":          string(status),
		"handover_reason": reason,
		"confidence":      confidence,
	}
	if from != "" {
		updates["last_message_from"] = string(from)
		updates["last_message_at"] = time.Now()
	}
	res := r.Write(ctx).WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch records the latest message activity on the conversation.
func (r *ConversationRepository) Touch(ctx context.Context, id int64, from model.SenderType, at time.Time) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_from": string(from),
			"last_message_at":   at,
		}).Error
}

func (r *ConversationRepository) List(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&ConversationEntity{})

	if f.ContactID != nil {
		q = q.Where("contact_id = ?", *f.ContactID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*ConversationEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toConversationModels(entities), total, nil
}
