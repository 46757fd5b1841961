package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/pkg/pg"
	"gorm.io/gorm"
)

type CampaignRepository struct {
	*pg.DB
}

func NewCampaignRepository(db *pg.DB) *CampaignRepository {
	return &CampaignRepository{
		db,
	}
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error) {
	entity := toCampaignEntity(c)
	if entity.Status == "" {
		if entity.ScheduledAt != nil {
			entity.Status = string(model.CampaignScheduled)
		} else {
			entity.Status = string(model.CampaignDraft)
		}
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toCampaignModel(entity), nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	var entity CampaignEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toCampaignModel(&entity), nil
}

// GetStatus re-reads only the campaign status. The dispatcher polls it
// between recipients so an external pause halts the run.
func (r *CampaignRepository) GetStatus(ctx context.Context, id int64) (model.CampaignStatus, error) {
	var entity CampaignEntity
	err := r.Read(ctx).WithContext(ctx).Select("status").First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return model.CampaignStatus(entity.Status), nil
}

// MarkRunning transitions draft/scheduled -> running. The conditional
// UPDATE is the concurrency guard: it succeeds for exactly one caller,
// everyone else sees zero rows affected.
func (r *CampaignRepository) MarkRunning(ctx context.Context, id int64) (bool, error) {
	res := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND status IN ?", id, []string{string(model.CampaignDraft), string(model.CampaignScheduled)}).
		Updates(map[string]interface{}{
			"status":     string(model.CampaignRunning),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RevertRunning rolls a running campaign back to its pre-run status.
// The dispatcher uses it when a run aborts before any send happened,
// so a transient failure does not strand the campaign in running.
func (r *CampaignRepository) RevertRunning(ctx context.Context, id int64, to model.CampaignStatus) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND status = ?", id, string(model.CampaignRunning)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now(),
		}).Error
}

// SetTotalRecipients records the resolved segment size of the run.
func (r *CampaignRepository) SetTotalRecipients(ctx context.Context, id int64, total int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ?", id).
		UpdateColumn("total_recipients", total).Error
}

// UpdateCounts persists interim progress so it is observable mid-run.
func (r *CampaignRepository) UpdateCounts(ctx context.Context, id int64, sent, failed int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sent_count":   sent,
			"failed_count": failed,
		}).Error
}

// MarkCompleted finishes the run with its final counts. Only a running
// campaign completes; a run halted by an external status change leaves
// that status untouched.
func (r *CampaignRepository) MarkCompleted(ctx context.Context, id int64, sent, failed int64) error {
	res := r.Write(ctx).WithContext(ctx).
		Model(&CampaignEntity{}).
		Where("id = ? AND status = ?", id, string(model.CampaignRunning)).
		Updates(map[string]interface{}{
			"status":       string(model.CampaignCompleted),
			"sent_count":   sent,
			"failed_count": failed,
		})
	return res.Error
}

// ListDueScheduled returns scheduled campaigns whose scheduled_at has
// passed, for the cron scheduler.
func (r *CampaignRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*model.Campaign, error) {
	var entities []*CampaignEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", string(model.CampaignScheduled), now).
		Order("scheduled_at").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toCampaignModels(entities), nil
}

func (r *CampaignRepository) List(ctx context.Context, limit, offset int) ([]*model.Campaign, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&CampaignEntity{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entities []*CampaignEntity
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toCampaignModels(entities), total, nil
}
