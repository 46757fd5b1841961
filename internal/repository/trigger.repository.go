package repository

import (
	"context"
	"errors"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/pkg/pg"
	"gorm.io/gorm"
)

type TriggerRepository struct {
	*pg.DB
}

func NewTriggerRepository(db *pg.DB) *TriggerRepository {
	return &TriggerRepository{
		db,
	}
}

func (r *TriggerRepository) Create(ctx context.Context, t *model.Trigger) (*model.Trigger, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	entity := toTriggerEntity(t)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTriggerModel(entity), nil
}

func (r *TriggerRepository) GetByID(ctx context.Context, id int64) (*model.Trigger, error) {
	var entity TriggerEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toTriggerModel(&entity), nil
}

// ListActive returns every trigger eligible for evaluation.
func (r *TriggerRepository) ListActive(ctx context.Context) ([]*model.Trigger, error) {
	var entities []*TriggerEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("is_active = ?", true).
		Order("id").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toTriggerModels(entities), nil
}

func (r *TriggerRepository) List(ctx context.Context, limit, offset int) ([]*model.Trigger, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TriggerEntity{})

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

	var entities []*TriggerEntity
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toTriggerModels(entities), total, nil
}

// IncrementExecutionCount bumps the activation counter by one. The
// increment runs as a single relative UPDATE, so concurrent activations
// never lose each other's increments.
func (r *TriggerRepository) IncrementExecutionCount(ctx context.Context, id int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&TriggerEntity{}).
		Where("id = ?", id).
		UpdateColumn("execution_count", gorm.Expr("execution_count + ?", 1)).Error
}

// ResetExecutionCount is the only sanctioned way to decrease the
// counter.
func (r *TriggerRepository) ResetExecutionCount(ctx context.Context, id int64) error {
	return r.Write(ctx).WithContext(ctx).
		Model(&TriggerEntity{}).
		Where("id = ?", id).
		UpdateColumn("execution_count", 0).Error
}

func (r *TriggerRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.Write(ctx).WithContext(ctx).
		Model(&TriggerEntity{}).
		Where("id = ?", id).
		UpdateColumn("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
