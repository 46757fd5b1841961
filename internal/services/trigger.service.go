package services

import (
	"context"
	"errors"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/repository"
)

type TriggerRepository interface {
	Create(ctx context.Context, t *model.Trigger) (*model.Trigger, error)
	GetByID(ctx context.Context, id int64) (*model.Trigger, error)
	List(ctx context.Context, limit, offset int) ([]*model.Trigger, int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type TriggerService struct {
	triggerRepo TriggerRepository
}

func NewTriggerService(triggerRepo TriggerRepository) *TriggerService {
	return &TriggerService{triggerRepo: triggerRepo}
}

func (s *TriggerService) Create(ctx context.Context, t *model.Trigger) (*model.Trigger, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.IsActive = true
	t.ExecutionCount = 0
	return s.triggerRepo.Create(ctx, t)
}

func (s *TriggerService) Get(ctx context.Context, id int64) (*model.Trigger, error) {
	t, err := s.triggerRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *TriggerService) List(ctx context.Context, limit, offset int) ([]*model.Trigger, int64, error) {
	return s.triggerRepo.List(ctx, limit, offset)
}

func (s *TriggerService) SetActive(ctx context.Context, id int64, active bool) error {
	err := s.triggerRepo.SetActive(ctx, id, active)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
