package services

import (
	"context"
	"errors"

	"github.com/waveline/engage-gateway/internal/campaign"
	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/internal/repository"
	"github.com/waveline/engage-gateway/pkg/logger"
)

var ErrCampaignNotDispatchable = errors.New("campaign is not in a dispatchable state")

type CampaignRepository interface {
	Create(ctx context.Context, c *model.Campaign) (*model.Campaign, error)
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	GetStatus(ctx context.Context, id int64) (model.CampaignStatus, error)
	List(ctx context.Context, limit, offset int) ([]*model.Campaign, int64, error)
}

type CampaignService struct {
	campaignRepo CampaignRepository
	dispatcher   *campaign.Dispatcher
}

func NewCampaignService(campaignRepo CampaignRepository, dispatcher *campaign.Dispatcher) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		dispatcher:   dispatcher,
	}
}

func (s *CampaignService) Create(ctx context.Context, p model.CampaignCreateRequest) (*model.Campaign, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		Name:            p.Name,
		MessageTemplate: p.MessageTemplate,
		TargetTags:      p.TargetTags,
		ScheduledAt:     p.ScheduledAt,
	}
	return s.campaignRepo.Create(ctx, c)
}

func (s *CampaignService) Get(ctx context.Context, id int64) (*model.Campaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *CampaignService) List(ctx context.Context, limit, offset int) ([]*model.Campaign, int64, error) {
	return s.campaignRepo.List(ctx, limit, offset)
}

// Dispatch kicks a campaign run. The dispatchability check here is a
// fast answer for the API caller; the dispatcher's conditional status
// update remains the authoritative guard.
func (s *CampaignService) Dispatch(ctx context.Context, id int64) error {
	status, err := s.campaignRepo.GetStatus(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if status != model.CampaignDraft && status != model.CampaignScheduled {
		return ErrCampaignNotDispatchable
	}

	go func() {
		result, err := s.dispatcher.Execute(context.Background(), id)
		if err != nil {
			if errors.Is(err, campaign.ErrAlreadyRunning) {
				logger.Info("Campaign dispatch lost the run guard", "campaign_id", id)
				return
			}
			logger.Error("Campaign dispatch failed", "campaign_id", id, "error", err)
			return
		}
		logger.Info("Campaign dispatch finished",
			"campaign_id", id,
			"sent", result.SentCount,
			"failed", result.FailedCount,
			"halted", result.Halted)
	}()

	return nil
}
