package campaign

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/pkg/logger"
)

type ScheduledLister interface {
	ListDueScheduled(ctx context.Context, now time.Time) ([]*model.Campaign, error)
}

// Scheduler periodically scans for scheduled campaigns whose time has
// come and hands them to the dispatcher. Missing a tick is harmless: a
// due campaign stays due until dispatched.
type Scheduler struct {
	campaigns  ScheduledLister
	dispatcher *Dispatcher
	spec       string
	cron       *cron.Cron
}

func NewScheduler(campaigns ScheduledLister, dispatcher *Dispatcher, spec string) *Scheduler {
	if spec == "" {
		spec = "@every 1m"
	}
	return &Scheduler{
		campaigns:  campaigns,
		dispatcher: dispatcher,
		spec:       spec,
		cron:       cron.New(),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("Campaign scheduler started", "spec", s.spec)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Campaign scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx := context.Background()

	due, err := s.campaigns.ListDueScheduled(ctx, time.Now())
	if err != nil {
		logger.Error("Failed to list due campaigns", "error", err)
		return
	}

	for _, c := range due {
		logger.Info("Dispatching scheduled campaign", "campaign_id", c.ID, "name", c.Name, "scheduled_at", c.ScheduledAt)
		if _, err := s.dispatcher.Execute(ctx, c.ID); err != nil {
			// another worker's scheduler may have won the run guard
			if errors.Is(err, ErrAlreadyRunning) {
				logger.Info("Scheduled campaign already picked up", "campaign_id", c.ID)
				continue
			}
			logger.Error("Scheduled campaign dispatch failed", "campaign_id", c.ID, "error", err)
		}
	}
}
