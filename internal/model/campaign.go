package model

import (
	"errors"
	"time"
)

// CampaignStatus is the campaign lifecycle. Transitions are forward
// only: draft/scheduled -> running -> completed. The dispatcher never
// transitions into paused; that is an administrative action, but a
// paused campaign halts an in-flight run at the next recipient
// boundary.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignRunning   CampaignStatus = "running"
	CampaignCompleted CampaignStatus = "completed"
	CampaignPaused    CampaignStatus = "paused"
)

type Campaign struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	MessageTemplate string         `json:"message_template"`
	TargetTags      []string       `json:"target_tags"` // empty = all contacts
	ScheduledAt     *time.Time     `json:"scheduled_at,omitempty"`
	Status          CampaignStatus `json:"status"`
	TotalRecipients int64          `json:"total_recipients"`
	SentCount       int64          `json:"sent_count"`
	FailedCount     int64          `json:"failed_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// CreateParams is the input for creating a campaign.
type CampaignCreateRequest struct {
	Name            string
	MessageTemplate string
	TargetTags      []string
	ScheduledAt     *time.Time
}

func (p CampaignCreateRequest) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.MessageTemplate == "" {
		return errors.New("message_template is required")
	}
	return nil
}

// DispatchResult is the outcome of one campaign run.
type DispatchResult struct {
	CampaignID      int64 `json:"campaign_id"`
	TotalRecipients int64 `json:"total_recipients"`
	SentCount       int64 `json:"sent_count"`
	FailedCount     int64 `json:"failed_count"`
	Halted          bool  `json:"halted,omitempty"` // external status change stopped the run
}
