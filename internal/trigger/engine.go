// Package trigger evaluates active automation rules against classified
// inbound events and executes their actions. Rules match independently
// of each other; one rule's failing action never blocks its siblings.
package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/waveline/engage-gateway/internal/model"
	"github.com/waveline/engage-gateway/pkg/logger"
	"github.com/waveline/engage-gateway/pkg/prom"
)

type TriggerRepository interface {
	ListActive(ctx context.Context) ([]*model.Trigger, error)
	IncrementExecutionCount(ctx context.Context, id int64) error
}

// ActionPayload is what an activated trigger hands to its action
// target.
type ActionPayload struct {
	Trigger        *model.Trigger        `json:"trigger"`
	Contact        *model.Contact        `json:"contact"`
	Conversation   *model.Conversation   `json:"conversation"`
	Classification *model.Classification `json:"classification"`
	Extra          map[string]string     `json:"extra,omitempty"`
}

// ActionExecutor performs one trigger action.
type ActionExecutor interface {
	Execute(ctx context.Context, action model.TriggerAction, payload ActionPayload) error
}

// Activation records the outcome of one matched trigger.
type Activation struct {
	TriggerID   int64
	TriggerName string
	ActionErr   error
}

type Engine struct {
	repo          TriggerRepository
	executor      ActionExecutor
	actionTimeout time.Duration
}

func NewEngine(repo TriggerRepository, executor ActionExecutor, actionTimeout time.Duration) *Engine {
	if actionTimeout == 0 {
		actionTimeout = 5 * time.Second
	}
	return &Engine{
		repo:          repo,
		executor:      executor,
		actionTimeout: actionTimeout,
	}
}

// Evaluate tests every active trigger against the event and executes
// the matches. It returns one Activation per match; a failed action is
// recorded on its Activation, never returned as an evaluation error.
func (e *Engine) Evaluate(ctx context.Context, c *model.Classification, contact *model.Contact, conversation *model.Conversation) ([]Activation, error) {
	triggers, err := e.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active triggers: %w", err)
	}

	var activations []Activation
	for _, t := range triggers {
		matched, err := Matches(t, c, contact)
		if err != nil {
			logger.Warn("Skipping trigger with invalid condition", "trigger", t.Name, "error", err)
			continue
		}
		if !matched {
			continue
		}

		prom.IncTriggerActivation(t.Name)

		// counted on match, best-effort
		if err := e.repo.IncrementExecutionCount(ctx, t.ID); err != nil {
			logger.Warn("Failed to increment execution count", "trigger", t.Name, "error", err)
		}

		activation := Activation{TriggerID: t.ID, TriggerName: t.Name}

		actionCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
		payload := ActionPayload{
			Trigger:        t,
			Contact:        contact,
			Conversation:   conversation,
			Classification: c,
			Extra:          t.Action.Payload,
		}
		if err := e.executor.Execute(actionCtx, t.Action, payload); err != nil {
			logger.Error("Trigger action failed", "trigger", t.Name, "error", err)
			activation.ActionErr = err
		}
		cancel()

		activations = append(activations, activation)
	}

	return activations, nil
}

// Matches tests a single trigger's conditions (all must hold) against
// the classification and contact. Unknown condition kinds are an error,
// not a silent non-match.
func Matches(t *model.Trigger, c *model.Classification, contact *model.Contact) (bool, error) {
	for _, cond := range t.Conditions {
		ok, err := matchCondition(cond, c, contact)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchCondition(cond model.TriggerCondition, c *model.Classification, contact *model.Contact) (bool, error) {
	switch cond.Kind {
	case model.ConditionKeyword:
		haystacks := make([]string, 0, len(c.Topics)+2)
		haystacks = append(haystacks, strings.ToLower(c.Intent))
		for _, topic := range c.Topics {
			haystacks = append(haystacks, strings.ToLower(topic))
		}
		for _, hint := range c.TriggerHints {
			haystacks = append(haystacks, strings.ToLower(hint))
		}
		for _, kw := range cond.Keywords {
			kw = strings.ToLower(kw)
			for _, h := range haystacks {
				if strings.Contains(h, kw) {
					return true, nil
				}
			}
		}
		return false, nil

	case model.ConditionIntentIs:
		return strings.EqualFold(c.Intent, cond.Value), nil

	case model.ConditionSentimentIs:
		return strings.EqualFold(c.Sentiment, cond.Value), nil

	case model.ConditionUrgencyIs:
		return strings.EqualFold(c.Urgency, cond.Value), nil

	case model.ConditionConfidenceOver:
		return c.Confidence >= cond.Threshold, nil

	case model.ConditionContactHasTag:
		if contact == nil {
			return false, nil
		}
		for _, tag := range contact.Tags {
			if tag == cond.Value {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown condition kind %q", cond.Kind)
	}
}
