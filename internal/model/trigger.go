package model

import (
	"fmt"
	"time"
)

// ConditionKind enumerates the closed set of supported trigger
// predicates. Unknown kinds are rejected at evaluation time instead of
// silently matching nothing.
type ConditionKind string

const (
	ConditionKeyword        ConditionKind = "keyword"
	ConditionIntentIs       ConditionKind = "intent_is"
	ConditionSentimentIs    ConditionKind = "sentiment_is"
	ConditionUrgencyIs      ConditionKind = "urgency_is"
	ConditionConfidenceOver ConditionKind = "confidence_over"
	ConditionContactHasTag  ConditionKind = "contact_has_tag"
)

// TriggerCondition is a tagged predicate. Only the fields relevant to
// its Kind are consulted.
type TriggerCondition struct {
	Kind      ConditionKind `json:"kind"`
	Keywords  []string      `json:"keywords,omitempty"`  // keyword: any-of, case-insensitive substring
	Value     string        `json:"value,omitempty"`     // intent_is / sentiment_is / urgency_is / contact_has_tag
	Threshold float64       `json:"threshold,omitempty"` // confidence_over
}

func (c TriggerCondition) Validate() error {
	switch c.Kind {
	case ConditionKeyword:
		if len(c.Keywords) == 0 {
			return fmt.Errorf("keyword condition requires at least one keyword")
		}
	case ConditionIntentIs, ConditionSentimentIs, ConditionUrgencyIs, ConditionContactHasTag:
		if c.Value == "" {
			return fmt.Errorf("%s condition requires a value", c.Kind)
		}
	case ConditionConfidenceOver:
		if c.Threshold < 0 || c.Threshold > 1 {
			return fmt.Errorf("confidence threshold must be within [0,1]")
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return nil
}

// ActionKind enumerates the closed set of supported trigger actions.
type ActionKind string

const (
	// ActionWebhook posts contact/conversation/classification context to
	// an external automation target.
	ActionWebhook ActionKind = "webhook"
	// ActionNone records the activation without side effects.
	ActionNone ActionKind = "none"
)

// TriggerAction describes what an activated trigger does. Payload is an
// opaque key-value escape hatch merged into the webhook body for
// forward compatibility.
type TriggerAction struct {
	Kind    ActionKind        `json:"kind"`
	URL     string            `json:"url,omitempty"`
	Payload map[string]string `json:"payload,omitempty"`
}

func (a TriggerAction) Validate() error {
	switch a.Kind {
	case ActionWebhook:
		if a.URL == "" {
			return fmt.Errorf("webhook action requires a url")
		}
	case ActionNone:
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

// Trigger is a named automation rule evaluated against classified
// inbound events. ExecutionCount is a monotonically increasing counter,
// not a precise audit log.
type Trigger struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	EventType      string             `json:"event_type"`
	Conditions     []TriggerCondition `json:"conditions"`
	Action         TriggerAction      `json:"action"`
	IsActive       bool               `json:"is_active"`
	ExecutionCount int64              `json:"execution_count"`
	CreatedAt      time.Time          `json:"created_at"`
}

func (t *Trigger) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(t.Conditions) == 0 {
		return fmt.Errorf("at least one condition is required")
	}
	for _, c := range t.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return t.Action.Validate()
}
