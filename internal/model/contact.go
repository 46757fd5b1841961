package model

import (
	"errors"
	"time"
)

type Contact struct {
	ID        int64             `json:"id"`
	Phone     string            `json:"phone"` // E.164 without '+'
	Name      string            `json:"name"`
	Company   string            `json:"company"`
	Email     string            `json:"email"`
	Tags      []string          `json:"tags"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// CreateParams is the input for registering a contact explicitly.
type ContactCreateRequest struct {
	Phone   string
	Name    string
	Company string
	Email   string
	Tags    []string
}

func (p ContactCreateRequest) Validate() error {
	if p.Phone == "" {
		return errors.New("phone is required")
	}
	return nil
}

// ContactFilter controls List queries. An empty Tags slice matches
// every contact; a non-empty slice matches contacts whose tag set
// intersects it.
type ContactFilter struct {
	Phone  *string
	Tags   []string
	Limit  int
	Offset int
}

// JourneyEventKind classifies entries of a contact's engagement journey.
type JourneyEventKind string

const (
	JourneyProfileInitialized JourneyEventKind = "profile_initialized"
	JourneyInboundMessage     JourneyEventKind = "inbound_message"
	JourneyCampaignMessage    JourneyEventKind = "campaign_message"
)

// JourneyEvent is one touchpoint in a contact's engagement history.
// The journey is append-only: rows are added, never rewritten.
type JourneyEvent struct {
	ID        int64             `json:"id"`
	ContactID int64             `json:"contact_id"`
	Kind      JourneyEventKind  `json:"kind"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
