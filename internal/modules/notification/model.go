package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
)

var ErrNotFound = errors.New("notification not found")

// Type classifies a notification for the dashboard badge and icon.
type Type string

const (
	TypeInfo       Type = "INFO"
	TypeIntake     Type = "BARREL_INTAKE"
	TypeSample     Type = "SAMPLE"
	TypeTrip       Type = "STAFF_TRIP"
	TypeSellStatus Type = "SELL_REQUEST"
	TypeLeave      Type = "LEAVE"
)

// Notification is a persisted message addressed to a role or a single user.
type Notification struct {
	ID            uuid.UUID       `json:"id"`
	RecipientRole identity.Role   `json:"recipient_role,omitempty"`
	RecipientID   *uuid.UUID      `json:"recipient_id,omitempty"`
	Title         string          `json:"title"`
	Message       string          `json:"message"`
	Type          Type            `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	DedupeKey     string          `json:"dedupe_key,omitempty"`
	ReadAt        *time.Time      `json:"read_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Message is what producers hand to Publish. Either RecipientRole or
// RecipientID must be set. A non-empty DedupeKey makes Publish idempotent.
type Message struct {
	RecipientRole identity.Role
	RecipientID   *uuid.UUID
	Title         string
	Message       string
	Type          Type
	Payload       interface{}
	DedupeKey     string
}

// Recipient selects the notifications visible to one caller.
type Recipient struct {
	UserID uuid.UUID
	Role   identity.Role
}

// ListFilter narrows a caller's notification listing.
type ListFilter struct {
	UnreadOnly bool
	Limit      int
}

// TripEventRequest is the payload for POST /api/notifications/staff-trip-event.
type TripEventRequest struct {
	Event       string          `json:"event"`
	ReferenceID string          `json:"reference_id"`
	TargetRoles []string        `json:"target_roles"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// TripEventResult reports how many notifications a trip event produced.
type TripEventResult struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
}
