package lab

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("sample not found")
	ErrIntakeNotFound    = errors.New("intake not found")
	ErrAlreadyCheckedIn  = errors.New("a sample is already checked in for this intake")
	ErrInvalidTransition = errors.New("cannot transition sample")
)

// Status is the lifecycle state of a lab sample.
type Status string

const (
	StatusCheckedIn Status = "CHECKED_IN"
	StatusSettled   Status = "SETTLED"
)

// Sample is the lab's quality reading for one intake, later settled by the
// accountant.
type Sample struct {
	ID              uuid.UUID  `json:"id"`
	IntakeID        uuid.UUID  `json:"intake_id"`
	CustomerName    string     `json:"customer_name"`
	BarrelCount     int        `json:"barrel_count"`
	LatexQuantityKg float64    `json:"latex_quantity_kg"`
	DRCPercent      float64    `json:"drc_percent"`
	Notes           string     `json:"notes,omitempty"`
	Status          Status     `json:"status"`
	CheckedInBy     string     `json:"checked_in_by,omitempty"`
	RatePerKg       *float64   `json:"rate_per_kg,omitempty"`
	Amount          *float64   `json:"amount,omitempty"`
	SettledBy       string     `json:"settled_by,omitempty"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// DryRubberKg is the dry rubber weight implied by the quantity and DRC.
func (s *Sample) DryRubberKg() float64 {
	return s.LatexQuantityKg * s.DRCPercent / 100
}

// Incoming is an intake the lab has not checked in yet.
type Incoming struct {
	IntakeID      uuid.UUID `json:"intake_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	BarrelCount   int       `json:"barrel_count"`
	BarrelIDs     []string  `json:"barrel_ids,omitempty"`
	ArrivalTime   time.Time `json:"arrival_time"`
}

// CheckInRequest is the payload for POST /api/lab/samples/checkin.
type CheckInRequest struct {
	IntakeID        string  `json:"intake_id"`
	LatexQuantityKg float64 `json:"latex_quantity_kg"`
	DRCPercent      float64 `json:"drc_percent"`
	Notes           string  `json:"notes,omitempty"`
}

// SettleRequest is the payload for PUT /api/accountant/samples/{id}/settle.
type SettleRequest struct {
	RatePerKg float64 `json:"rate_per_kg"`
}
