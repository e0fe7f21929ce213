package intake

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("cannot transition")
	ErrSessionNotFound   = errors.New("intake wizard session not found")
)

// ── Sell request ──────────────────────────────────────────────────────────────

// SellStatus is the lifecycle state of a customer sell request.
type SellStatus string

const (
	SellPending        SellStatus = "PENDING"
	SellApproved       SellStatus = "APPROVED"
	SellRejected       SellStatus = "REJECTED"
	SellDeliveredToLab SellStatus = "DELIVERED_TO_LAB"
)

var validSellTransitions = map[SellStatus][]SellStatus{
	SellPending:        {SellApproved, SellRejected},
	SellApproved:       {SellDeliveredToLab},
	SellRejected:       {},
	SellDeliveredToLab: {},
}

// CanTransitionSell returns true if a sell request may move from current to next.
func CanTransitionSell(current, next SellStatus) bool {
	for _, s := range validSellTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// SellRequest is a customer or field-staff submission to sell latex barrels.
type SellRequest struct {
	ID            uuid.UUID  `json:"id"`
	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	BarrelCount   int        `json:"barrel_count"`
	Notes         string     `json:"notes,omitempty"`
	Status        SellStatus `json:"status"`
	ReviewedBy    *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewNote    string     `json:"review_note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateSellRequest is the payload for POST /api/sell-requests.
type CreateSellRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	BarrelCount   int    `json:"barrel_count"`
	Notes         string `json:"notes,omitempty"`
}

// ApproveSellRequest assigns a delivery staff member to collect the barrels.
type ApproveSellRequest struct {
	DeliveryStaffID string `json:"delivery_staff_id"`
	Note            string `json:"note,omitempty"`
}

// RejectSellRequest carries the reviewer's reason.
type RejectSellRequest struct {
	Note string `json:"note"`
}

// ── Delivery task ─────────────────────────────────────────────────────────────

// TaskStatus is the lifecycle state of a delivery task.
type TaskStatus string

const (
	TaskAssigned  TaskStatus = "ASSIGNED"
	TaskEnRoute   TaskStatus = "EN_ROUTE"
	TaskPickedUp  TaskStatus = "PICKED_UP"
	TaskDelivered TaskStatus = "DELIVERED"
	TaskCancelled TaskStatus = "CANCELLED"
)

var validTaskTransitions = map[TaskStatus][]TaskStatus{
	TaskAssigned:  {TaskEnRoute, TaskPickedUp, TaskDelivered, TaskCancelled},
	TaskEnRoute:   {TaskPickedUp, TaskDelivered, TaskCancelled},
	TaskPickedUp:  {TaskDelivered, TaskCancelled},
	TaskDelivered: {},
	TaskCancelled: {},
}

// CanTransitionTask returns true if a delivery task may move from current to next.
func CanTransitionTask(current, next TaskStatus) bool {
	for _, s := range validTaskTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// DeliveryTask assigns a sell request pickup to a delivery staff member.
type DeliveryTask struct {
	ID            uuid.UUID  `json:"id"`
	SellRequestID uuid.UUID  `json:"sell_request_id"`
	AssignedTo    string     `json:"assigned_to"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	BarrelCount   int        `json:"barrel_count,omitempty"`
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// UpdateTaskStatusRequest is the payload for PUT /api/delivery/{id}/status.
type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

// ── Intake ────────────────────────────────────────────────────────────────────

// Intake records barrels physically arriving at the factory.
type Intake struct {
	ID            uuid.UUID  `json:"id"`
	SellRequestID *uuid.UUID `json:"sell_request_id,omitempty"`
	TaskID        *uuid.UUID `json:"task_id,omitempty"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	BarrelCount   int        `json:"barrel_count"`
	BarrelIDs     []string   `json:"barrel_ids,omitempty"`
	ArrivalTime   time.Time  `json:"arrival_time"`
	RecordedBy    string     `json:"recorded_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IntakeRequest is the payload for POST /api/delivery/barrels/intake.
type IntakeRequest struct {
	SellRequestID string   `json:"sell_request_id,omitempty"`
	TaskID        string   `json:"task_id,omitempty"`
	CustomerName  string   `json:"customer_name"`
	CustomerPhone string   `json:"customer_phone"`
	BarrelCount   int      `json:"barrel_count"`
	BarrelIDs     []string `json:"barrel_ids,omitempty"`
	ArrivalTime   string   `json:"arrival_time"`
}

// IntakeFilter narrows an intake listing.
type IntakeFilter struct {
	RecordedBy string
	Limit      int
}
