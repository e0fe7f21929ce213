package barrel

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("barrel not found")
	ErrRequestNotFound   = errors.New("barrel request not found")
	ErrDuplicate         = errors.New("a barrel with this barrel_id already exists")
	ErrInvalidTransition = errors.New("cannot transition barrel")
)

// Status is the lifecycle state of a physical barrel.
type Status string

const (
	StatusInStock   Status = "IN_STOCK"
	StatusAllocated Status = "ALLOCATED"
	StatusInUse     Status = "IN_USE"
	StatusReturned  Status = "RETURNED"
	StatusDamaged   Status = "DAMAGED"
)

// validTransitions defines the barrel state machine. DAMAGED is terminal.
var validTransitions = map[Status][]Status{
	StatusInStock:   {StatusAllocated, StatusDamaged},
	StatusAllocated: {StatusInUse, StatusInStock, StatusDamaged},
	StatusInUse:     {StatusReturned, StatusDamaged},
	StatusReturned:  {StatusInStock, StatusDamaged},
	StatusDamaged:   {},
}

// CanTransition returns true if the transition from current to next is valid.
func CanTransition(current, next Status) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// Barrel is a single tracked container.
type Barrel struct {
	ID              uuid.UUID  `json:"id"`
	BarrelID        string     `json:"barrel_id"`
	MaterialName    string     `json:"material_name"`
	BatchNo         string     `json:"batch_no,omitempty"`
	ManufactureDate *time.Time `json:"manufacture_date,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	Unit            string     `json:"unit,omitempty"`
	Status          Status     `json:"status"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Filter narrows a barrel listing. Empty fields match everything.
type Filter struct {
	Status     Status
	AssignedTo string
}

// CreateRequest is the payload for POST /api/barrels. BarrelID is generated
// when empty.
type CreateRequest struct {
	BarrelID        string `json:"barrel_id,omitempty"`
	MaterialName    string `json:"material_name"`
	BatchNo         string `json:"batch_no,omitempty"`
	ManufactureDate string `json:"manufacture_date,omitempty"`
	ExpiryDate      string `json:"expiry_date,omitempty"`
	Unit            string `json:"unit,omitempty"`
}

// AllocateRequest is the payload for PUT /api/barrels/{id}/allocate.
type AllocateRequest struct {
	StaffID string `json:"staff_id"`
}

// RequestStatus is the review state of a barrel creation request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// CreationRequest asks an admin to add a batch of new barrels.
type CreationRequest struct {
	ID              uuid.UUID     `json:"id"`
	RequestedBy     string        `json:"requested_by"`
	Quantity        int           `json:"quantity"`
	MaterialName    string        `json:"material_name"`
	BatchNo         string        `json:"batch_no,omitempty"`
	ManufactureDate *time.Time    `json:"manufacture_date,omitempty"`
	ExpiryDate      *time.Time    `json:"expiry_date,omitempty"`
	Unit            string        `json:"unit,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Status          RequestStatus `json:"status"`
	ReviewedBy      string        `json:"reviewed_by,omitempty"`
	ReviewNote      string        `json:"review_note,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewCreationRequest is the payload for POST /api/barrel-requests.
type NewCreationRequest struct {
	Quantity        int    `json:"quantity"`
	MaterialName    string `json:"material_name"`
	BatchNo         string `json:"batch_no,omitempty"`
	ManufactureDate string `json:"manufacture_date,omitempty"`
	ExpiryDate      string `json:"expiry_date,omitempty"`
	Unit            string `json:"unit,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// ReviewRequest carries an optional note when approving or rejecting.
type ReviewRequest struct {
	Note string `json:"note,omitempty"`
}

// ApprovalResult is returned when a creation request is approved.
type ApprovalResult struct {
	Request *CreationRequest `json:"request"`
	Barrels []*Barrel        `json:"barrels"`
}
