package leave

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("leave request not found")
	ErrOverlap           = errors.New("an open leave request already covers these dates")
	ErrInvalidTransition = errors.New("cannot transition leave request")
)

// Type is the kind of leave being requested.
type Type string

const (
	TypeCasual Type = "CASUAL"
	TypeSick   Type = "SICK"
	TypeEarned Type = "EARNED"
	TypeUnpaid Type = "UNPAID"
)

// ParseType normalises raw and reports whether it names a known leave type.
func ParseType(raw string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case TypeCasual, TypeSick, TypeEarned, TypeUnpaid:
		return t, true
	}
	return t, false
}

// Status is the review state of a leave request.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Request is one staff member's leave application. Dates are inclusive.
type Request struct {
	ID          uuid.UUID `json:"id"`
	RequesterID uuid.UUID `json:"requester_id"`
	StaffID     string    `json:"staff_id"`
	LeaveType   Type      `json:"leave_type"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Reason      string    `json:"reason,omitempty"`
	Status      Status    `json:"status"`
	ReviewedBy  string    `json:"reviewed_by,omitempty"`
	ReviewNote  string    `json:"review_note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Days is the number of calendar days covered, counting both ends.
func (r *Request) Days() int {
	return int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
}

// CreateRequest is the payload for POST /api/leave-requests.
type CreateRequest struct {
	LeaveType string `json:"leave_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

// ReviewRequest carries an optional note when approving or rejecting.
type ReviewRequest struct {
	Note string `json:"note,omitempty"`
}

// Filter narrows a leave listing. Empty fields match everything.
type Filter struct {
	Status  Status
	StaffID string
}
