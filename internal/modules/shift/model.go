package shift

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
)

var (
	ErrNotFound           = errors.New("shift not found")
	ErrAssignmentNotFound = errors.New("shift assignment not found")
	ErrAlreadyAssigned    = errors.New("staff member already has a shift on this date")
	ErrInvalidTransition  = errors.New("cannot transition assignment")
	ErrNotAssignee        = errors.New("assignment belongs to another staff member")
	ErrShiftInUse         = errors.New("shift has assignments and cannot be deleted")
)

const minutesPerDay = 24 * 60

// ClockTime is a wall-clock time of day in "HH:MM" form.
type ClockTime string

// ParseClock validates raw as a 24-hour "HH:MM" and returns minutes since midnight.
func ParseClock(raw string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, fmt.Errorf("invalid time %q, use HH:MM", raw)
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid time %q, use HH:MM", raw)
	}
	return hh*60 + mm, nil
}

// Shift is a named working window. End before start means the shift runs overnight.
type Shift struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	StartTime ClockTime     `json:"start_time"`
	EndTime   ClockTime     `json:"end_time"`
	Category  identity.Role `json:"category,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Overnight reports whether the shift ends on the following day.
func (s *Shift) Overnight() bool {
	start, _ := ParseClock(string(s.StartTime))
	end, _ := ParseClock(string(s.EndTime))
	return end <= start
}

// DurationMinutes is the shift length, wrapping past midnight.
func (s *Shift) DurationMinutes() int {
	start, _ := ParseClock(string(s.StartTime))
	end, _ := ParseClock(string(s.EndTime))
	d := end - start
	if d <= 0 {
		d += minutesPerDay
	}
	return d
}

// MarshalJSON adds the derived overnight flag and duration to the stored fields.
func (s Shift) MarshalJSON() ([]byte, error) {
	type stored Shift
	return json.Marshal(struct {
		stored
		Overnight       bool `json:"overnight"`
		DurationMinutes int  `json:"duration_minutes"`
	}{stored(s), s.Overnight(), s.DurationMinutes()})
}

// CreateShiftRequest is the payload for POST /api/shifts.
type CreateShiftRequest struct {
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Category  string `json:"category,omitempty"`
}

// AssignmentStatus is the attendance state of one staff member on one shift day.
type AssignmentStatus string

const (
	StatusScheduled  AssignmentStatus = "SCHEDULED"
	StatusCheckedIn  AssignmentStatus = "CHECKED_IN"
	StatusCheckedOut AssignmentStatus = "CHECKED_OUT"
	StatusAbsent     AssignmentStatus = "ABSENT"
)

var validTransitions = map[AssignmentStatus][]AssignmentStatus{
	StatusScheduled:  {StatusCheckedIn, StatusAbsent},
	StatusCheckedIn:  {StatusCheckedOut},
	StatusCheckedOut: {},
	StatusAbsent:     {},
}

// CanTransition returns true if the transition from current to next is valid.
func CanTransition(current, next AssignmentStatus) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// Assignment places one staff member on a shift for a calendar date.
type Assignment struct {
	ID           uuid.UUID        `json:"id"`
	ShiftID      uuid.UUID        `json:"shift_id"`
	ShiftName    string           `json:"shift_name,omitempty"`
	StaffID      string           `json:"staff_id"`
	Date         time.Time        `json:"date"`
	CheckInTime  *time.Time       `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time       `json:"check_out_time,omitempty"`
	Status       AssignmentStatus `json:"status"`
	AssignedBy   string           `json:"assigned_by,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// AssignmentFilter narrows an assignment listing. Zero fields match everything.
type AssignmentFilter struct {
	Date    *time.Time
	StaffID string
}

// AssignRequest is the payload for POST /api/shift-assignments/assign.
type AssignRequest struct {
	ShiftID  string   `json:"shift_id"`
	Date     string   `json:"date"`
	StaffIDs []string `json:"staff_ids"`
}

// AssignFailure explains why one staff member was not assigned.
type AssignFailure struct {
	StaffID string `json:"staff_id"`
	Error   string `json:"error"`
}

// AssignResult reports a bulk assignment per staff member.
type AssignResult struct {
	SuccessCount int             `json:"success_count"`
	FailCount    int             `json:"fail_count"`
	Message      string          `json:"message"`
	Assignments  []*Assignment   `json:"assignments"`
	Failures     []AssignFailure `json:"failures,omitempty"`
}

// StaffMember is an assignable staff account.
type StaffMember struct {
	StaffID string        `json:"staff_id"`
	Name    string        `json:"name"`
	Role    identity.Role `json:"role"`
}
