package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicate         = errors.New("a user with this email or staff_id already exists")
	ErrInvalidTransition = errors.New("cannot transition user")
	ErrInviteInvalid     = errors.New("invite token is invalid or expired")
	ErrAdminOnly         = errors.New("only an admin may manage admin accounts")
)

// Status is the lifecycle state of a staff account.
type Status string

const (
	StatusSent      Status = "SENT"
	StatusVerified  Status = "VERIFIED"
	StatusApproved  Status = "APPROVED"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

var validTransitions = map[Status][]Status{
	StatusSent:      {StatusVerified},
	StatusVerified:  {StatusApproved},
	StatusApproved:  {StatusActive},
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
}

// CanTransition returns true if the account may move from current to next.
func CanTransition(current, next Status) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// User is a staff member or end user of the dashboard.
type User struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone,omitempty"`
	StaffID      string        `json:"staff_id,omitempty"`
	Role         identity.Role `json:"role"`
	Status       Status        `json:"status"`
	PasswordHash string        `json:"-"`
	InviteToken  string        `json:"-"`
	InvitedAt    *time.Time    `json:"invited_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Filter narrows a staff listing. Empty fields match everything.
type Filter struct {
	Role   identity.Role
	Status Status
}

// InviteRequest is the payload for inviting a staff member.
type InviteRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	StaffID string `json:"staff_id,omitempty"`
	Role    string `json:"role"`
}

// AcceptInviteRequest completes an invite and sets the account password.
type AcceptInviteRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for end-user self registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}
