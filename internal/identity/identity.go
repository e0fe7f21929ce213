package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Role is the dashboard role a user signs in with.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleLab        Role = "lab"
	RoleDelivery   Role = "delivery"
	RoleAccountant Role = "accountant"
	RoleFieldStaff Role = "field_staff"
	RoleStaff      Role = "staff"
	RoleUser       Role = "user"
)

var knownRoles = map[Role]bool{
	RoleAdmin:      true,
	RoleManager:    true,
	RoleLab:        true,
	RoleDelivery:   true,
	RoleAccountant: true,
	RoleFieldStaff: true,
	RoleStaff:      true,
	RoleUser:       true,
}

// ParseRole normalises a role string and reports whether it is known.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	r = Role(strings.ReplaceAll(string(r), "-", "_"))
	return r, knownRoles[r]
}

// IsStaff is true for every role that belongs to company personnel.
func (r Role) IsStaff() bool {
	return r != RoleUser && knownRoles[r]
}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID  uuid.UUID `json:"user_id"`
	Role    Role      `json:"role"`
	StaffID string    `json:"staff_id,omitempty"`
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the caller identity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
