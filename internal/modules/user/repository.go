package user

import (
	"context"
	"time"

	"github.com/hfpolymers/rubber-ops/internal/identity"
)

// Repository defines user data storage.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByInviteToken(ctx context.Context, token string) (*User, error)
	ListUsers(ctx context.Context, filter Filter) ([]*User, error)
	ListStaffIDs(ctx context.Context) ([]string, error)
	CountByRole(ctx context.Context, role identity.Role) (int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	AcceptInvite(ctx context.Context, id string, passwordHash string) error
	ClearStaleInvites(ctx context.Context, sentBefore time.Time) (int64, error)
}
