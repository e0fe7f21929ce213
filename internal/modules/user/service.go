package user

import (
	"context"
	"time"
)

// Service defines staff management and registration.
type Service interface {
	Invite(ctx context.Context, req InviteRequest) (*User, error)
	AcceptInvite(ctx context.Context, req AcceptInviteRequest) (*User, error)
	RegisterUser(ctx context.Context, req RegisterRequest) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListStaff(ctx context.Context, filter Filter) ([]*User, error)
	Approve(ctx context.Context, id string) (*User, error)
	Activate(ctx context.Context, id string) (*User, error)
	Suspend(ctx context.Context, id string) (*User, error)
	EnsureAdmin(ctx context.Context, email, password string) error
	ExpireStaleInvites(ctx context.Context, olderThan time.Duration) (int64, error)
}
