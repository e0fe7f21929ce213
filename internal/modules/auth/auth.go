package auth

import (
	"context"
	"errors"

	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/modules/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
	ErrInvalidToken       = errors.New("invalid token")
)

// LoginResponse is returned on a successful sign in.
type LoginResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// Service defines the interface for authentication-related business logic.
type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Verify(token string) (identity.Identity, error)
	Me(ctx context.Context, id identity.Identity) (*user.User, error)
}
