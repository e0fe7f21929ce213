package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/modules/user"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID  string `json:"uid"`
	Role    string `json:"role"`
	StaffID string `json:"staff_id,omitempty"`
	jwt.StandardClaims
}

// UserLookup is the part of the user service that login needs.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

type service struct {
	users  UserLookup
	jwtKey []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a new auth service.
func NewService(users UserLookup, secret string, ttl time.Duration) Service {
	return &service{users: users, jwtKey: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Status != user.StatusActive {
		return nil, fmt.Errorf("%w (status %s)", ErrAccountInactive, u.Status)
	}

	now := s.now()
	claims := &Claims{
		UserID:  u.ID.String(),
		Role:    string(u.Role),
		StaffID: u.StaffID,
		StandardClaims: jwt.StandardClaims{
			Subject:   u.ID.String(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: u}, nil
}

// Verify parses and validates a bearer token.
func (s *service) Verify(raw string) (identity.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return identity.Identity{}, ErrInvalidToken
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return identity.Identity{}, ErrInvalidToken
	}
	role, ok := identity.ParseRole(claims.Role)
	if !ok {
		return identity.Identity{}, ErrInvalidToken
	}
	return identity.Identity{UserID: uid, Role: role, StaffID: claims.StaffID}, nil
}

func (s *service) Me(ctx context.Context, id identity.Identity) (*user.User, error) {
	return s.users.GetUser(ctx, id.UserID.String())
}
