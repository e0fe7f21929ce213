package user

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/mailer"
	"github.com/hfpolymers/rubber-ops/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type service struct {
	repo   Repository
	mail   mailer.Mailer
	log    zerolog.Logger
	appURL string
	now    func() time.Time
}

// NewService creates a new user service. appURL is used to build invite links.
func NewService(repo Repository, mail mailer.Mailer, log zerolog.Logger, appURL string) Service {
	return &service{repo: repo, mail: mail, log: log, appURL: strings.TrimRight(appURL, "/"), now: time.Now}
}

func (s *service) Invite(ctx context.Context, req InviteRequest) (*User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok || !role.IsStaff() {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}
	if err := requireAdminFor(ctx, role); err != nil {
		return nil, err
	}
	phone, err := validation.NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	var staffID string
	if strings.TrimSpace(req.StaffID) == "" {
		existing, err := s.repo.ListStaffIDs(ctx)
		if err != nil {
			return nil, err
		}
		if staffID, err = validation.NextStaffID(role, existing, s.now()); err != nil {
			return nil, err
		}
	} else if staffID, err = validation.ValidateStaffID(role, req.StaffID); err != nil {
		return nil, err
	}

	now := s.now()
	u := &User{
		ID:          uuid.New(),
		Name:        name,
		Email:       email,
		Phone:       phone,
		StaffID:     staffID,
		Role:        role,
		Status:      StatusSent,
		InviteToken: uuid.NewString(),
		InvitedAt:   &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s/accept-invite?token=%s", s.appURL, u.InviteToken)
	body := fmt.Sprintf("<p>Hello %s,</p><p>You have been invited as <b>%s</b> (staff id %s).</p><p><a href=\"%s\">Accept the invite</a></p>",
		html.EscapeString(u.Name), html.EscapeString(string(u.Role)), html.EscapeString(u.StaffID), html.EscapeString(link))
	if err := s.mail.Send(ctx, u.Email, "Your staff invite", body); err != nil {
		s.log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("invite email not sent")
	}
	return u, nil
}

func (s *service) AcceptInvite(ctx context.Context, req AcceptInviteRequest) (*User, error) {
	if req.Token == "" {
		return nil, errors.New("token is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("invalid password: must be at least %d characters", minPasswordLength)
	}
	u, err := s.repo.GetUserByInviteToken(ctx, req.Token)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInviteInvalid
	}
	if err != nil {
		return nil, err
	}
	if !CanTransition(u.Status, StatusVerified) {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, u.Status, StatusVerified)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AcceptInvite(ctx, u.ID.String(), string(hash)); err != nil {
		return nil, err
	}
	u.Status = StatusVerified
	u.InviteToken = ""
	return u, nil
}

func (s *service) RegisterUser(ctx context.Context, req RegisterRequest) (*User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("invalid password: must be at least %d characters", minPasswordLength)
	}
	phone, err := validation.NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		Role:         identity.RoleUser,
		Status:       StatusActive,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
}

func (s *service) ListStaff(ctx context.Context, filter Filter) ([]*User, error) {
	return s.repo.ListUsers(ctx, filter)
}

func (s *service) Approve(ctx context.Context, id string) (*User, error) {
	return s.transition(ctx, id, StatusApproved)
}

func (s *service) Activate(ctx context.Context, id string) (*User, error) {
	return s.transition(ctx, id, StatusActive)
}

func (s *service) Suspend(ctx context.Context, id string) (*User, error) {
	return s.transition(ctx, id, StatusSuspended)
}

func (s *service) transition(ctx context.Context, id string, next Status) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireAdminFor(ctx, u.Role); err != nil {
		return nil, err
	}
	if !CanTransition(u.Status, next) {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, u.Status, next)
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	u.Status = next
	u.UpdatedAt = s.now()
	return u, nil
}

// requireAdminFor rejects callers other than an admin when target is an admin
// account. Admins otherwise only come from EnsureAdmin.
func requireAdminFor(ctx context.Context, target identity.Role) error {
	if target != identity.RoleAdmin {
		return nil
	}
	if caller, ok := identity.FromContext(ctx); ok && caller.Role == identity.RoleAdmin {
		return nil
	}
	return ErrAdminOnly
}

// EnsureAdmin seeds one ACTIVE admin when none exists. Empty credentials skip seeding.
func (s *service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	n, err := s.repo.CountByRole(ctx, identity.RoleAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := s.now()
	admin := &User{
		ID:           uuid.New(),
		Name:         "Administrator",
		Email:        strings.ToLower(email),
		Role:         identity.RoleAdmin,
		Status:       StatusActive,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, admin); err != nil {
		return err
	}
	s.log.Info().Str("email", admin.Email).Msg("seeded admin user")
	return nil
}

func (s *service) ExpireStaleInvites(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.repo.ClearStaleInvites(ctx, s.now().Add(-olderThan))
}
