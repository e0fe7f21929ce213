package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/modules/notification"
	"github.com/hfpolymers/rubber-ops/internal/validation"
	"github.com/rs/zerolog"
)

// ErrSelfReview is returned when a reviewer acts on their own leave request.
var ErrSelfReview = errors.New("you cannot review your own leave request")

// Service defines leave request business logic.
type Service interface {
	Create(ctx context.Context, req CreateRequest, by identity.Identity) (*Request, error)
	Get(ctx context.Context, id string) (*Request, error)
	Mine(ctx context.Context, by identity.Identity) ([]*Request, error)
	List(ctx context.Context, status string) ([]*Request, error)
	Approve(ctx context.Context, id string, review ReviewRequest, by identity.Identity) (*Request, error)
	Reject(ctx context.Context, id string, review ReviewRequest, by identity.Identity) (*Request, error)
}

type service struct {
	repo     Repository
	notifier notification.Publisher
	loc      *time.Location
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a leave service. loc decides which calendar day "today" is.
func NewService(repo Repository, notifier notification.Publisher, loc *time.Location, log zerolog.Logger) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{repo: repo, notifier: notifier, loc: loc, log: log, now: time.Now}
}

func (s *service) Create(ctx context.Context, req CreateRequest, by identity.Identity) (*Request, error) {
	if by.StaffID == "" {
		return nil, errors.New("staff_id is required to request leave")
	}
	leaveType, ok := ParseType(req.LeaveType)
	if !ok {
		return nil, fmt.Errorf("invalid leave_type %q", req.LeaveType)
	}
	start, err := validation.ParseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	end, err := validation.ParseDate(req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}
	if err := validation.ValidateDateRange(start, end, s.now().In(s.loc)); err != nil {
		return nil, err
	}
	overlap, err := s.repo.HasOverlap(ctx, by.StaffID, start, end)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrOverlap
	}

	now := s.now()
	lr := &Request{
		ID:          uuid.New(),
		RequesterID: by.UserID,
		StaffID:     by.StaffID,
		LeaveType:   leaveType,
		StartDate:   start,
		EndDate:     end,
		Reason:      strings.TrimSpace(req.Reason),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, lr); err != nil {
		return nil, err
	}
	s.notify(ctx, notification.Message{
		RecipientRole: identity.RoleManager,
		Title:         "Leave request",
		Message: fmt.Sprintf("%s requested %d day(s) of %s leave from %s", lr.StaffID, lr.Days(),
			strings.ToLower(string(lr.LeaveType)), lr.StartDate.Format(validation.DateLayout)),
		Type:      notification.TypeLeave,
		Payload:   map[string]interface{}{"leave_request_id": lr.ID},
		DedupeKey: "leave:" + lr.ID.String() + ":manager",
	})
	return lr, nil
}

func (s *service) Get(ctx context.Context, id string) (*Request, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Mine(ctx context.Context, by identity.Identity) ([]*Request, error) {
	if by.StaffID == "" {
		return []*Request{}, nil
	}
	return s.repo.List(ctx, Filter{StaffID: by.StaffID})
}

func (s *service) List(ctx context.Context, status string) ([]*Request, error) {
	return s.repo.List(ctx, Filter{Status: Status(strings.ToUpper(status))})
}

func (s *service) Approve(ctx context.Context, id string, review ReviewRequest, by identity.Identity) (*Request, error) {
	return s.review(ctx, id, StatusApproved, review, by)
}

func (s *service) Reject(ctx context.Context, id string, review ReviewRequest, by identity.Identity) (*Request, error) {
	return s.review(ctx, id, StatusRejected, review, by)
}

func (s *service) review(ctx context.Context, id string, next Status, review ReviewRequest, by identity.Identity) (*Request, error) {
	lr, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lr.Status != StatusPending {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, lr.Status, next)
	}
	if lr.RequesterID == by.UserID {
		return nil, ErrSelfReview
	}
	lr.Status = next
	lr.ReviewedBy = by.StaffID
	if lr.ReviewedBy == "" {
		lr.ReviewedBy = by.UserID.String()
	}
	lr.ReviewNote = strings.TrimSpace(review.Note)
	lr.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, lr); err != nil {
		return nil, err
	}

	requester := lr.RequesterID
	s.notify(ctx, notification.Message{
		RecipientID: &requester,
		Title:       "Leave " + strings.ToLower(string(next)),
		Message: fmt.Sprintf("Your %s leave from %s to %s was %s", strings.ToLower(string(lr.LeaveType)),
			lr.StartDate.Format(validation.DateLayout), lr.EndDate.Format(validation.DateLayout),
			strings.ToLower(string(next))),
		Type:      notification.TypeLeave,
		Payload:   map[string]interface{}{"leave_request_id": lr.ID, "status": next},
		DedupeKey: "leave:" + lr.ID.String() + ":" + string(next),
	})
	return lr, nil
}

func (s *service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Publish(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("dedupe_key", msg.DedupeKey).Msg("leave notification not sent")
	}
}
