package intake

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

// Service defines the sell request, delivery and intake workflow.
type Service interface {
	CreateSellRequest(ctx context.Context, req CreateSellRequest, by identity.Identity) (*SellRequest, error)
	GetSellRequest(ctx context.Context, id string) (*SellRequest, error)
	ListSellRequests(ctx context.Context, status string) ([]*SellRequest, error)
	ApproveSellRequest(ctx context.Context, id string, req ApproveSellRequest, by identity.Identity) (*DeliveryTask, error)
	RejectSellRequest(ctx context.Context, id string, req RejectSellRequest, by identity.Identity) (*SellRequest, error)
	MarkDeliveredToLab(ctx context.Context, id string) (*SellRequest, error)

	ListTasks(ctx context.Context, assignedTo string) ([]*DeliveryTask, error)
	UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) (*DeliveryTask, error)

	RecordIntake(ctx context.Context, req IntakeRequest, recordedBy string) (*Intake, error)
	GetIntake(ctx context.Context, id string) (*Intake, error)
	ListIntakes(ctx context.Context, filter IntakeFilter) ([]*Intake, error)
}

type service struct {
	repo     Repository
	notifier notification.Publisher
	log      zerolog.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewService creates the intake workflow service. loc is used to interpret
// arrival times given without a zone.
func NewService(repo Repository, notifier notification.Publisher, loc *time.Location, log zerolog.Logger) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{repo: repo, notifier: notifier, log: log, loc: loc, now: time.Now}
}

// ── Sell requests ─────────────────────────────────────────────────────────────

func (s *service) CreateSellRequest(ctx context.Context, req CreateSellRequest, by identity.Identity) (*SellRequest, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, errors.New("customer_name is required")
	}
	phone, err := validation.NormalizePhone(req.CustomerPhone)
	if err != nil {
		return nil, err
	}
	if req.BarrelCount <= 0 {
		return nil, errors.New("invalid barrel_count: must be at least 1")
	}
	now := s.now()
	sr := &SellRequest{
		ID:            uuid.New(),
		CustomerName:  name,
		CustomerPhone: phone,
		BarrelCount:   req.BarrelCount,
		Notes:         strings.TrimSpace(req.Notes),
		Status:        SellPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if by.UserID != uuid.Nil {
		id := by.UserID
		sr.CustomerID = &id
	}
	if err := s.repo.CreateSellRequest(ctx, sr); err != nil {
		return nil, err
	}
	s.notify(ctx, notification.Message{
		RecipientRole: identity.RoleManager,
		Title:         "New sell request",
		Message:       fmt.Sprintf("%s wants to sell %d barrel(s)", sr.CustomerName, sr.BarrelCount),
		Type:          notification.TypeSellStatus,
		Payload:       map[string]interface{}{"sell_request_id": sr.ID},
		DedupeKey:     "sell-created:" + sr.ID.String(),
	})
	return sr, nil
}

func (s *service) GetSellRequest(ctx context.Context, id string) (*SellRequest, error) {
	return s.repo.GetSellRequest(ctx, id)
}

func (s *service) ListSellRequests(ctx context.Context, status string) ([]*SellRequest, error) {
	return s.repo.ListSellRequests(ctx, SellStatus(strings.ToUpper(status)))
}

func (s *service) review(ctx context.Context, id string, next SellStatus, note string, by identity.Identity) (*SellRequest, error) {
	sr, err := s.repo.GetSellRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionSell(sr.Status, next) {
		return nil, fmt.Errorf("%w sell request from %s to %s", ErrInvalidTransition, sr.Status, next)
	}
	sr.Status = next
	sr.ReviewNote = strings.TrimSpace(note)
	if by.UserID != uuid.Nil {
		reviewer := by.UserID
		sr.ReviewedBy = &reviewer
	}
	sr.UpdatedAt = s.now()
	if err := s.repo.UpdateSellRequest(ctx, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

// ApproveSellRequest approves a pending request and creates the delivery task
// for the assigned delivery staff member.
func (s *service) ApproveSellRequest(ctx context.Context, id string, req ApproveSellRequest, by identity.Identity) (*DeliveryTask, error) {
	staffID, err := validation.ValidateStaffID(identity.RoleDelivery, req.DeliveryStaffID)
	if err != nil {
		return nil, err
	}
	sr, err := s.review(ctx, id, SellApproved, req.Note, by)
	if err != nil {
		return nil, err
	}
	now := s.now()
	task := &DeliveryTask{
		ID:            uuid.New(),
		SellRequestID: sr.ID,
		AssignedTo:    staffID,
		CustomerName:  sr.CustomerName,
		CustomerPhone: sr.CustomerPhone,
		BarrelCount:   sr.BarrelCount,
		Status:        TaskAssigned,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.notify(ctx, notification.Message{
		RecipientRole: identity.RoleDelivery,
		Title:         "New pickup assigned",
		Message:       fmt.Sprintf("Collect %d barrel(s) from %s (%s), assigned to %s", sr.BarrelCount, sr.CustomerName, sr.CustomerPhone, staffID),
		Type:          notification.TypeSellStatus,
		Payload:       map[string]interface{}{"task_id": task.ID, "sell_request_id": sr.ID, "assigned_to": staffID},
		DedupeKey:     "task-assigned:" + task.ID.String(),
	})
	return task, nil
}

func (s *service) RejectSellRequest(ctx context.Context, id string, req RejectSellRequest, by identity.Identity) (*SellRequest, error) {
	return s.review(ctx, id, SellRejected, req.Note, by)
}

func (s *service) MarkDeliveredToLab(ctx context.Context, id string) (*SellRequest, error) {
	return s.review(ctx, id, SellDeliveredToLab, "", identity.Identity{})
}

// ── Delivery tasks ────────────────────────────────────────────────────────────

func (s *service) ListTasks(ctx context.Context, assignedTo string) ([]*DeliveryTask, error) {
	return s.repo.ListTasks(ctx, assignedTo)
}

func (s *service) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) (*DeliveryTask, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionTask(task.Status, status) {
		return nil, fmt.Errorf("%w delivery task from %s to %s", ErrInvalidTransition, task.Status, status)
	}
	if err := s.repo.UpdateTaskStatus(ctx, id, status); err != nil {
		return nil, err
	}
	task.Status = status
	task.UpdatedAt = s.now()
	return task, nil
}

// ── Intakes ───────────────────────────────────────────────────────────────────

// ParseArrivalTime accepts RFC 3339, a datetime-local value (2006-01-02T15:04)
// or a bare HH:MM, which is taken as today in loc.
func ParseArrivalTime(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("arrival_time is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", raw, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("15:04", raw, loc); err == nil {
		today := now.In(loc)
		return time.Date(today.Year(), today.Month(), today.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid arrival_time %q", raw)
}

func optionalID(field, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid %s", field)
	}
	return &id, nil
}

func (s *service) RecordIntake(ctx context.Context, req IntakeRequest, recordedBy string) (*Intake, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" || strings.TrimSpace(req.CustomerPhone) == "" {
		return nil, errors.New("customer name and phone are required")
	}
	phone, err := validation.NormalizePhone(req.CustomerPhone)
	if err != nil {
		return nil, err
	}
	if req.BarrelCount <= 0 {
		return nil, errors.New("invalid barrel_count: must be at least 1")
	}
	now := s.now()
	arrival, err := ParseArrivalTime(req.ArrivalTime, now, s.loc)
	if err != nil {
		return nil, err
	}
	sellID, err := optionalID("sell_request_id", req.SellRequestID)
	if err != nil {
		return nil, err
	}
	taskID, err := optionalID("task_id", req.TaskID)
	if err != nil {
		return nil, err
	}
	barrelIDs := make([]string, 0, len(req.BarrelIDs))
	for _, id := range req.BarrelIDs {
		if id = strings.ToUpper(strings.TrimSpace(id)); id != "" {
			barrelIDs = append(barrelIDs, id)
		}
	}
	in := &Intake{
		ID:            uuid.New(),
		SellRequestID: sellID,
		TaskID:        taskID,
		CustomerName:  name,
		CustomerPhone: phone,
		BarrelCount:   req.BarrelCount,
		BarrelIDs:     barrelIDs,
		ArrivalTime:   arrival,
		RecordedBy:    recordedBy,
		CreatedAt:     now,
	}
	if err := s.repo.CreateIntake(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *service) GetIntake(ctx context.Context, id string) (*Intake, error) {
	return s.repo.GetIntake(ctx, id)
}

func (s *service) ListIntakes(ctx context.Context, filter IntakeFilter) ([]*Intake, error) {
	return s.repo.ListIntakes(ctx, filter)
}

func (s *service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Publish(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("dedupe_key", msg.DedupeKey).Msg("notification not published")
	}
}
