package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/rs/zerolog"
)

// Publisher is the producer-facing side of the service.
type Publisher interface {
	Publish(ctx context.Context, msg Message) (*Notification, error)
}

// Service defines notification business logic.
type Service interface {
	Publisher
	List(ctx context.Context, to Recipient, filter ListFilter) ([]*Notification, error)
	UnreadCount(ctx context.Context, to Recipient) (int, error)
	MarkRead(ctx context.Context, to Recipient, id string) error
	MarkAllRead(ctx context.Context, to Recipient) (int64, error)
	StaffTripEvent(ctx context.Context, req TripEventRequest) (*TripEventResult, error)
}

type service struct {
	repo     Repository
	channels []Channel
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a notification service that fans newly stored
// notifications out to channels.
func NewService(repo Repository, channels []Channel, log zerolog.Logger) Service {
	return &service{repo: repo, channels: channels, log: log, now: time.Now}
}

// Publish stores msg and dispatches it. A message whose dedupe key was already
// used returns the earlier notification and is not dispatched again. Channel
// failures are logged and never returned.
func (s *service) Publish(ctx context.Context, msg Message) (*Notification, error) {
	n, _, err := s.publish(ctx, msg)
	return n, err
}

func (s *service) publish(ctx context.Context, msg Message) (*Notification, bool, error) {
	if msg.RecipientRole == "" && msg.RecipientID == nil {
		return nil, false, errors.New("recipient role or recipient id is required")
	}
	if strings.TrimSpace(msg.Title) == "" {
		return nil, false, errors.New("title is required")
	}
	if msg.Type == "" {
		msg.Type = TypeInfo
	}
	n := &Notification{
		ID:            uuid.New(),
		RecipientRole: msg.RecipientRole,
		RecipientID:   msg.RecipientID,
		Title:         msg.Title,
		Message:       msg.Message,
		Type:          msg.Type,
		DedupeKey:     msg.DedupeKey,
		CreatedAt:     s.now(),
	}
	if msg.Payload != nil {
		raw, ok := msg.Payload.(json.RawMessage)
		if !ok {
			var err error
			if raw, err = json.Marshal(msg.Payload); err != nil {
				return nil, false, fmt.Errorf("encode payload: %w", err)
			}
		}
		n.Payload = raw
	}

	stored, created, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, false, err
	}
	if !created {
		s.log.Debug().Str("dedupe_key", msg.DedupeKey).Msg("duplicate notification suppressed")
		return stored, false, nil
	}
	for _, ch := range s.channels {
		if err := ch.Deliver(ctx, stored); err != nil {
			s.log.Warn().Err(err).Str("channel", ch.Name()).Str("notification_id", stored.ID.String()).
				Msg("notification delivery failed")
		}
	}
	return stored, true, nil
}

func (s *service) List(ctx context.Context, to Recipient, filter ListFilter) ([]*Notification, error) {
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	return s.repo.List(ctx, to, filter)
}

func (s *service) UnreadCount(ctx context.Context, to Recipient) (int, error) {
	return s.repo.UnreadCount(ctx, to)
}

func (s *service) MarkRead(ctx context.Context, to Recipient, id string) error {
	return s.repo.MarkRead(ctx, to, id)
}

func (s *service) MarkAllRead(ctx context.Context, to Recipient) (int64, error) {
	return s.repo.MarkAllRead(ctx, to)
}

// StaffTripEvent publishes one notification per target role, in order. Each is
// keyed by event, reference and role so a repeated event is not duplicated.
func (s *service) StaffTripEvent(ctx context.Context, req TripEventRequest) (*TripEventResult, error) {
	event := strings.TrimSpace(req.Event)
	if event == "" || strings.TrimSpace(req.ReferenceID) == "" {
		return nil, errors.New("event and reference_id are required")
	}
	if len(req.TargetRoles) == 0 {
		return nil, errors.New("at least one target role is required")
	}
	roles := make([]identity.Role, 0, len(req.TargetRoles))
	for _, raw := range req.TargetRoles {
		role, ok := identity.ParseRole(raw)
		if !ok {
			return nil, fmt.Errorf("invalid target role %q", raw)
		}
		roles = append(roles, role)
	}
	title := req.Title
	if title == "" {
		title = "Trip update: " + event
	}

	res := &TripEventResult{}
	for _, role := range roles {
		msg := Message{
			RecipientRole: role,
			Title:         title,
			Message:       req.Message,
			Type:          TypeTrip,
			DedupeKey:     fmt.Sprintf("%s:%s:%s", event, req.ReferenceID, role),
		}
		if len(req.Payload) > 0 {
			msg.Payload = req.Payload
		}
		_, created, err := s.publish(ctx, msg)
		if err != nil {
			return res, fmt.Errorf("notify %s: %w", role, err)
		}
		if created {
			res.Created++
		} else {
			res.Duplicates++
		}
	}
	return res, nil
}
