package lab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/modules/notification"
	"github.com/rs/zerolog"
)

// Service defines lab check-in and accountant settlement.
type Service interface {
	ListIncoming(ctx context.Context) ([]*Incoming, error)
	CheckIn(ctx context.Context, req CheckInRequest, by identity.Identity) (*Sample, error)
	GetSample(ctx context.Context, id string) (*Sample, error)
	ListSamples(ctx context.Context, status string) ([]*Sample, error)
	ListPending(ctx context.Context) ([]*Sample, error)
	Settle(ctx context.Context, id string, req SettleRequest, by identity.Identity) (*Sample, error)
}

type service struct {
	repo     Repository
	notifier notification.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier notification.Publisher, log zerolog.Logger) Service {
	return &service{repo: repo, notifier: notifier, log: log, now: time.Now}
}

func (s *service) ListIncoming(ctx context.Context) ([]*Incoming, error) {
	return s.repo.ListIncoming(ctx)
}

// CheckIn records the lab reading for an intake. DRC must be in (0, 100].
func (s *service) CheckIn(ctx context.Context, req CheckInRequest, by identity.Identity) (*Sample, error) {
	if strings.TrimSpace(req.IntakeID) == "" {
		return nil, errors.New("intake_id is required")
	}
	if req.LatexQuantityKg <= 0 {
		return nil, errors.New("invalid latex_quantity_kg: must be greater than 0")
	}
	if req.DRCPercent <= 0 || req.DRCPercent > 100 {
		return nil, errors.New("invalid drc_percent: must be greater than 0 and at most 100")
	}
	in, err := s.repo.GetIncoming(ctx, req.IntakeID)
	if err != nil {
		return nil, err
	}
	sample := &Sample{
		ID:              uuid.New(),
		IntakeID:        in.IntakeID,
		CustomerName:    in.CustomerName,
		BarrelCount:     in.BarrelCount,
		LatexQuantityKg: req.LatexQuantityKg,
		DRCPercent:      req.DRCPercent,
		Notes:           strings.TrimSpace(req.Notes),
		Status:          StatusCheckedIn,
		CheckedInBy:     by.StaffID,
		CreatedAt:       s.now(),
	}
	if err := s.repo.CreateSample(ctx, sample); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		_, err := s.notifier.Publish(ctx, notification.Message{
			RecipientRole: identity.RoleAccountant,
			Title:         "Sample ready for settlement",
			Message: fmt.Sprintf("%s: %.2f kg latex at %.2f%% DRC (%.2f kg dry rubber)",
				sample.CustomerName, sample.LatexQuantityKg, sample.DRCPercent, sample.DryRubberKg()),
			Type:      notification.TypeSample,
			Payload:   map[string]interface{}{"sample_id": sample.ID, "intake_id": sample.IntakeID},
			DedupeKey: "sample:" + sample.ID.String() + ":accountant",
		})
		if err != nil {
			s.log.Warn().Err(err).Str("sample_id", sample.ID.String()).Msg("accountant not notified of sample")
		}
	}
	return sample, nil
}

func (s *service) GetSample(ctx context.Context, id string) (*Sample, error) {
	return s.repo.GetSample(ctx, id)
}

func (s *service) ListSamples(ctx context.Context, status string) ([]*Sample, error) {
	return s.repo.ListSamples(ctx, Status(strings.ToUpper(status)))
}

func (s *service) ListPending(ctx context.Context) ([]*Sample, error) {
	return s.repo.ListSamples(ctx, StatusCheckedIn)
}

// Settle prices a checked-in sample: amount = quantity * drc/100 * rate.
func (s *service) Settle(ctx context.Context, id string, req SettleRequest, by identity.Identity) (*Sample, error) {
	if req.RatePerKg <= 0 {
		return nil, errors.New("invalid rate_per_kg: must be greater than 0")
	}
	sample, err := s.repo.GetSample(ctx, id)
	if err != nil {
		return nil, err
	}
	if sample.Status != StatusCheckedIn {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, sample.Status, StatusSettled)
	}
	rate := req.RatePerKg
	amount := sample.DryRubberKg() * rate
	now := s.now()
	sample.Status = StatusSettled
	sample.RatePerKg = &rate
	sample.Amount = &amount
	sample.SettledBy = by.StaffID
	sample.SettledAt = &now
	if err := s.repo.UpdateSample(ctx, sample); err != nil {
		return nil, err
	}
	return sample, nil
}
