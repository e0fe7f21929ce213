package salary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/bulk"
	"github.com/hfpolymers/rubber-ops/internal/modules/user"
	"github.com/hfpolymers/rubber-ops/internal/validation"
	"github.com/rs/zerolog"
)

// StaffLister returns staff accounts; user.Service satisfies it.
type StaffLister interface {
	ListStaff(ctx context.Context, filter user.Filter) ([]*user.User, error)
}

// Service defines salary business logic.
type Service interface {
	Calculate(req CalculateRequest) Breakdown
	Generate(ctx context.Context, req GenerateRequest, createdBy *uuid.UUID) (*GenerateResult, error)
	GetRecord(ctx context.Context, id string) (*Record, error)
	ListRecords(ctx context.Context, filter Filter) ([]*Record, error)
	UpdateRecord(ctx context.Context, id string, req UpdateRequest) (*Record, error)
	Approve(ctx context.Context, id string) (*Record, error)
	Pay(ctx context.Context, id string) (*Record, error)
	DeleteRecord(ctx context.Context, id string) error
}

type service struct {
	repo        Repository
	staff       StaffLister
	parallelism int
	log         zerolog.Logger
	now         func() time.Time
}

// NewService creates a salary service. parallelism bounds concurrent inserts
// during generation for all staff.
func NewService(repo Repository, staff StaffLister, parallelism int, log zerolog.Logger) Service {
	return &service{repo: repo, staff: staff, parallelism: parallelism, log: log, now: time.Now}
}

func (s *service) Calculate(req CalculateRequest) Breakdown {
	return Compute(req.Earnings, req.Deductions)
}

func validatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month %d", month)
	}
	if year < 2000 || year > 2100 {
		return fmt.Errorf("invalid year %d", year)
	}
	return nil
}

func (s *service) newRecord(staffID, name string, req GenerateRequest, createdBy *uuid.UUID) *Record {
	now := s.now()
	return &Record{
		ID:         uuid.New(),
		StaffID:    staffID,
		StaffName:  name,
		Month:      req.Month,
		Year:       req.Year,
		Earnings:   req.Earnings,
		Deductions: req.Deductions,
		Breakdown:  Compute(req.Earnings, req.Deductions),
		Status:     StatusDraft,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *service) Generate(ctx context.Context, req GenerateRequest, createdBy *uuid.UUID) (*GenerateResult, error) {
	if err := validatePeriod(req.Month, req.Year); err != nil {
		return nil, err
	}
	if !req.All {
		staffID := validation.NormalizeStaffID(req.StaffID)
		if staffID == "" {
			return nil, errors.New("staff_id is required unless all is set")
		}
		member, err := s.activeStaff(ctx, staffID)
		if err != nil {
			return nil, err
		}
		rec := s.newRecord(member.StaffID, member.Name, req, createdBy)
		if err := s.repo.CreateRecord(ctx, rec); err != nil {
			return nil, err
		}
		return &GenerateResult{SuccessCount: 1, Message: summary(1, 0), Records: []*Record{rec}}, nil
	}

	members, err := s.staff.ListStaff(ctx, user.Filter{Status: user.StatusActive})
	if err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	type target struct {
		index int
		staff *user.User
	}
	var targets []target
	for _, m := range members {
		if m.StaffID == "" {
			continue
		}
		targets = append(targets, target{index: len(targets), staff: m})
	}

	created := make([]*Record, len(targets))
	report := bulk.Run(ctx, "salary_generate", targets, s.parallelism, func(ctx context.Context, t target) error {
		rec := s.newRecord(t.staff.StaffID, t.staff.Name, req, createdBy)
		if err := s.repo.CreateRecord(ctx, rec); err != nil {
			return err
		}
		created[t.index] = rec
		return nil
	})

	result := &GenerateResult{
		SuccessCount: report.Succeeded,
		FailCount:    report.Failed,
		Message:      summary(report.Succeeded, report.Failed),
	}
	for _, rec := range created {
		if rec != nil {
			result.Records = append(result.Records, rec)
		}
	}
	for _, f := range report.Failures() {
		result.Failures = append(result.Failures, GenerateFailure{StaffID: f.Item.staff.StaffID, Error: f.Err.Error()})
		s.log.Warn().Err(f.Err).Str("staff_id", f.Item.staff.StaffID).Int("month", req.Month).Int("year", req.Year).
			Msg("salary record not generated")
	}
	return result, nil
}

// activeStaff finds the ACTIVE account holding staffID.
func (s *service) activeStaff(ctx context.Context, staffID string) (*user.User, error) {
	members, err := s.staff.ListStaff(ctx, user.Filter{Status: user.StatusActive})
	if err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	for _, m := range members {
		if m.StaffID != "" && m.StaffID == staffID {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStaff, staffID)
}

func summary(ok, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("%d generated", ok)
	}
	return fmt.Sprintf("%d generated, %d skipped/failed", ok, failed)
}

func (s *service) GetRecord(ctx context.Context, id string) (*Record, error) {
	return s.repo.GetRecord(ctx, id)
}

func (s *service) ListRecords(ctx context.Context, filter Filter) ([]*Record, error) {
	return s.repo.ListRecords(ctx, filter)
}

func (s *service) UpdateRecord(ctx context.Context, id string, req UpdateRequest) (*Record, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT records can be edited (status %s)", ErrInvalidTransition, rec.Status)
	}
	rec.Earnings = req.Earnings
	rec.Deductions = req.Deductions
	rec.Breakdown = Compute(req.Earnings, req.Deductions)
	rec.UpdatedAt = s.now()
	if err := s.repo.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) Approve(ctx context.Context, id string) (*Record, error) {
	return s.transition(ctx, id, StatusApproved)
}

func (s *service) Pay(ctx context.Context, id string) (*Record, error) {
	return s.transition(ctx, id, StatusPaid)
}

func (s *service) transition(ctx context.Context, id string, next Status) (*Record, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rec.Status, next) {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, rec.Status, next)
	}
	now := s.now()
	rec.Status = next
	rec.UpdatedAt = now
	if next == StatusPaid {
		rec.PaidAt = &now
	}
	if err := s.repo.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) DeleteRecord(ctx context.Context, id string) error {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == StatusPaid {
		return fmt.Errorf("%w: paid records cannot be deleted", ErrInvalidTransition)
	}
	return s.repo.DeleteRecord(ctx, id)
}
