package shift

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/bulk"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/modules/user"
	"github.com/hfpolymers/rubber-ops/internal/validation"
	"github.com/rs/zerolog"
)

// StaffLister returns staff accounts; user.Service satisfies it.
type StaffLister interface {
	ListStaff(ctx context.Context, filter user.Filter) ([]*user.User, error)
}

// Service defines shift planning and attendance.
type Service interface {
	CreateShift(ctx context.Context, req CreateShiftRequest) (*Shift, error)
	ListShifts(ctx context.Context) ([]*Shift, error)
	DeleteShift(ctx context.Context, id string) error

	AvailableStaff(ctx context.Context, date, shiftID string) ([]StaffMember, error)
	Assign(ctx context.Context, req AssignRequest, by identity.Identity) (*AssignResult, error)
	ListAssignments(ctx context.Context, date, staffID string) ([]*Assignment, error)
	MyAssignments(ctx context.Context, by identity.Identity) ([]*Assignment, error)
	CheckIn(ctx context.Context, id string, by identity.Identity) (*Assignment, error)
	CheckOut(ctx context.Context, id string, by identity.Identity) (*Assignment, error)
	MarkAbsent(ctx context.Context) (int64, error)
}

type service struct {
	repo        Repository
	staff       StaffLister
	parallelism int
	loc         *time.Location
	log         zerolog.Logger
	now         func() time.Time
}

// NewService creates a shift service. loc decides which calendar day "today" is.
func NewService(repo Repository, staff StaffLister, parallelism int, loc *time.Location, log zerolog.Logger) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{repo: repo, staff: staff, parallelism: parallelism, loc: loc, log: log, now: time.Now}
}

func (s *service) today() time.Time {
	return validation.Day(s.now().In(s.loc))
}

func (s *service) CreateShift(ctx context.Context, req CreateShiftRequest) (*Shift, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.New("name is required")
	}
	start, err := ParseClock(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseClock(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("end_time: %w", err)
	}
	if start == end {
		return nil, errors.New("invalid shift: start_time and end_time must differ")
	}
	var category identity.Role
	if strings.TrimSpace(req.Category) != "" {
		role, ok := identity.ParseRole(req.Category)
		if !ok || !role.IsStaff() {
			return nil, fmt.Errorf("invalid category %q", req.Category)
		}
		category = role
	}
	sh := &Shift{
		ID:        uuid.New(),
		Name:      name,
		StartTime: ClockTime(fmt.Sprintf("%02d:%02d", start/60, start%60)),
		EndTime:   ClockTime(fmt.Sprintf("%02d:%02d", end/60, end%60)),
		Category:  category,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateShift(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *service) ListShifts(ctx context.Context) ([]*Shift, error) {
	return s.repo.ListShifts(ctx)
}

func (s *service) DeleteShift(ctx context.Context, id string) error {
	return s.repo.DeleteShift(ctx, id)
}

// ── Assignment ────────────────────────────────────────────────────────────────

// activeStaff returns ACTIVE staff with a staff id, keyed by staff id.
func (s *service) activeStaff(ctx context.Context, role identity.Role) (map[string]*user.User, error) {
	members, err := s.staff.ListStaff(ctx, user.Filter{Role: role, Status: user.StatusActive})
	if err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	out := make(map[string]*user.User, len(members))
	for _, m := range members {
		if m.StaffID == "" || !m.Role.IsStaff() {
			continue
		}
		out[m.StaffID] = m
	}
	return out, nil
}

func (s *service) AvailableStaff(ctx context.Context, date, shiftID string) ([]StaffMember, error) {
	day, err := validation.ParseDate(date)
	if err != nil {
		return nil, err
	}
	var category identity.Role
	if shiftID != "" {
		sh, err := s.repo.GetShift(ctx, shiftID)
		if err != nil {
			return nil, err
		}
		category = sh.Category
	}
	staff, err := s.activeStaff(ctx, category)
	if err != nil {
		return nil, err
	}
	taken, err := s.repo.AssignedStaffIDs(ctx, day)
	if err != nil {
		return nil, err
	}
	for _, id := range taken {
		delete(staff, id)
	}
	out := make([]StaffMember, 0, len(staff))
	for _, m := range staff {
		out = append(out, StaffMember{StaffID: m.StaffID, Name: m.Name, Role: m.Role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StaffID < out[j].StaffID })
	return out, nil
}

// Assign schedules every listed staff member on the shift for the date. One
// failing staff member never blocks the rest.
func (s *service) Assign(ctx context.Context, req AssignRequest, by identity.Identity) (*AssignResult, error) {
	sh, err := s.repo.GetShift(ctx, req.ShiftID)
	if err != nil {
		return nil, err
	}
	day, err := validation.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if day.Before(s.today()) {
		return nil, validation.ErrStartInPast
	}
	var ids []string
	seen := map[string]bool{}
	for _, raw := range req.StaffIDs {
		id := validation.NormalizeStaffID(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("staff_ids is required")
	}
	staff, err := s.activeStaff(ctx, sh.Category)
	if err != nil {
		return nil, err
	}

	assignedBy := by.StaffID
	if assignedBy == "" {
		assignedBy = by.UserID.String()
	}
	created := make([]*Assignment, len(ids))
	type target struct {
		index   int
		staffID string
	}
	targets := make([]target, len(ids))
	for i, id := range ids {
		targets[i] = target{index: i, staffID: id}
	}
	report := bulk.Run(ctx, "shift_assign", targets, s.parallelism, func(ctx context.Context, t target) error {
		if _, ok := staff[t.staffID]; !ok {
			return errors.New("not an active staff member for this shift")
		}
		now := s.now()
		a := &Assignment{
			ID:         uuid.New(),
			ShiftID:    sh.ID,
			ShiftName:  sh.Name,
			StaffID:    t.staffID,
			Date:       day,
			Status:     StatusScheduled,
			AssignedBy: assignedBy,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.CreateAssignment(ctx, a); err != nil {
			return err
		}
		created[t.index] = a
		return nil
	})

	result := &AssignResult{
		SuccessCount: report.Succeeded,
		FailCount:    report.Failed,
		Message:      assignSummary(report.Succeeded, report.Failed),
		Assignments:  []*Assignment{},
	}
	for _, a := range created {
		if a != nil {
			result.Assignments = append(result.Assignments, a)
		}
	}
	for _, f := range report.Failures() {
		result.Failures = append(result.Failures, AssignFailure{StaffID: f.Item.staffID, Error: f.Err.Error()})
		s.log.Warn().Err(f.Err).Str("staff_id", f.Item.staffID).Str("shift_id", sh.ID.String()).
			Str("date", req.Date).Msg("shift not assigned")
	}
	return result, nil
}

func assignSummary(ok, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("%d assigned", ok)
	}
	return fmt.Sprintf("%d assigned, %d skipped/failed", ok, failed)
}

func (s *service) ListAssignments(ctx context.Context, date, staffID string) ([]*Assignment, error) {
	filter := AssignmentFilter{StaffID: validation.NormalizeStaffID(staffID)}
	if date != "" {
		day, err := validation.ParseDate(date)
		if err != nil {
			return nil, err
		}
		filter.Date = &day
	}
	return s.repo.ListAssignments(ctx, filter)
}

func (s *service) MyAssignments(ctx context.Context, by identity.Identity) ([]*Assignment, error) {
	if by.StaffID == "" {
		return []*Assignment{}, nil
	}
	return s.repo.ListAssignments(ctx, AssignmentFilter{StaffID: by.StaffID})
}

// ── Attendance ────────────────────────────────────────────────────────────────

func (s *service) CheckIn(ctx context.Context, id string, by identity.Identity) (*Assignment, error) {
	return s.attend(ctx, id, by, StatusCheckedIn, func(a *Assignment, now time.Time) error {
		if a.Date.After(s.today()) {
			return fmt.Errorf("invalid check-in: shift is on %s", a.Date.Format(validation.DateLayout))
		}
		a.CheckInTime = &now
		return nil
	})
}

func (s *service) CheckOut(ctx context.Context, id string, by identity.Identity) (*Assignment, error) {
	return s.attend(ctx, id, by, StatusCheckedOut, func(a *Assignment, now time.Time) error {
		a.CheckOutTime = &now
		return nil
	})
}

func (s *service) attend(ctx context.Context, id string, by identity.Identity, next AssignmentStatus,
	stamp func(*Assignment, time.Time) error) (*Assignment, error) {
	a, err := s.repo.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if by.Role != identity.RoleManager && by.Role != identity.RoleAdmin && a.StaffID != by.StaffID {
		return nil, ErrNotAssignee
	}
	if !CanTransition(a.Status, next) {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, a.Status, next)
	}
	now := s.now()
	if err := stamp(a, now); err != nil {
		return nil, err
	}
	a.Status = next
	a.UpdatedAt = now
	if err := s.repo.UpdateAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// MarkAbsent closes out every SCHEDULED assignment from before today.
func (s *service) MarkAbsent(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkAbsent(ctx, s.today())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("marked absent")
	}
	return n, nil
}
