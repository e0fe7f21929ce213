package shift

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/modules/user"
	"github.com/hfpolymers/rubber-ops/internal/validation"
	"github.com/rs/zerolog"
)

type memRepo struct {
	mu          sync.Mutex
	shifts      map[string]*Shift
	assignments map[string]*Assignment
}

func newMemRepo() *memRepo {
	return &memRepo{shifts: map[string]*Shift{}, assignments: map[string]*Assignment{}}
}

func (m *memRepo) CreateShift(_ context.Context, s *Shift) error {
	cp := *s
	m.shifts[s.ID.String()] = &cp
	return nil
}

func (m *memRepo) GetShift(_ context.Context, id string) (*Shift, error) {
	s, ok := m.shifts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) ListShifts(context.Context) ([]*Shift, error) {
	var out []*Shift
	for _, s := range m.shifts {
		out = append(out, s)
	}
	return out, nil
}

func (m *memRepo) DeleteShift(_ context.Context, id string) error {
	for _, a := range m.assignments {
		if a.ShiftID.String() == id {
			return ErrShiftInUse
		}
	}
	if _, ok := m.shifts[id]; !ok {
		return ErrNotFound
	}
	delete(m.shifts, id)
	return nil
}

func (m *memRepo) CreateAssignment(_ context.Context, a *Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.assignments {
		if existing.StaffID == a.StaffID && existing.Date.Equal(a.Date) {
			return ErrAlreadyAssigned
		}
	}
	cp := *a
	m.assignments[a.ID.String()] = &cp
	return nil
}

func (m *memRepo) GetAssignment(_ context.Context, id string) (*Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) ListAssignments(_ context.Context, f AssignmentFilter) ([]*Assignment, error) {
	var out []*Assignment
	for _, a := range m.assignments {
		if (f.Date == nil || a.Date.Equal(*f.Date)) && (f.StaffID == "" || a.StaffID == f.StaffID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) AssignedStaffIDs(_ context.Context, date time.Time) ([]string, error) {
	var ids []string
	for _, a := range m.assignments {
		if a.Date.Equal(date) {
			ids = append(ids, a.StaffID)
		}
	}
	return ids, nil
}

func (m *memRepo) UpdateAssignment(_ context.Context, a *Assignment) error {
	cp := *a
	m.assignments[a.ID.String()] = &cp
	return nil
}

func (m *memRepo) MarkAbsent(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for _, a := range m.assignments {
		if a.Status == StatusScheduled && a.Date.Before(before) {
			a.Status = StatusAbsent
			n++
		}
	}
	return n, nil
}

type staffList []*user.User

func (s staffList) ListStaff(_ context.Context, f user.Filter) ([]*user.User, error) {
	var out []*user.User
	for _, u := range s {
		if (f.Role == "" || u.Role == f.Role) && (f.Status == "" || u.Status == f.Status) {
			out = append(out, u)
		}
	}
	return out, nil
}

func crew() staffList {
	return staffList{
		{ID: uuid.New(), Name: "Anu", StaffID: "HFP01", Role: identity.RoleFieldStaff, Status: user.StatusActive},
		{ID: uuid.New(), Name: "Biju", StaffID: "HFP02", Role: identity.RoleFieldStaff, Status: user.StatusActive},
		{ID: uuid.New(), Name: "Chitra", StaffID: "HFP03", Role: identity.RoleLab, Status: user.StatusActive},
		{ID: uuid.New(), Name: "Dev", StaffID: "HFP04", Role: identity.RoleFieldStaff, Status: user.StatusSuspended},
		{ID: uuid.New(), Name: "Admin", Role: identity.RoleAdmin, Status: user.StatusActive},
	}
}

var manager = identity.Identity{UserID: uuid.New(), Role: identity.RoleManager, StaffID: "MGR01"}

func newTestService(repo *memRepo, now time.Time) *service {
	svc := NewService(repo, crew(), 2, time.UTC, zerolog.Nop()).(*service)
	svc.now = func() time.Time { return now }
	return svc
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"06:00", 360, true},
		{"23:59", 1439, true},
		{"00:00", 0, true},
		{"24:00", 0, false},
		{"6:00", 0, false},
		{"06:60", 0, false},
		{"0600", 0, false},
		{"ab:cd", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("ParseClock(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestCreateShift(t *testing.T) {
	svc := newTestService(newMemRepo(), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	night, err := svc.CreateShift(ctx, CreateShiftRequest{Name: "Night", StartTime: "22:00", EndTime: "06:00", Category: "field-staff"})
	if err != nil {
		t.Fatal(err)
	}
	if !night.Overnight() || night.DurationMinutes() != 480 || night.Category != identity.RoleFieldStaff {
		t.Fatalf("unexpected shift %+v", night)
	}

	bad := []CreateShiftRequest{
		{StartTime: "06:00", EndTime: "14:00"},
		{Name: "Day", StartTime: "6am", EndTime: "14:00"},
		{Name: "Day", StartTime: "06:00", EndTime: "06:00"},
		{Name: "Day", StartTime: "06:00", EndTime: "14:00", Category: "customer"},
		{Name: "Day", StartTime: "06:00", EndTime: "14:00", Category: "user"},
	}
	for _, req := range bad {
		if _, err := svc.CreateShift(ctx, req); err == nil {
			t.Errorf("expected error for %+v", req)
		}
	}
}

func TestAssignReportsPerStaff(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	sh, _ := svc.CreateShift(ctx, CreateShiftRequest{Name: "Tapping", StartTime: "05:00", EndTime: "11:00", Category: "field_staff"})

	res, err := svc.Assign(ctx, AssignRequest{
		ShiftID:  sh.ID.String(),
		Date:     "2025-06-02",
		StaffIDs: []string{"hfp01", "HFP01", "HFP03", "HFP04", "HFP02"},
	}, manager)
	if err != nil {
		t.Fatal(err)
	}
	// HFP03 is lab (wrong category) and HFP04 is suspended.
	if res.SuccessCount != 2 || res.FailCount != 2 || res.Message != "2 assigned, 2 skipped/failed" {
		t.Fatalf("unexpected result %+v", res)
	}

	again, err := svc.Assign(ctx, AssignRequest{ShiftID: sh.ID.String(), Date: "2025-06-02", StaffIDs: []string{"HFP01"}}, manager)
	if err != nil {
		t.Fatal(err)
	}
	if again.FailCount != 1 || again.Failures[0].Error != ErrAlreadyAssigned.Error() {
		t.Fatalf("duplicate should be reported, got %+v", again)
	}

	if _, err := svc.Assign(ctx, AssignRequest{ShiftID: sh.ID.String(), Date: "2025-05-31", StaffIDs: []string{"HFP01"}}, manager); !errors.Is(err, validation.ErrStartInPast) {
		t.Fatalf("past date should be rejected, got %v", err)
	}
	if _, err := svc.Assign(ctx, AssignRequest{ShiftID: sh.ID.String(), Date: "2025-06-03"}, manager); err == nil {
		t.Fatal("empty staff list should be rejected")
	}
	if err := svc.DeleteShift(ctx, sh.ID.String()); !errors.Is(err, ErrShiftInUse) {
		t.Fatalf("shift with assignments should not be deleted, got %v", err)
	}
}

func TestAvailableStaff(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	sh, _ := svc.CreateShift(ctx, CreateShiftRequest{Name: "Tapping", StartTime: "05:00", EndTime: "11:00", Category: "field_staff"})
	if _, err := svc.Assign(ctx, AssignRequest{ShiftID: sh.ID.String(), Date: "2025-06-02", StaffIDs: []string{"HFP01"}}, manager); err != nil {
		t.Fatal(err)
	}

	got, err := svc.AvailableStaff(ctx, "2025-06-02", sh.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].StaffID != "HFP02" {
		t.Fatalf("expected only HFP02, got %+v", got)
	}

	all, err := svc.AvailableStaff(ctx, "2025-06-02", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].StaffID != "HFP02" || all[1].StaffID != "HFP03" {
		t.Fatalf("expected HFP02 and HFP03, got %+v", all)
	}
}

func TestAttendance(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	sh, _ := svc.CreateShift(ctx, CreateShiftRequest{Name: "Tapping", StartTime: "05:00", EndTime: "11:00"})
	res, _ := svc.Assign(ctx, AssignRequest{ShiftID: sh.ID.String(), Date: "2025-06-01", StaffIDs: []string{"HFP01", "HFP02"}}, manager)
	first, second := res.Assignments[0], res.Assignments[1]
	anu := identity.Identity{UserID: uuid.New(), Role: identity.RoleFieldStaff, StaffID: first.StaffID}

	if _, err := svc.CheckOut(ctx, first.ID.String(), anu); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("check-out before check-in should fail, got %v", err)
	}
	if _, err := svc.CheckIn(ctx, second.ID.String(), anu); !errors.Is(err, ErrNotAssignee) {
		t.Fatalf("checking in someone else should fail, got %v", err)
	}
	a, err := svc.CheckIn(ctx, first.ID.String(), anu)
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusCheckedIn || a.CheckInTime == nil {
		t.Fatalf("unexpected assignment %+v", a)
	}
	if a, err = svc.CheckOut(ctx, first.ID.String(), anu); err != nil || a.CheckOutTime == nil {
		t.Fatalf("check-out: %+v %v", a, err)
	}

	mine, _ := svc.MyAssignments(ctx, anu)
	if len(mine) != 1 {
		t.Fatalf("expected 1 own assignment, got %d", len(mine))
	}

	svc.now = func() time.Time { return time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC) }
	n, err := svc.MarkAbsent(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || repo.assignments[second.ID.String()].Status != StatusAbsent {
		t.Fatalf("expected the unattended assignment marked absent, n=%d", n)
	}
	if repo.assignments[first.ID.String()].Status != StatusCheckedOut {
		t.Fatal("attended assignment must not change")
	}
}

func TestCheckInFutureShift(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	sh, _ := svc.CreateShift(ctx, CreateShiftRequest{Name: "Tapping", StartTime: "05:00", EndTime: "11:00"})
	res, _ := svc.Assign(ctx, AssignRequest{ShiftID: sh.ID.String(), Date: "2025-06-05", StaffIDs: []string{"HFP01"}}, manager)
	if _, err := svc.CheckIn(ctx, res.Assignments[0].ID.String(), manager); err == nil {
		t.Fatal("future shift check-in should fail")
	}
}

func TestShiftJSONIncludesDerivedFields(t *testing.T) {
	cases := []struct {
		start, end string
		overnight  bool
		minutes    int
	}{
		{"22:00", "06:00", true, 480},
		{"06:00", "14:30", false, 510},
	}
	for _, tt := range cases {
		raw, err := json.Marshal(&Shift{Name: "S", StartTime: ClockTime(tt.start), EndTime: ClockTime(tt.end)})
		if err != nil {
			t.Fatal(err)
		}
		var got map[string]any
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatal(err)
		}
		if got["overnight"] != tt.overnight || got["duration_minutes"] != float64(tt.minutes) || got["start_time"] != tt.start {
			t.Fatalf("%s-%s: %s", tt.start, tt.end, raw)
		}
	}
}
