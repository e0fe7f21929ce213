package lab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/modules/notification"
	"github.com/rs/zerolog"
)

type memRepo struct {
	intakes map[string]*Incoming
	samples map[string]*Sample
}

func newMemRepo(intakes ...*Incoming) *memRepo {
	m := &memRepo{intakes: map[string]*Incoming{}, samples: map[string]*Sample{}}
	for _, in := range intakes {
		m.intakes[in.IntakeID.String()] = in
	}
	return m
}

func (m *memRepo) checkedIn(intakeID uuid.UUID) bool {
	for _, s := range m.samples {
		if s.IntakeID == intakeID {
			return true
		}
	}
	return false
}

func (m *memRepo) ListIncoming(context.Context) ([]*Incoming, error) {
	var out []*Incoming
	for _, in := range m.intakes {
		if !m.checkedIn(in.IntakeID) {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *memRepo) GetIncoming(_ context.Context, id string) (*Incoming, error) {
	in, ok := m.intakes[id]
	if !ok {
		return nil, ErrIntakeNotFound
	}
	if m.checkedIn(in.IntakeID) {
		return nil, ErrAlreadyCheckedIn
	}
	return in, nil
}

func (m *memRepo) CreateSample(_ context.Context, s *Sample) error {
	cp := *s
	m.samples[s.ID.String()] = &cp
	return nil
}

func (m *memRepo) GetSample(_ context.Context, id string) (*Sample, error) {
	s, ok := m.samples[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) ListSamples(_ context.Context, status Status) ([]*Sample, error) {
	var out []*Sample
	for _, s := range m.samples {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateSample(_ context.Context, s *Sample) error {
	cp := *s
	m.samples[s.ID.String()] = &cp
	return nil
}

type publishFunc func(context.Context, notification.Message) (*notification.Notification, error)

func (f publishFunc) Publish(ctx context.Context, msg notification.Message) (*notification.Notification, error) {
	return f(ctx, msg)
}

var labTech = identity.Identity{UserID: uuid.New(), Role: identity.RoleLab, StaffID: "HFP04"}

func intakeFixture() *Incoming {
	return &Incoming{IntakeID: uuid.New(), CustomerName: "Joseph", CustomerPhone: "9876543210", BarrelCount: 4, ArrivalTime: time.Now()}
}

func TestCheckInValidation(t *testing.T) {
	in := intakeFixture()
	svc := NewService(newMemRepo(in), nil, zerolog.Nop())
	tests := []struct {
		name string
		req  CheckInRequest
	}{
		{"missing intake", CheckInRequest{LatexQuantityKg: 10, DRCPercent: 30}},
		{"zero quantity", CheckInRequest{IntakeID: in.IntakeID.String(), DRCPercent: 30}},
		{"zero drc", CheckInRequest{IntakeID: in.IntakeID.String(), LatexQuantityKg: 10}},
		{"drc above 100", CheckInRequest{IntakeID: in.IntakeID.String(), LatexQuantityKg: 10, DRCPercent: 100.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CheckIn(context.Background(), tt.req, labTech); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if _, err := svc.CheckIn(context.Background(), CheckInRequest{IntakeID: in.IntakeID.String(), LatexQuantityKg: 10, DRCPercent: 100}, labTech); err != nil {
		t.Fatalf("drc of exactly 100 should be accepted: %v", err)
	}
}

func TestCheckInAndSettle(t *testing.T) {
	in := intakeFixture()
	repo := newMemRepo(in)
	var published []notification.Message
	pub := publishFunc(func(_ context.Context, msg notification.Message) (*notification.Notification, error) {
		published = append(published, msg)
		return &notification.Notification{}, nil
	})
	svc := NewService(repo, pub, zerolog.Nop())
	ctx := context.Background()

	incoming, _ := svc.ListIncoming(ctx)
	if len(incoming) != 1 {
		t.Fatalf("expected 1 incoming intake, got %d", len(incoming))
	}
	sample, err := svc.CheckIn(ctx, CheckInRequest{IntakeID: in.IntakeID.String(), LatexQuantityKg: 200, DRCPercent: 35}, labTech)
	if err != nil {
		t.Fatal(err)
	}
	if sample.CheckedInBy != "HFP04" || sample.BarrelCount != 4 {
		t.Fatalf("unexpected sample %+v", sample)
	}
	if len(published) != 1 || published[0].RecipientRole != identity.RoleAccountant {
		t.Fatalf("expected accountant notification, got %+v", published)
	}
	if _, err := svc.CheckIn(ctx, CheckInRequest{IntakeID: in.IntakeID.String(), LatexQuantityKg: 1, DRCPercent: 1}, labTech); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("second check-in should fail, got %v", err)
	}
	if incoming, _ := svc.ListIncoming(ctx); len(incoming) != 0 {
		t.Fatal("checked-in intake still listed as incoming")
	}

	pending, _ := svc.ListPending(ctx)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending sample, got %d", len(pending))
	}
	accountant := identity.Identity{UserID: uuid.New(), Role: identity.RoleAccountant, StaffID: "ACC01"}
	if _, err := svc.Settle(ctx, sample.ID.String(), SettleRequest{RatePerKg: 0}, accountant); err == nil {
		t.Fatal("zero rate should be rejected")
	}
	settled, err := svc.Settle(ctx, sample.ID.String(), SettleRequest{RatePerKg: 150}, accountant)
	if err != nil {
		t.Fatal(err)
	}
	if settled.Status != StatusSettled || settled.Amount == nil || *settled.Amount != 10500 {
		t.Fatalf("unexpected settlement %+v", settled)
	}
	if _, err := svc.Settle(ctx, sample.ID.String(), SettleRequest{RatePerKg: 150}, accountant); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double settlement should fail, got %v", err)
	}
	if pending, _ := svc.ListPending(ctx); len(pending) != 0 {
		t.Fatal("settled sample still pending")
	}
}

func TestCheckInNotificationFailureIsLogged(t *testing.T) {
	in := intakeFixture()
	pub := publishFunc(func(context.Context, notification.Message) (*notification.Notification, error) {
		return nil, errors.New("down")
	})
	svc := NewService(newMemRepo(in), pub, zerolog.Nop())
	if _, err := svc.CheckIn(context.Background(), CheckInRequest{IntakeID: in.IntakeID.String(), LatexQuantityKg: 5, DRCPercent: 40}, labTech); err != nil {
		t.Fatalf("notification failure leaked: %v", err)
	}
}
