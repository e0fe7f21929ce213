package leave

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/modules/notification"
	"github.com/hfpolymers/rubber-ops/internal/validation"
	"github.com/rs/zerolog"
)

type memRepo struct{ items map[string]*Request }

func newMemRepo() *memRepo { return &memRepo{items: map[string]*Request{}} }

func (m *memRepo) Create(_ context.Context, r *Request) error {
	cp := *r
	m.items[r.ID.String()] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*Request, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]*Request, error) {
	var out []*Request
	for _, r := range m.items {
		if (f.Status == "" || r.Status == f.Status) && (f.StaffID == "" || r.StaffID == f.StaffID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, r *Request) error {
	cp := *r
	m.items[r.ID.String()] = &cp
	return nil
}

func (m *memRepo) HasOverlap(_ context.Context, staffID string, start, end time.Time) (bool, error) {
	for _, r := range m.items {
		if r.StaffID != staffID || r.Status == StatusRejected {
			continue
		}
		if !r.StartDate.After(end) && !r.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

type recorder struct{ msgs []notification.Message }

func (r *recorder) Publish(_ context.Context, msg notification.Message) (*notification.Notification, error) {
	r.msgs = append(r.msgs, msg)
	return &notification.Notification{}, nil
}

var (
	tapper  = identity.Identity{UserID: uuid.New(), Role: identity.RoleFieldStaff, StaffID: "HFP01"}
	manager = identity.Identity{UserID: uuid.New(), Role: identity.RoleManager, StaffID: "MGR01"}
)

func newTestService(repo Repository, pub notification.Publisher) *service {
	svc := NewService(repo, pub, time.UTC, zerolog.Nop()).(*service)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	tests := []struct {
		name    string
		req     CreateRequest
		by      identity.Identity
		wantErr error
	}{
		{"start in past", CreateRequest{LeaveType: "sick", StartDate: "2025-03-09", EndDate: "2025-03-11"}, tapper, validation.ErrStartInPast},
		{"end before start", CreateRequest{LeaveType: "sick", StartDate: "2025-03-12", EndDate: "2025-03-11"}, tapper, validation.ErrEndBeforeStart},
		{"too far ahead", CreateRequest{LeaveType: "sick", StartDate: "2027-03-11", EndDate: "2027-03-12"}, tapper, validation.ErrStartTooFar},
		{"unknown type", CreateRequest{LeaveType: "holiday", StartDate: "2025-03-10", EndDate: "2025-03-10"}, tapper, nil},
		{"bad date", CreateRequest{LeaveType: "sick", StartDate: "10-03-2025", EndDate: "2025-03-10"}, tapper, nil},
		{"no staff id", CreateRequest{LeaveType: "sick", StartDate: "2025-03-10", EndDate: "2025-03-10"}, identity.Identity{Role: identity.RoleAdmin}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req, tt.by)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLeaveWorkflow(t *testing.T) {
	repo := newMemRepo()
	pub := &recorder{}
	svc := newTestService(repo, pub)
	ctx := context.Background()

	lr, err := svc.Create(ctx, CreateRequest{LeaveType: "casual", StartDate: "2025-03-10", EndDate: "2025-03-12", Reason: " family "}, tapper)
	if err != nil {
		t.Fatal(err)
	}
	if lr.Days() != 3 || lr.LeaveType != TypeCasual || lr.Reason != "family" {
		t.Fatalf("unexpected request %+v", lr)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].RecipientRole != identity.RoleManager {
		t.Fatalf("manager should be notified, got %+v", pub.msgs)
	}

	if _, err := svc.Create(ctx, CreateRequest{LeaveType: "sick", StartDate: "2025-03-12", EndDate: "2025-03-14"}, tapper); !errors.Is(err, ErrOverlap) {
		t.Fatalf("overlapping request should fail, got %v", err)
	}
	if _, err := svc.Approve(ctx, lr.ID.String(), ReviewRequest{}, tapper); !errors.Is(err, ErrSelfReview) {
		t.Fatalf("self review should fail, got %v", err)
	}

	approved, err := svc.Approve(ctx, lr.ID.String(), ReviewRequest{Note: "enjoy"}, manager)
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != StatusApproved || approved.ReviewedBy != "MGR01" {
		t.Fatalf("unexpected review %+v", approved)
	}
	last := pub.msgs[len(pub.msgs)-1]
	if last.RecipientID == nil || *last.RecipientID != tapper.UserID {
		t.Fatalf("requester should be notified, got %+v", last)
	}
	if _, err := svc.Reject(ctx, lr.ID.String(), ReviewRequest{}, manager); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reviewed request cannot be rejected, got %v", err)
	}

	mine, _ := svc.Mine(ctx, tapper)
	if len(mine) != 1 {
		t.Fatalf("expected 1 own request, got %d", len(mine))
	}
	pending, _ := svc.List(ctx, "pending")
	if len(pending) != 0 {
		t.Fatalf("expected no pending requests, got %d", len(pending))
	}
}

func TestRejectedLeaveFreesDates(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	ctx := context.Background()
	lr, err := svc.Create(ctx, CreateRequest{LeaveType: "earned", StartDate: "2025-04-01", EndDate: "2025-04-05"}, tapper)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reject(ctx, lr.ID.String(), ReviewRequest{Note: "peak season"}, manager); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, CreateRequest{LeaveType: "earned", StartDate: "2025-04-02", EndDate: "2025-04-03"}, tapper); err != nil {
		t.Fatalf("rejected leave should not block new requests: %v", err)
	}
}
