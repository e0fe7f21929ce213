package barrel

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/rs/zerolog"
)

type memRepo struct {
	barrels  map[uuid.UUID]*Barrel
	requests map[string]*CreationRequest
}

func newMemRepo() *memRepo {
	return &memRepo{barrels: map[uuid.UUID]*Barrel{}, requests: map[string]*CreationRequest{}}
}

func (m *memRepo) CreateBarrel(_ context.Context, b *Barrel) error {
	for _, existing := range m.barrels {
		if existing.BarrelID == b.BarrelID {
			return ErrDuplicate
		}
	}
	cp := *b
	m.barrels[b.ID] = &cp
	return nil
}

func (m *memRepo) GetBarrel(_ context.Context, id string) (*Barrel, error) {
	for _, b := range m.barrels {
		if b.ID.String() == id || b.BarrelID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) ListBarrels(_ context.Context, f Filter) ([]*Barrel, error) {
	var out []*Barrel
	for _, b := range m.barrels {
		if (f.Status == "" || b.Status == f.Status) && (f.AssignedTo == "" || b.AssignedTo == f.AssignedTo) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BarrelID < out[j].BarrelID })
	return out, nil
}

func (m *memRepo) ListBarrelIDs(context.Context) ([]string, error) {
	var ids []string
	for _, b := range m.barrels {
		ids = append(ids, b.BarrelID)
	}
	return ids, nil
}

func (m *memRepo) UpdateBarrel(_ context.Context, b *Barrel) error {
	if _, ok := m.barrels[b.ID]; !ok {
		return ErrNotFound
	}
	cp := *b
	m.barrels[b.ID] = &cp
	return nil
}

func (m *memRepo) CreateRequest(_ context.Context, req *CreationRequest) error {
	cp := *req
	m.requests[req.ID.String()] = &cp
	return nil
}

func (m *memRepo) GetRequest(_ context.Context, id string) (*CreationRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memRepo) ListRequests(_ context.Context, status RequestStatus) ([]*CreationRequest, error) {
	var out []*CreationRequest
	for _, req := range m.requests {
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateRequest(_ context.Context, req *CreationRequest) error {
	cp := *req
	m.requests[req.ID.String()] = &cp
	return nil
}

func (m *memRepo) ApproveRequest(ctx context.Context, req *CreationRequest, barrels []*Barrel) error {
	for _, b := range barrels {
		if err := m.CreateBarrel(ctx, b); err != nil {
			return err
		}
	}
	return m.UpdateRequest(ctx, req)
}

var (
	admin   = identity.Identity{UserID: uuid.New(), Role: identity.RoleAdmin}
	manager = identity.Identity{UserID: uuid.New(), Role: identity.RoleManager, StaffID: "MGR01"}
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusInStock, StatusAllocated, true},
		{StatusAllocated, StatusInUse, true},
		{StatusAllocated, StatusInStock, true},
		{StatusInUse, StatusReturned, true},
		{StatusReturned, StatusInStock, true},
		{StatusInUse, StatusDamaged, true},
		{StatusInStock, StatusInUse, false},
		{StatusReturned, StatusAllocated, false},
		{StatusDamaged, StatusInStock, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCreateBarrelIDs(t *testing.T) {
	svc := NewService(newMemRepo(), zerolog.Nop())
	ctx := context.Background()

	first, err := svc.CreateBarrel(ctx, CreateRequest{MaterialName: "Latex"})
	if err != nil {
		t.Fatal(err)
	}
	if first.BarrelID != "BHFP01" || first.Status != StatusInStock {
		t.Fatalf("unexpected barrel %+v", first)
	}
	if _, err := svc.CreateBarrel(ctx, CreateRequest{BarrelID: "bhfp120", MaterialName: "Latex"}); err != nil {
		t.Fatalf("explicit id should be accepted: %v", err)
	}
	next, err := svc.CreateBarrel(ctx, CreateRequest{MaterialName: "Latex"})
	if err != nil {
		t.Fatal(err)
	}
	if next.BarrelID != "BHFP121" {
		t.Fatalf("expected BHFP121, got %s", next.BarrelID)
	}
	if _, err := svc.CreateBarrel(ctx, CreateRequest{BarrelID: "BHFP01", MaterialName: "Latex"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestCreateBarrelValidation(t *testing.T) {
	svc := NewService(newMemRepo(), zerolog.Nop())
	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"missing material", CreateRequest{}},
		{"bad id", CreateRequest{BarrelID: "BRL-1", MaterialName: "Latex"}},
		{"single digit id", CreateRequest{BarrelID: "BHFP1", MaterialName: "Latex"}},
		{"bad date", CreateRequest{MaterialName: "Latex", ManufactureDate: "01/02/2025"}},
		{"expiry before manufacture", CreateRequest{MaterialName: "Latex", ManufactureDate: "2025-06-01", ExpiryDate: "2025-05-01"}},
		{"expiry equals manufacture", CreateRequest{MaterialName: "Latex", ManufactureDate: "2025-06-01", ExpiryDate: "2025-06-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateBarrel(context.Background(), tt.req); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBarrelLifecycle(t *testing.T) {
	svc := NewService(newMemRepo(), zerolog.Nop())
	ctx := context.Background()
	b, _ := svc.CreateBarrel(ctx, CreateRequest{MaterialName: "Latex"})

	if _, err := svc.Use(ctx, b.BarrelID, manager); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("in-stock barrel cannot be used, got %v", err)
	}
	got, err := svc.Allocate(ctx, b.BarrelID, " hfp03 ")
	if err != nil {
		t.Fatal(err)
	}
	if got.AssignedTo != "HFP03" || got.Status != StatusAllocated {
		t.Fatalf("unexpected allocation %+v", got)
	}

	other := identity.Identity{UserID: uuid.New(), Role: identity.RoleFieldStaff, StaffID: "HFP04"}
	if _, err := svc.Use(ctx, b.BarrelID, other); !errors.Is(err, ErrNotAssignee) {
		t.Fatalf("expected ErrNotAssignee, got %v", err)
	}
	owner := identity.Identity{UserID: uuid.New(), Role: identity.RoleFieldStaff, StaffID: "HFP03"}
	if _, err := svc.Use(ctx, b.BarrelID, owner); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Return(ctx, b.BarrelID, owner); err != nil {
		t.Fatal(err)
	}
	got, err = svc.Restock(ctx, b.BarrelID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusInStock || got.AssignedTo != "" {
		t.Fatalf("restock should clear assignment, got %+v", got)
	}

	if _, err := svc.Allocate(ctx, b.BarrelID, "HFP05"); err != nil {
		t.Fatal(err)
	}
	if got, err = svc.Unallocate(ctx, b.BarrelID); err != nil || got.AssignedTo != "" {
		t.Fatalf("unallocate: %+v %v", got, err)
	}
	if _, err := svc.Damage(ctx, b.BarrelID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Allocate(ctx, b.BarrelID, "HFP05"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("damaged barrel is terminal, got %v", err)
	}
}

func TestCreationRequestApproval(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()
	if _, err := svc.CreateBarrel(ctx, CreateRequest{BarrelID: "BHFP07", MaterialName: "Latex"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.RequestCreation(ctx, NewCreationRequest{Quantity: 0, MaterialName: "Latex"}, manager); err == nil {
		t.Fatal("zero quantity should be rejected")
	}
	cr, err := svc.RequestCreation(ctx, NewCreationRequest{Quantity: 3, MaterialName: "Latex", Unit: "L"}, manager)
	if err != nil {
		t.Fatal(err)
	}
	if cr.RequestedBy != "MGR01" || cr.Status != RequestPending {
		t.Fatalf("unexpected request %+v", cr)
	}

	res, err := svc.ApproveRequest(ctx, cr.ID.String(), ReviewRequest{Note: "ok"}, admin)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, b := range res.Barrels {
		ids = append(ids, b.BarrelID)
	}
	want := []string{"BHFP08", "BHFP09", "BHFP10"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
	if res.Request.Status != RequestApproved || res.Request.ReviewNote != "ok" {
		t.Fatalf("unexpected request after approval %+v", res.Request)
	}
	if len(repo.barrels) != 4 {
		t.Fatalf("expected 4 barrels stored, got %d", len(repo.barrels))
	}
	if _, err := svc.RejectRequest(ctx, cr.ID.String(), ReviewRequest{}, admin); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approved request cannot be rejected, got %v", err)
	}
}
