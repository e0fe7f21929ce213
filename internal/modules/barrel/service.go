package barrel

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/validation"
	"github.com/rs/zerolog"
)

// ErrNotAssignee is returned when field staff act on a barrel allocated to someone else.
var ErrNotAssignee = errors.New("barrel is not allocated to you")

const (
	idPrefix    = "BHFP"
	maxPerBatch = 500
)

var barrelIDPattern = regexp.MustCompile(`^BHFP\d{2,}$`)

// Service defines barrel inventory and creation request logic.
type Service interface {
	CreateBarrel(ctx context.Context, req CreateRequest) (*Barrel, error)
	GetBarrel(ctx context.Context, id string) (*Barrel, error)
	ListBarrels(ctx context.Context, filter Filter) ([]*Barrel, error)
	Allocate(ctx context.Context, id, staffID string) (*Barrel, error)
	Unallocate(ctx context.Context, id string) (*Barrel, error)
	Use(ctx context.Context, id string, by identity.Identity) (*Barrel, error)
	Return(ctx context.Context, id string, by identity.Identity) (*Barrel, error)
	Restock(ctx context.Context, id string) (*Barrel, error)
	Damage(ctx context.Context, id string) (*Barrel, error)

	RequestCreation(ctx context.Context, req NewCreationRequest, by identity.Identity) (*CreationRequest, error)
	GetRequest(ctx context.Context, id string) (*CreationRequest, error)
	ListRequests(ctx context.Context, status string) ([]*CreationRequest, error)
	ApproveRequest(ctx context.Context, id string, review ReviewRequest, by identity.Identity) (*ApprovalResult, error)
	RejectRequest(ctx context.Context, id string, review ReviewRequest, by identity.Identity) (*CreationRequest, error)
}

type service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time

	// idMu serialises id allocation so concurrent creates do not pick the same BHFP number.
	idMu sync.Mutex
}

func NewService(repo Repository, log zerolog.Logger) Service {
	return &service{repo: repo, log: log, now: time.Now}
}

type dates struct {
	manufacture *time.Time
	expiry      *time.Time
}

func parseDates(manufacture, expiry string) (dates, error) {
	var d dates
	if manufacture != "" {
		t, err := validation.ParseDate(manufacture)
		if err != nil {
			return d, fmt.Errorf("manufacture_date: %w", err)
		}
		d.manufacture = &t
	}
	if expiry != "" {
		t, err := validation.ParseDate(expiry)
		if err != nil {
			return d, fmt.Errorf("expiry_date: %w", err)
		}
		d.expiry = &t
	}
	if d.manufacture != nil && d.expiry != nil && !d.expiry.After(*d.manufacture) {
		return d, errors.New("invalid expiry_date: must be after manufacture_date")
	}
	return d, nil
}

func (s *service) CreateBarrel(ctx context.Context, req CreateRequest) (*Barrel, error) {
	material := strings.TrimSpace(req.MaterialName)
	if material == "" {
		return nil, errors.New("material_name is required")
	}
	d, err := parseDates(req.ManufactureDate, req.ExpiryDate)
	if err != nil {
		return nil, err
	}

	s.idMu.Lock()
	defer s.idMu.Unlock()

	barrelID := strings.ToUpper(strings.TrimSpace(req.BarrelID))
	if barrelID == "" {
		existing, err := s.repo.ListBarrelIDs(ctx)
		if err != nil {
			return nil, err
		}
		if barrelID, err = validation.NextSequentialID(idPrefix, existing, 2, 0); err != nil {
			return nil, err
		}
	} else if !barrelIDPattern.MatchString(barrelID) {
		return nil, fmt.Errorf("invalid barrel_id %q (expected like BHFP01)", req.BarrelID)
	}

	now := s.now()
	b := &Barrel{
		ID:              uuid.New(),
		BarrelID:        barrelID,
		MaterialName:    material,
		BatchNo:         strings.TrimSpace(req.BatchNo),
		ManufactureDate: d.manufacture,
		ExpiryDate:      d.expiry,
		Unit:            strings.TrimSpace(req.Unit),
		Status:          StatusInStock,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateBarrel(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) GetBarrel(ctx context.Context, id string) (*Barrel, error) {
	return s.repo.GetBarrel(ctx, id)
}

func (s *service) ListBarrels(ctx context.Context, filter Filter) ([]*Barrel, error) {
	filter.Status = Status(strings.ToUpper(string(filter.Status)))
	filter.AssignedTo = validation.NormalizeStaffID(filter.AssignedTo)
	return s.repo.ListBarrels(ctx, filter)
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

func (s *service) Allocate(ctx context.Context, id, staffID string) (*Barrel, error) {
	staffID = validation.NormalizeStaffID(staffID)
	if staffID == "" {
		return nil, errors.New("staff_id is required")
	}
	return s.transition(ctx, id, StatusAllocated, func(b *Barrel) error {
		b.AssignedTo = staffID
		return nil
	})
}

func (s *service) Unallocate(ctx context.Context, id string) (*Barrel, error) {
	b, err := s.repo.GetBarrel(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusAllocated {
		return nil, fmt.Errorf("%w: only ALLOCATED barrels can be unallocated (status %s)", ErrInvalidTransition, b.Status)
	}
	return s.apply(ctx, b, StatusInStock, clearAssignee)
}

func (s *service) Use(ctx context.Context, id string, by identity.Identity) (*Barrel, error) {
	return s.transition(ctx, id, StatusInUse, assigneeOnly(by))
}

func (s *service) Return(ctx context.Context, id string, by identity.Identity) (*Barrel, error) {
	return s.transition(ctx, id, StatusReturned, assigneeOnly(by))
}

func (s *service) Restock(ctx context.Context, id string) (*Barrel, error) {
	b, err := s.repo.GetBarrel(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusReturned {
		return nil, fmt.Errorf("%w: only RETURNED barrels can be restocked (status %s)", ErrInvalidTransition, b.Status)
	}
	return s.apply(ctx, b, StatusInStock, clearAssignee)
}

func (s *service) Damage(ctx context.Context, id string) (*Barrel, error) {
	return s.transition(ctx, id, StatusDamaged, nil)
}

func clearAssignee(b *Barrel) error {
	b.AssignedTo = ""
	return nil
}

// assigneeOnly restricts field staff to barrels allocated to them; other roles pass.
func assigneeOnly(by identity.Identity) func(*Barrel) error {
	return func(b *Barrel) error {
		if by.Role == identity.RoleFieldStaff && b.AssignedTo != by.StaffID {
			return ErrNotAssignee
		}
		return nil
	}
}

func (s *service) transition(ctx context.Context, id string, next Status, mutate func(*Barrel) error) (*Barrel, error) {
	b, err := s.repo.GetBarrel(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, b, next, mutate)
}

func (s *service) apply(ctx context.Context, b *Barrel, next Status, mutate func(*Barrel) error) (*Barrel, error) {
	if !CanTransition(b.Status, next) {
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidTransition, b.Status, next)
	}
	if mutate != nil {
		if err := mutate(b); err != nil {
			return nil, err
		}
	}
	b.Status = next
	b.UpdatedAt = s.now()
	if err := s.repo.UpdateBarrel(ctx, b); err != nil {
		return nil, err
	}
	s.log.Info().Str("barrel_id", b.BarrelID).Str("status", string(next)).Msg("barrel status changed")
	return b, nil
}

// ── Creation requests ─────────────────────────────────────────────────────────

func (s *service) RequestCreation(ctx context.Context, req NewCreationRequest, by identity.Identity) (*CreationRequest, error) {
	if req.Quantity < 1 || req.Quantity > maxPerBatch {
		return nil, fmt.Errorf("invalid quantity: must be between 1 and %d", maxPerBatch)
	}
	material := strings.TrimSpace(req.MaterialName)
	if material == "" {
		return nil, errors.New("material_name is required")
	}
	d, err := parseDates(req.ManufactureDate, req.ExpiryDate)
	if err != nil {
		return nil, err
	}
	requestedBy := by.StaffID
	if requestedBy == "" {
		requestedBy = by.UserID.String()
	}
	now := s.now()
	cr := &CreationRequest{
		ID:              uuid.New(),
		RequestedBy:     requestedBy,
		Quantity:        req.Quantity,
		MaterialName:    material,
		BatchNo:         strings.TrimSpace(req.BatchNo),
		ManufactureDate: d.manufacture,
		ExpiryDate:      d.expiry,
		Unit:            strings.TrimSpace(req.Unit),
		Notes:           strings.TrimSpace(req.Notes),
		Status:          RequestPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateRequest(ctx, cr); err != nil {
		return nil, err
	}
	return cr, nil
}

func (s *service) GetRequest(ctx context.Context, id string) (*CreationRequest, error) {
	return s.repo.GetRequest(ctx, id)
}

func (s *service) ListRequests(ctx context.Context, status string) ([]*CreationRequest, error) {
	return s.repo.ListRequests(ctx, RequestStatus(strings.ToUpper(status)))
}

func (s *service) pendingRequest(ctx context.Context, id string, next RequestStatus) (*CreationRequest, error) {
	cr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if cr.Status != RequestPending {
		return nil, fmt.Errorf("%w request from %s to %s", ErrInvalidTransition, cr.Status, next)
	}
	return cr, nil
}

func reviewer(by identity.Identity) string {
	if by.StaffID != "" {
		return by.StaffID
	}
	return by.UserID.String()
}

// ApproveRequest creates Quantity barrels with consecutive BHFP ids.
func (s *service) ApproveRequest(ctx context.Context, id string, review ReviewRequest, by identity.Identity) (*ApprovalResult, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	cr, err := s.pendingRequest(ctx, id, RequestApproved)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListBarrelIDs(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	barrels := make([]*Barrel, 0, cr.Quantity)
	for i := 0; i < cr.Quantity; i++ {
		next, err := validation.NextSequentialID(idPrefix, existing, 2, 0)
		if err != nil {
			return nil, err
		}
		existing = append(existing, next)
		barrels = append(barrels, &Barrel{
			ID:              uuid.New(),
			BarrelID:        next,
			MaterialName:    cr.MaterialName,
			BatchNo:         cr.BatchNo,
			ManufactureDate: cr.ManufactureDate,
			ExpiryDate:      cr.ExpiryDate,
			Unit:            cr.Unit,
			Status:          StatusInStock,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	cr.Status = RequestApproved
	cr.ReviewedBy = reviewer(by)
	cr.ReviewNote = strings.TrimSpace(review.Note)
	cr.UpdatedAt = now
	if err := s.repo.ApproveRequest(ctx, cr, barrels); err != nil {
		return nil, err
	}
	s.log.Info().Str("request_id", cr.ID.String()).Int("barrels", len(barrels)).Msg("barrel request approved")
	return &ApprovalResult{Request: cr, Barrels: barrels}, nil
}

func (s *service) RejectRequest(ctx context.Context, id string, review ReviewRequest, by identity.Identity) (*CreationRequest, error) {
	cr, err := s.pendingRequest(ctx, id, RequestRejected)
	if err != nil {
		return nil, err
	}
	cr.Status = RequestRejected
	cr.ReviewedBy = reviewer(by)
	cr.ReviewNote = strings.TrimSpace(review.Note)
	cr.UpdatedAt = s.now()
	if err := s.repo.UpdateRequest(ctx, cr); err != nil {
		return nil, err
	}
	return cr, nil
}
