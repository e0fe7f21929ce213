package barrel

import "context"

// Repository defines barrel and creation request storage.
type Repository interface {
	CreateBarrel(ctx context.Context, b *Barrel) error
	GetBarrel(ctx context.Context, id string) (*Barrel, error)
	ListBarrels(ctx context.Context, filter Filter) ([]*Barrel, error)
	ListBarrelIDs(ctx context.Context) ([]string, error)
	UpdateBarrel(ctx context.Context, b *Barrel) error

	CreateRequest(ctx context.Context, req *CreationRequest) error
	GetRequest(ctx context.Context, id string) (*CreationRequest, error)
	ListRequests(ctx context.Context, status RequestStatus) ([]*CreationRequest, error)
	UpdateRequest(ctx context.Context, req *CreationRequest) error
	// ApproveRequest stores the approved request and its barrels atomically.
	ApproveRequest(ctx context.Context, req *CreationRequest, barrels []*Barrel) error
}
