package leave

import (
	"context"
	"time"
)

// Repository defines leave request storage.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, filter Filter) ([]*Request, error)
	Update(ctx context.Context, r *Request) error
	// HasOverlap reports whether staffID has a PENDING or APPROVED request intersecting [start, end].
	HasOverlap(ctx context.Context, staffID string, start, end time.Time) (bool, error)
}
