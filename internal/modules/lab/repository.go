package lab

import "context"

// Repository defines lab sample storage.
type Repository interface {
	ListIncoming(ctx context.Context) ([]*Incoming, error)
	GetIncoming(ctx context.Context, intakeID string) (*Incoming, error)
	CreateSample(ctx context.Context, s *Sample) error
	GetSample(ctx context.Context, id string) (*Sample, error)
	ListSamples(ctx context.Context, status Status) ([]*Sample, error)
	UpdateSample(ctx context.Context, s *Sample) error
}
