package shift

import (
	"context"
	"time"
)

// Repository defines shift and assignment storage.
type Repository interface {
	CreateShift(ctx context.Context, s *Shift) error
	GetShift(ctx context.Context, id string) (*Shift, error)
	ListShifts(ctx context.Context) ([]*Shift, error)
	DeleteShift(ctx context.Context, id string) error

	CreateAssignment(ctx context.Context, a *Assignment) error
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*Assignment, error)
	AssignedStaffIDs(ctx context.Context, date time.Time) ([]string, error)
	UpdateAssignment(ctx context.Context, a *Assignment) error
	// MarkAbsent flips SCHEDULED assignments dated before the given day to ABSENT.
	MarkAbsent(ctx context.Context, before time.Time) (int64, error)
}
