package notification

import "context"

// Repository defines notification storage.
type Repository interface {
	// Create stores n unless another notification already holds its dedupe
	// key. created is false when the existing row was returned instead.
	Create(ctx context.Context, n *Notification) (stored *Notification, created bool, err error)
	List(ctx context.Context, to Recipient, filter ListFilter) ([]*Notification, error)
	UnreadCount(ctx context.Context, to Recipient) (int, error)
	MarkRead(ctx context.Context, to Recipient, id string) error
	MarkAllRead(ctx context.Context, to Recipient) (int64, error)
}
