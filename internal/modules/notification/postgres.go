package notification

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/identity"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a PostgreSQL-backed notification repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const columns = `id, recipient_role, recipient_id, title, message, type, payload, dedupe_key, read_at, created_at`

// visibleTo matches rows addressed to the user directly or broadcast to the role.
const visibleTo = `(recipient_id = $1 OR (recipient_id IS NULL AND recipient_role = $2))`

func (r *postgresRepo) Create(ctx context.Context, n *Notification) (*Notification, bool, error) {
	var payload interface{}
	if len(n.Payload) > 0 {
		payload = string(n.Payload)
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, recipient_role, recipient_id, title, message, type, payload, dedupe_key, created_at)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, NULLIF($8,''), $9)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING `+columns,
		n.ID, string(n.RecipientRole), n.RecipientID, n.Title, n.Message, n.Type, payload, n.DedupeKey, n.CreatedAt)
	stored, err := scan(row)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, ErrNotFound) || n.DedupeKey == "" {
		return nil, false, err
	}
	existing, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM notifications WHERE dedupe_key = $1`, n.DedupeKey))
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *postgresRepo) List(ctx context.Context, to Recipient, f ListFilter) ([]*Notification, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM notifications
		WHERE `+visibleTo+` AND (NOT $3 OR read_at IS NULL)
		ORDER BY created_at DESC LIMIT $4`, to.UserID, string(to.Role), f.UnreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Notification
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *postgresRepo) UnreadCount(ctx context.Context, to Recipient) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE `+visibleTo+` AND read_at IS NULL`,
		to.UserID, string(to.Role)).Scan(&n)
	return n, err
}

func (r *postgresRepo) MarkRead(ctx context.Context, to Recipient, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read_at = COALESCE(read_at, NOW())
		WHERE `+visibleTo+` AND id = $3`, to.UserID, string(to.Role), parsed)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) MarkAllRead(ctx context.Context, to Recipient) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read_at = NOW()
		WHERE `+visibleTo+` AND read_at IS NULL`, to.UserID, string(to.Role))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scan(row rowScanner) (*Notification, error) {
	n := &Notification{}
	var role, dedupe sql.NullString
	var recipientID uuid.NullUUID
	var payload []byte
	var readAt sql.NullTime
	err := row.Scan(&n.ID, &role, &recipientID, &n.Title, &n.Message, &n.Type, &payload, &dedupe, &readAt, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	n.RecipientRole = identity.Role(role.String)
	if recipientID.Valid {
		n.RecipientID = &recipientID.UUID
	}
	if len(payload) > 0 {
		n.Payload = payload
	}
	n.DedupeKey = dedupe.String
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return n, nil
}
