package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/validation"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const columns = `id, requester_id, staff_id, leave_type, start_date, end_date, reason, status,
	reviewed_by, review_note, created_at, updated_at`

func (p *postgresRepo) Create(ctx context.Context, r *Request) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO leave_requests (id, requester_id, staff_id, leave_type, start_date, end_date, reason, status)
		VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8)`,
		r.ID, r.RequesterID, r.StaffID, r.LeaveType,
		r.StartDate.Format(validation.DateLayout), r.EndDate.Format(validation.DateLayout), r.Reason, r.Status)
	return err
}

func (p *postgresRepo) Get(ctx context.Context, id string) (*Request, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return scan(p.db.QueryRowContext(ctx, `SELECT `+columns+` FROM leave_requests WHERE id = $1`, uid))
}

func (p *postgresRepo) List(ctx context.Context, filter Filter) ([]*Request, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+columns+` FROM leave_requests
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR staff_id = $2)
		ORDER BY start_date DESC, created_at DESC`, string(filter.Status), filter.StaffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Request
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *postgresRepo) Update(ctx context.Context, r *Request) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE leave_requests SET status=$1, reviewed_by=$2, review_note=$3, updated_at=$4
		WHERE id=$5`, r.Status, r.ReviewedBy, r.ReviewNote, r.UpdatedAt, r.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *postgresRepo) HasOverlap(ctx context.Context, staffID string, start, end time.Time) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leave_requests
			WHERE staff_id = $1 AND status IN ($2, $3)
			  AND start_date <= $5::date AND end_date >= $4::date
		)`, staffID, StatusPending, StatusApproved,
		start.Format(validation.DateLayout), end.Format(validation.DateLayout)).Scan(&exists)
	return exists, err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scan(row rowScanner) (*Request, error) {
	r := &Request{}
	var reason, reviewedBy, reviewNote sql.NullString
	err := row.Scan(&r.ID, &r.RequesterID, &r.StaffID, &r.LeaveType, &r.StartDate, &r.EndDate,
		&reason, &r.Status, &reviewedBy, &reviewNote, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Reason, r.ReviewedBy, r.ReviewNote = reason.String, reviewedBy.String, reviewNote.String
	return r, nil
}
