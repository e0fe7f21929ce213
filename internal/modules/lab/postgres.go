package lab

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/database"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a PostgreSQL-backed lab repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

type rowScanner interface{ Scan(dest ...interface{}) error }

const incomingQuery = `SELECT i.id, i.customer_name, i.customer_phone, i.barrel_count, i.barrel_ids, i.arrival_time
	FROM barrel_intakes i
	WHERE NOT EXISTS (SELECT 1 FROM lab_samples s WHERE s.intake_id = i.id)`

func (r *postgresRepo) ListIncoming(ctx context.Context) ([]*Incoming, error) {
	rows, err := r.db.QueryContext(ctx, incomingQuery+` ORDER BY i.arrival_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Incoming
	for rows.Next() {
		in, err := scanIncoming(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *postgresRepo) GetIncoming(ctx context.Context, intakeID string) (*Incoming, error) {
	parsed, err := uuid.Parse(intakeID)
	if err != nil {
		return nil, ErrIntakeNotFound
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM lab_samples WHERE intake_id=$1)`, parsed).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyCheckedIn
	}
	in, err := scanIncoming(r.db.QueryRowContext(ctx, incomingQuery+` AND i.id = $1`, parsed))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIntakeNotFound
	}
	return in, err
}

func scanIncoming(row rowScanner) (*Incoming, error) {
	in := &Incoming{}
	err := row.Scan(&in.IntakeID, &in.CustomerName, &in.CustomerPhone, &in.BarrelCount, pq.Array(&in.BarrelIDs), &in.ArrivalTime)
	if err != nil {
		return nil, err
	}
	return in, nil
}

const sampleColumns = `id, intake_id, customer_name, barrel_count, latex_quantity_kg, drc_percent, notes, status,
	checked_in_by, rate_per_kg, amount, settled_by, settled_at, created_at`

func (r *postgresRepo) CreateSample(ctx context.Context, s *Sample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lab_samples (id, intake_id, customer_name, barrel_count, latex_quantity_kg, drc_percent, notes,
			status, checked_in_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.IntakeID, s.CustomerName, s.BarrelCount, s.LatexQuantityKg, s.DRCPercent, s.Notes,
		s.Status, s.CheckedInBy, s.CreatedAt)
	if database.IsUniqueViolation(err) {
		return ErrAlreadyCheckedIn
	}
	return err
}

func (r *postgresRepo) GetSample(ctx context.Context, id string) (*Sample, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return scanSample(r.db.QueryRowContext(ctx, `SELECT `+sampleColumns+` FROM lab_samples WHERE id=$1`, parsed))
}

func (r *postgresRepo) ListSamples(ctx context.Context, status Status) ([]*Sample, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sampleColumns+` FROM lab_samples
		WHERE ($1 = '' OR status = $1) ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpdateSample(ctx context.Context, s *Sample) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE lab_samples SET status=$1, rate_per_kg=$2, amount=$3, settled_by=$4, settled_at=$5 WHERE id=$6`,
		s.Status, s.RatePerKg, s.Amount, s.SettledBy, s.SettledAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSample(row rowScanner) (*Sample, error) {
	s := &Sample{}
	var notes, checkedInBy, settledBy sql.NullString
	var rate, amount sql.NullFloat64
	var settledAt sql.NullTime
	err := row.Scan(&s.ID, &s.IntakeID, &s.CustomerName, &s.BarrelCount, &s.LatexQuantityKg, &s.DRCPercent, &notes,
		&s.Status, &checkedInBy, &rate, &amount, &settledBy, &settledAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Notes, s.CheckedInBy, s.SettledBy = notes.String, checkedInBy.String, settledBy.String
	if rate.Valid {
		s.RatePerKg = &rate.Float64
	}
	if amount.Valid {
		s.Amount = &amount.Float64
	}
	if settledAt.Valid {
		s.SettledAt = &settledAt.Time
	}
	return s, nil
}
