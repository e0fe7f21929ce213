package barrel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const barrelColumns = `id, barrel_id, material_name, batch_no, manufacture_date, expiry_date,
	unit, status, assigned_to, created_at, updated_at`

const insertBarrel = `
	INSERT INTO barrels (id, barrel_id, material_name, batch_no, manufacture_date, expiry_date, unit, status, assigned_to)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9,''))`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func execInsertBarrel(ctx context.Context, db execer, b *Barrel) error {
	_, err := db.ExecContext(ctx, insertBarrel, b.ID, b.BarrelID, b.MaterialName, b.BatchNo,
		b.ManufactureDate, b.ExpiryDate, b.Unit, b.Status, b.AssignedTo)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicate, b.BarrelID)
	}
	return err
}

func (r *postgresRepo) CreateBarrel(ctx context.Context, b *Barrel) error {
	return execInsertBarrel(ctx, r.db, b)
}

// GetBarrel accepts either the row uuid or the BHFP barrel id.
func (r *postgresRepo) GetBarrel(ctx context.Context, id string) (*Barrel, error) {
	if uid, err := uuid.Parse(id); err == nil {
		return scanBarrel(r.db.QueryRowContext(ctx, `SELECT `+barrelColumns+` FROM barrels WHERE id = $1`, uid))
	}
	return scanBarrel(r.db.QueryRowContext(ctx, `SELECT `+barrelColumns+` FROM barrels WHERE barrel_id = upper($1)`, id))
}

func (r *postgresRepo) ListBarrels(ctx context.Context, filter Filter) ([]*Barrel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+barrelColumns+` FROM barrels
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR assigned_to = $2)
		ORDER BY barrel_id ASC`, string(filter.Status), filter.AssignedTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Barrel
	for rows.Next() {
		b, err := scanBarrel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *postgresRepo) ListBarrelIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT barrel_id FROM barrels`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepo) UpdateBarrel(ctx context.Context, b *Barrel) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE barrels SET status=$1, assigned_to=NULLIF($2,''), updated_at=$3
		WHERE id=$4`, b.Status, b.AssignedTo, b.UpdatedAt, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Creation requests ─────────────────────────────────────────────────────────

const requestColumns = `id, requested_by, quantity, material_name, batch_no, manufacture_date,
	expiry_date, unit, notes, status, reviewed_by, review_note, created_at, updated_at`

func (r *postgresRepo) CreateRequest(ctx context.Context, req *CreationRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO barrel_creation_requests
		  (id, requested_by, quantity, material_name, batch_no, manufacture_date, expiry_date, unit, notes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		req.ID, req.RequestedBy, req.Quantity, req.MaterialName, req.BatchNo,
		req.ManufactureDate, req.ExpiryDate, req.Unit, req.Notes, req.Status)
	return err
}

func (r *postgresRepo) GetRequest(ctx context.Context, id string) (*CreationRequest, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrRequestNotFound
	}
	return scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM barrel_creation_requests WHERE id = $1`, uid))
}

func (r *postgresRepo) ListRequests(ctx context.Context, status RequestStatus) ([]*CreationRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM barrel_creation_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*CreationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpdateRequest(ctx context.Context, req *CreationRequest) error {
	return execUpdateRequest(ctx, r.db, req)
}

func execUpdateRequest(ctx context.Context, db execer, req *CreationRequest) error {
	res, err := db.ExecContext(ctx, `
		UPDATE barrel_creation_requests
		SET status=$1, reviewed_by=$2, review_note=$3, updated_at=$4
		WHERE id=$5`, req.Status, req.ReviewedBy, req.ReviewNote, req.UpdatedAt, req.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// ApproveRequest inserts every barrel and flips the request inside a single transaction.
func (r *postgresRepo) ApproveRequest(ctx context.Context, req *CreationRequest, barrels []*Barrel) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range barrels {
		if err := execInsertBarrel(ctx, tx, b); err != nil {
			return fmt.Errorf("insert barrel %s: %w", b.BarrelID, err)
		}
	}
	if err := execUpdateRequest(ctx, tx, req); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanBarrel(row rowScanner) (*Barrel, error) {
	b := &Barrel{}
	var batch, unit, assigned sql.NullString
	var mfg, exp sql.NullTime
	err := row.Scan(&b.ID, &b.BarrelID, &b.MaterialName, &batch, &mfg, &exp,
		&unit, &b.Status, &assigned, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.BatchNo, b.Unit, b.AssignedTo = batch.String, unit.String, assigned.String
	b.ManufactureDate, b.ExpiryDate = nullTime(mfg), nullTime(exp)
	return b, nil
}

func scanRequest(row rowScanner) (*CreationRequest, error) {
	req := &CreationRequest{}
	var batch, unit, notes, reviewedBy, reviewNote sql.NullString
	var mfg, exp sql.NullTime
	err := row.Scan(&req.ID, &req.RequestedBy, &req.Quantity, &req.MaterialName, &batch, &mfg,
		&exp, &unit, &notes, &req.Status, &reviewedBy, &reviewNote, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	req.BatchNo, req.Unit, req.Notes = batch.String, unit.String, notes.String
	req.ReviewedBy, req.ReviewNote = reviewedBy.String, reviewNote.String
	req.ManufactureDate, req.ExpiryDate = nullTime(mfg), nullTime(exp)
	return req, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
