package shift

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/database"
	"github.com/hfpolymers/rubber-ops/internal/identity"
	"github.com/hfpolymers/rubber-ops/internal/validation"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// Dates are sent as YYYY-MM-DD text so the session time zone never shifts them.
func dateArg(t time.Time) string { return t.Format(validation.DateLayout) }

func (r *postgresRepo) CreateShift(ctx context.Context, s *Shift) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shifts (id, name, start_time, end_time, category)
		VALUES ($1, $2, $3, $4, NULLIF($5,''))`,
		s.ID, s.Name, s.StartTime, s.EndTime, s.Category)
	return err
}

func (r *postgresRepo) GetShift(ctx context.Context, id string) (*Shift, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return scanShift(r.db.QueryRowContext(ctx,
		`SELECT id, name, start_time, end_time, category, created_at FROM shifts WHERE id = $1`, uid))
}

func (r *postgresRepo) ListShifts(ctx context.Context) ([]*Shift, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, start_time, end_time, category, created_at FROM shifts ORDER BY start_time, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *postgresRepo) DeleteShift(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = $1`, uid)
	if database.IsForeignKeyViolation(err) {
		return ErrShiftInUse
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Assignments ───────────────────────────────────────────────────────────────

const assignmentSelect = `
	SELECT a.id, a.shift_id, s.name, a.staff_id, a.date, a.check_in_time, a.check_out_time,
	       a.status, a.assigned_by, a.created_at, a.updated_at
	FROM shift_assignments a
	JOIN shifts s ON s.id = a.shift_id`

func (r *postgresRepo) CreateAssignment(ctx context.Context, a *Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shift_assignments (id, shift_id, staff_id, date, status, assigned_by)
		VALUES ($1, $2, $3, $4::date, $5, $6)`,
		a.ID, a.ShiftID, a.StaffID, dateArg(a.Date), a.Status, a.AssignedBy)
	if database.IsUniqueViolation(err) {
		return ErrAlreadyAssigned
	}
	return err
}

func (r *postgresRepo) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrAssignmentNotFound
	}
	return scanAssignment(r.db.QueryRowContext(ctx, assignmentSelect+` WHERE a.id = $1`, uid))
}

func (r *postgresRepo) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*Assignment, error) {
	date := ""
	if filter.Date != nil {
		date = dateArg(*filter.Date)
	}
	rows, err := r.db.QueryContext(ctx, assignmentSelect+`
		WHERE ($1 = '' OR a.date = $1::date) AND ($2 = '' OR a.staff_id = $2)
		ORDER BY a.date DESC, s.start_time`, date, filter.StaffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *postgresRepo) AssignedStaffIDs(ctx context.Context, date time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT staff_id FROM shift_assignments WHERE date = $1::date`, dateArg(date))
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

func (r *postgresRepo) UpdateAssignment(ctx context.Context, a *Assignment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE shift_assignments
		SET status=$1, check_in_time=$2, check_out_time=$3, updated_at=$4
		WHERE id=$5`, a.Status, a.CheckInTime, a.CheckOutTime, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (r *postgresRepo) MarkAbsent(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE shift_assignments SET status=$1, updated_at=NOW()
		WHERE status=$2 AND date < $3::date`, StatusAbsent, StatusScheduled, dateArg(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanShift(row rowScanner) (*Shift, error) {
	s := &Shift{}
	var category sql.NullString
	err := row.Scan(&s.ID, &s.Name, &s.StartTime, &s.EndTime, &category, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Category = identity.Role(category.String)
	return s, nil
}

func scanAssignment(row rowScanner) (*Assignment, error) {
	a := &Assignment{}
	var in, out sql.NullTime
	var assignedBy sql.NullString
	err := row.Scan(&a.ID, &a.ShiftID, &a.ShiftName, &a.StaffID, &a.Date, &in, &out,
		&a.Status, &assignedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if in.Valid {
		a.CheckInTime = &in.Time
	}
	if out.Valid {
		a.CheckOutTime = &out.Time
	}
	a.AssignedBy = assignedBy.String
	return a, nil
}
