package intake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a PostgreSQL-backed intake repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

type rowScanner interface{ Scan(dest ...interface{}) error }

func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return err
}

func parseID(what, id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return parsed, nil
}

// ── Sell requests ─────────────────────────────────────────────────────────────

const sellColumns = `id, customer_id, customer_name, customer_phone, barrel_count, notes, status,
	reviewed_by, review_note, created_at, updated_at`

func (r *postgresRepo) CreateSellRequest(ctx context.Context, s *SellRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sell_requests (id, customer_id, customer_name, customer_phone, barrel_count, notes, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.CustomerID, s.CustomerName, s.CustomerPhone, s.BarrelCount, s.Notes, s.Status, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *postgresRepo) GetSellRequest(ctx context.Context, id string) (*SellRequest, error) {
	parsed, err := parseID("sell request", id)
	if err != nil {
		return nil, err
	}
	s, err := scanSell(r.db.QueryRowContext(ctx, `SELECT `+sellColumns+` FROM sell_requests WHERE id=$1`, parsed))
	return s, notFound("sell request", err)
}

func (r *postgresRepo) ListSellRequests(ctx context.Context, status SellStatus) ([]*SellRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sellColumns+` FROM sell_requests
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*SellRequest
	for rows.Next() {
		s, err := scanSell(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpdateSellRequest(ctx context.Context, s *SellRequest) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sell_requests SET status=$1, reviewed_by=$2, review_note=$3, updated_at=$4 WHERE id=$5`,
		s.Status, s.ReviewedBy, s.ReviewNote, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sell request %w", ErrNotFound)
	}
	return nil
}

func scanSell(row rowScanner) (*SellRequest, error) {
	s := &SellRequest{}
	var customerID, reviewedBy uuid.NullUUID
	var notes, note sql.NullString
	err := row.Scan(&s.ID, &customerID, &s.CustomerName, &s.CustomerPhone, &s.BarrelCount, &notes, &s.Status,
		&reviewedBy, &note, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		s.CustomerID = &customerID.UUID
	}
	if reviewedBy.Valid {
		s.ReviewedBy = &reviewedBy.UUID
	}
	s.Notes, s.ReviewNote = notes.String, note.String
	return s, nil
}

// ── Delivery tasks ────────────────────────────────────────────────────────────

const taskColumns = `t.id, t.sell_request_id, t.assigned_to, s.customer_name, s.customer_phone, s.barrel_count,
	t.status, t.created_at, t.updated_at`

const taskFrom = ` FROM delivery_tasks t JOIN sell_requests s ON s.id = t.sell_request_id`

func (r *postgresRepo) CreateTask(ctx context.Context, t *DeliveryTask) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_tasks (id, sell_request_id, assigned_to, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`, t.ID, t.SellRequestID, t.AssignedTo, t.Status, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *postgresRepo) GetTask(ctx context.Context, id string) (*DeliveryTask, error) {
	parsed, err := parseID("delivery task", id)
	if err != nil {
		return nil, err
	}
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+taskFrom+` WHERE t.id=$1`, parsed))
	return t, notFound("delivery task", err)
}

func (r *postgresRepo) ListTasks(ctx context.Context, assignedTo string) ([]*DeliveryTask, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+taskFrom+`
		WHERE ($1 = '' OR t.assigned_to = $1) ORDER BY t.created_at DESC`, assignedTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*DeliveryTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE delivery_tasks SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delivery task %w", ErrNotFound)
	}
	return nil
}

func scanTask(row rowScanner) (*DeliveryTask, error) {
	t := &DeliveryTask{}
	err := row.Scan(&t.ID, &t.SellRequestID, &t.AssignedTo, &t.CustomerName, &t.CustomerPhone, &t.BarrelCount,
		&t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ── Intakes ───────────────────────────────────────────────────────────────────

const intakeColumns = `id, sell_request_id, task_id, customer_name, customer_phone, barrel_count, barrel_ids,
	arrival_time, recorded_by, created_at`

func (r *postgresRepo) CreateIntake(ctx context.Context, in *Intake) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO barrel_intakes (id, sell_request_id, task_id, customer_name, customer_phone, barrel_count,
			barrel_ids, arrival_time, recorded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		in.ID, in.SellRequestID, in.TaskID, in.CustomerName, in.CustomerPhone, in.BarrelCount,
		pq.Array(in.BarrelIDs), in.ArrivalTime, in.RecordedBy, in.CreatedAt)
	return err
}

func (r *postgresRepo) GetIntake(ctx context.Context, id string) (*Intake, error) {
	parsed, err := parseID("intake", id)
	if err != nil {
		return nil, err
	}
	in, err := scanIntake(r.db.QueryRowContext(ctx, `SELECT `+intakeColumns+` FROM barrel_intakes WHERE id=$1`, parsed))
	return in, notFound("intake", err)
}

func (r *postgresRepo) ListIntakes(ctx context.Context, f IntakeFilter) ([]*Intake, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+intakeColumns+` FROM barrel_intakes
		WHERE ($1 = '' OR recorded_by = $1) ORDER BY arrival_time DESC LIMIT $2`, f.RecordedBy, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Intake
	for rows.Next() {
		in, err := scanIntake(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func scanIntake(row rowScanner) (*Intake, error) {
	in := &Intake{}
	var sellID, taskID uuid.NullUUID
	var recordedBy sql.NullString
	err := row.Scan(&in.ID, &sellID, &taskID, &in.CustomerName, &in.CustomerPhone, &in.BarrelCount,
		pq.Array(&in.BarrelIDs), &in.ArrivalTime, &recordedBy, &in.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sellID.Valid {
		in.SellRequestID = &sellID.UUID
	}
	if taskID.Valid {
		in.TaskID = &taskID.UUID
	}
	in.RecordedBy = recordedBy.String
	return in, nil
}
