package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/database"
	"github.com/hfpolymers/rubber-ops/internal/identity"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, name, email, phone, staff_id, role, status, password_hash,
	invite_token, invited_at, created_at, updated_at`

func (r *postgresRepository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, name, email, phone, staff_id, role, status, password_hash, invite_token, invited_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7, $8, NULLIF($9,''), $10)
	`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.Phone, user.StaffID,
		user.Role, user.Status, user.PasswordHash, user.InviteToken, user.InvitedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *postgresRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.scan(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, parsedID))
}

func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *postgresRepository) GetUserByInviteToken(ctx context.Context, token string) (*User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE invite_token = $1`, token))
}

func (r *postgresRepository) ListUsers(ctx context.Context, filter Filter) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ($1 = '' OR role = $1) AND ($2 = '' OR status = $2)
		ORDER BY name ASC`, string(filter.Role), string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		u, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *postgresRepository) ListStaffIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT staff_id FROM users WHERE staff_id IS NOT NULL`)
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

func (r *postgresRepository) CountByRole(ctx context.Context, role identity.Role) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n)
	return n, err
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) AcceptInvite(ctx context.Context, id string, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$1, status=$2, invite_token=NULL, updated_at=NOW()
		WHERE id=$3`, passwordHash, StatusVerified, id)
	return err
}

func (r *postgresRepository) ClearStaleInvites(ctx context.Context, sentBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET invite_token=NULL, updated_at=NOW()
		WHERE status=$1 AND invite_token IS NOT NULL AND invited_at < $2`, StatusSent, sentBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepository) scan(row rowScanner) (*User, error) {
	u := &User{}
	var phone, staffID, token sql.NullString
	var invitedAt sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &phone, &staffID, &u.Role, &u.Status,
		&u.PasswordHash, &token, &invitedAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.StaffID = staffID.String
	u.InviteToken = token.String
	if invitedAt.Valid {
		u.InvitedAt = &invitedAt.Time
	}
	return u, nil
}
