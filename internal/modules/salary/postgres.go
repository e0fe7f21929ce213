package salary

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/hfpolymers/rubber-ops/internal/database"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a PostgreSQL-backed salary repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const recordColumns = `s.id, s.staff_id, COALESCE(u.name,''), s.month, s.year,
	s.daily_wage, s.days, s.ot_hours, s.ot_rate, s.allowance,
	s.pf, s.prof_tax, s.income_tax, s.other_deductions,
	s.gross_salary, s.total_deductions, s.net_salary,
	s.status, s.created_by, s.paid_at, s.created_at, s.updated_at`

const recordFrom = ` FROM salary_records s LEFT JOIN users u ON u.staff_id = s.staff_id`

func (r *postgresRepo) CreateRecord(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO salary_records
			(id, staff_id, month, year, daily_wage, days, ot_hours, ot_rate, allowance,
			 pf, prof_tax, income_tax, other_deductions, gross_salary, total_deductions, net_salary,
			 status, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		rec.ID, rec.StaffID, rec.Month, rec.Year,
		rec.Earnings.DailyWage, rec.Earnings.Days, rec.Earnings.OTHours, rec.Earnings.OTRate, rec.Earnings.Allowance,
		rec.Deductions.PF, rec.Deductions.ProfTax, rec.Deductions.IncomeTax, rec.Deductions.Other,
		rec.GrossSalary, rec.TotalDeductions, rec.NetSalary,
		rec.Status, rec.CreatedBy, rec.CreatedAt, rec.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *postgresRepo) GetRecord(ctx context.Context, id string) (*Record, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.scan(r.db.QueryRowContext(ctx, `SELECT `+recordColumns+recordFrom+` WHERE s.id = $1`, parsed))
}

func (r *postgresRepo) ListRecords(ctx context.Context, f Filter) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+recordFrom+`
		WHERE ($1 = '' OR s.staff_id = $1)
		  AND ($2 = 0 OR s.month = $2)
		  AND ($3 = 0 OR s.year = $3)
		  AND ($4 = '' OR s.status = $4)
		ORDER BY s.year DESC, s.month DESC, s.staff_id ASC`,
		f.StaffID, f.Month, f.Year, string(f.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Record
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpdateRecord(ctx context.Context, rec *Record) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE salary_records SET
			daily_wage=$1, days=$2, ot_hours=$3, ot_rate=$4, allowance=$5,
			pf=$6, prof_tax=$7, income_tax=$8, other_deductions=$9,
			gross_salary=$10, total_deductions=$11, net_salary=$12,
			status=$13, paid_at=$14, updated_at=$15
		WHERE id=$16`,
		rec.Earnings.DailyWage, rec.Earnings.Days, rec.Earnings.OTHours, rec.Earnings.OTRate, rec.Earnings.Allowance,
		rec.Deductions.PF, rec.Deductions.ProfTax, rec.Deductions.IncomeTax, rec.Deductions.Other,
		rec.GrossSalary, rec.TotalDeductions, rec.NetSalary,
		rec.Status, rec.PaidAt, rec.UpdatedAt, rec.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteRecord(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM salary_records WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*Record, error) {
	rec := &Record{}
	var createdBy uuid.NullUUID
	var paidAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.StaffID, &rec.StaffName, &rec.Month, &rec.Year,
		&rec.Earnings.DailyWage, &rec.Earnings.Days, &rec.Earnings.OTHours, &rec.Earnings.OTRate, &rec.Earnings.Allowance,
		&rec.Deductions.PF, &rec.Deductions.ProfTax, &rec.Deductions.IncomeTax, &rec.Deductions.Other,
		&rec.GrossSalary, &rec.TotalDeductions, &rec.NetSalary,
		&rec.Status, &createdBy, &paidAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		rec.CreatedBy = &createdBy.UUID
	}
	if paidAt.Valid {
		rec.PaidAt = &paidAt.Time
	}
	return rec, nil
}
