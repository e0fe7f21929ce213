package salary

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("salary record not found")
	ErrDuplicate         = errors.New("salary record already exists for this staff member and period")
	ErrInvalidTransition = errors.New("cannot transition salary record")
	ErrUnknownStaff      = errors.New("no active staff member with this staff_id")
)

// ── Status ────────────────────────────────────────────────────────────────────

// Status represents the lifecycle state of a salary record.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusApproved Status = "APPROVED"
	StatusPaid     Status = "PAID"
)

var validTransitions = map[Status][]Status{
	StatusDraft:    {StatusApproved},
	StatusApproved: {StatusPaid},
	StatusPaid:     {},
}

// CanTransition returns true if the record may move from current to next.
func CanTransition(current, next Status) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// ── Calculation ───────────────────────────────────────────────────────────────

// Earnings are the manually entered pay inputs for one period.
type Earnings struct {
	DailyWage float64 `json:"daily_wage"`
	Days      float64 `json:"days"`
	OTHours   float64 `json:"ot_hours"`
	OTRate    float64 `json:"ot_rate"`
	Allowance float64 `json:"allowance"`
}

// Deductions are subtracted from gross pay.
type Deductions struct {
	PF        float64 `json:"pf"`
	ProfTax   float64 `json:"prof_tax"`
	IncomeTax float64 `json:"income_tax"`
	Other     float64 `json:"other"`
}

// Breakdown is the computed result of a wage calculation.
type Breakdown struct {
	GrossSalary     float64 `json:"gross_salary"`
	TotalDeductions float64 `json:"total_deductions"`
	NetSalary       float64 `json:"net_salary"`
}

// Compute applies the wage formula. Values are not rounded and net pay may be
// negative when deductions exceed gross.
func Compute(e Earnings, d Deductions) Breakdown {
	gross := e.DailyWage*e.Days + e.OTHours*e.OTRate + e.Allowance
	total := d.PF + d.ProfTax + d.IncomeTax + d.Other
	return Breakdown{GrossSalary: gross, TotalDeductions: total, NetSalary: gross - total}
}

// ── Record ────────────────────────────────────────────────────────────────────

// Record is a persisted salary entry for one staff member and month.
type Record struct {
	ID         uuid.UUID  `json:"id"`
	StaffID    string     `json:"staff_id"`
	StaffName  string     `json:"staff_name,omitempty"`
	Month      int        `json:"month"`
	Year       int        `json:"year"`
	Earnings   Earnings   `json:"earnings"`
	Deductions Deductions `json:"deductions"`
	Breakdown
	Status    Status     `json:"status"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Filter narrows a record listing. Zero values match everything.
type Filter struct {
	StaffID string
	Month   int
	Year    int
	Status  Status
}

// CalculateRequest is the payload for a preview calculation.
type CalculateRequest struct {
	Earnings   Earnings   `json:"earnings"`
	Deductions Deductions `json:"deductions"`
}

// GenerateRequest creates records for one staff member or, with All set, for
// every active staff member.
type GenerateRequest struct {
	StaffID    string     `json:"staff_id,omitempty"`
	All        bool       `json:"all,omitempty"`
	Month      int        `json:"month"`
	Year       int        `json:"year"`
	Earnings   Earnings   `json:"earnings"`
	Deductions Deductions `json:"deductions"`
}

// GenerateFailure names a staff member whose record was not created.
type GenerateFailure struct {
	StaffID string `json:"staff_id"`
	Error   string `json:"error"`
}

// GenerateResult summarises a generation run.
type GenerateResult struct {
	SuccessCount int               `json:"success_count"`
	FailCount    int               `json:"fail_count"`
	Message      string            `json:"message"`
	Records      []*Record         `json:"records,omitempty"`
	Failures     []GenerateFailure `json:"failures,omitempty"`
}

// UpdateRequest edits a DRAFT record.
type UpdateRequest struct {
	Earnings   Earnings   `json:"earnings"`
	Deductions Deductions `json:"deductions"`
}
