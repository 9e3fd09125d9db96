package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayrollEntry is one payroll computation for an employee and period. Its
// adjustment total is the signed sum of every adjustment applied to it; the
// ledger is the only source that may contribute to that total.
type PayrollEntry struct {
	ID              int64           `db:"id" json:"id"`
	EmployeeID      int64           `db:"employee_id" json:"employee_id"`
	PeriodStart     time.Time       `db:"period_start" json:"period_start"`
	PeriodEnd       time.Time       `db:"period_end" json:"period_end"`
	AdjustmentTotal decimal.Decimal `db:"adjustment_total" json:"adjustment_total"`
	AppliedCount    int             `db:"applied_count" json:"applied_count"`
	CreatedBy       int64           `db:"created_by" json:"created_by"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// PayrollRunResult summarises a completed payroll run.
type PayrollRunResult struct {
	Entry       PayrollEntry `json:"entry"`
	Adjustments []Adjustment `json:"adjustments"`
}
