package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/workpulse/shiftpay-api/internal/models"
)

// PayrollEntryRepository manages persistence for payroll entries.
type PayrollEntryRepository struct {
	db *sqlx.DB
}

// NewPayrollEntryRepository constructs a new repository.
func NewPayrollEntryRepository(db *sqlx.DB) *PayrollEntryRepository {
	return &PayrollEntryRepository{db: db}
}

const payrollEntryColumns = "id, employee_id, period_start, period_end, adjustment_total, applied_count, created_by, created_at, updated_at"

// Create inserts a new payroll entry and fills in its generated id.
func (r *PayrollEntryRepository) Create(ctx context.Context, entry *models.PayrollEntry) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	query := `INSERT INTO payroll_entries (employee_id, period_start, period_end, adjustment_total, applied_count, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		entry.EmployeeID, entry.PeriodStart, entry.PeriodEnd, entry.AdjustmentTotal,
		entry.AppliedCount, entry.CreatedBy, entry.CreatedAt, entry.UpdatedAt,
	).Scan(&entry.ID); err != nil {
		return fmt.Errorf("create payroll entry: %w", err)
	}
	return nil
}

// GetByID fetches one payroll entry.
func (r *PayrollEntryRepository) GetByID(ctx context.Context, id int64) (*models.PayrollEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM payroll_entries WHERE id = $1", payrollEntryColumns)
	var entry models.PayrollEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByEmployee returns the payroll entries of an employee, newest first.
func (r *PayrollEntryRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]models.PayrollEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM payroll_entries WHERE employee_id = $1 ORDER BY period_start DESC, id DESC", payrollEntryColumns)
	var entries []models.PayrollEntry
	if err := r.db.SelectContext(ctx, &entries, query, employeeID); err != nil {
		return nil, fmt.Errorf("list payroll entries: %w", err)
	}
	return entries, nil
}

// SetTotals records the outcome of a payroll run on the entry.
func (r *PayrollEntryRepository) SetTotals(ctx context.Context, id int64, total decimal.Decimal, appliedCount int) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE payroll_entries SET adjustment_total = $1, applied_count = $2, updated_at = $3 WHERE id = $4",
		total, appliedCount, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set payroll entry totals: %w", err)
	}
	return nil
}
