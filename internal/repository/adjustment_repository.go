package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/workpulse/shiftpay-api/internal/models"
)

// ErrAdjustmentFinalized is returned when an edit touches the amount of an
// adjustment that is already applied to a payroll entry.
var ErrAdjustmentFinalized = errors.New("adjustment is finalized")

// AdjustmentRepository manages persistence for the payroll adjustment ledger.
type AdjustmentRepository struct {
	db *sqlx.DB
}

// NewAdjustmentRepository constructs a new repository.
func NewAdjustmentRepository(db *sqlx.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

const adjustmentColumns = `id, employee_id, shift_id, object_id, adjustment_type, amount, description,
details, edit_history, is_applied, payroll_entry_id, created_by, updated_by, created_at, updated_at`

// Create inserts a new unapplied ledger entry and fills in its generated id.
func (r *AdjustmentRepository) Create(ctx context.Context, adj *models.Adjustment) error {
	now := time.Now().UTC()
	adj.CreatedAt = now
	adj.UpdatedAt = now
	adj.IsApplied = false
	adj.PayrollEntryID = nil
	if err := encodeAdjustmentBlobs(adj); err != nil {
		return err
	}
	query := `INSERT INTO payroll_adjustments
(employee_id, shift_id, object_id, adjustment_type, amount, description, details, edit_history, is_applied, payroll_entry_id, created_by, updated_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NULL, $9, $10, $11, $12) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		adj.EmployeeID, adj.ShiftID, adj.ObjectID, adj.Type, adj.Amount, adj.Description,
		adj.DetailsRaw, adj.EditHistoryRaw, adj.CreatedBy, adj.UpdatedBy, adj.CreatedAt, adj.UpdatedAt,
	).Scan(&adj.ID); err != nil {
		return fmt.Errorf("create adjustment: %w", err)
	}
	return nil
}

// GetByID fetches one ledger entry with decoded details and history.
func (r *AdjustmentRepository) GetByID(ctx context.Context, id int64) (*models.Adjustment, error) {
	query := fmt.Sprintf("SELECT %s FROM payroll_adjustments WHERE id = $1", adjustmentColumns)
	var adj models.Adjustment
	if err := r.db.GetContext(ctx, &adj, query, id); err != nil {
		return nil, err
	}
	if err := decodeAdjustmentBlobs(&adj); err != nil {
		return nil, err
	}
	return &adj, nil
}

// List returns ledger entries per provided filter.
func (r *AdjustmentRepository) List(ctx context.Context, filter models.AdjustmentFilter) ([]models.Adjustment, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.EmployeeID != nil {
		where = append(where, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, *filter.EmployeeID)
	}
	if filter.ShiftID != nil {
		where = append(where, fmt.Sprintf("shift_id = $%d", len(args)+1))
		args = append(args, *filter.ShiftID)
	}
	if filter.ObjectID != nil {
		where = append(where, fmt.Sprintf("object_id = $%d", len(args)+1))
		args = append(args, *filter.ObjectID)
	}
	if len(filter.Types) > 0 {
		values := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			values[i] = string(t)
		}
		where = append(where, fmt.Sprintf("adjustment_type = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(values))
	}
	if filter.Applied != nil {
		where = append(where, fmt.Sprintf("is_applied = $%d", len(args)+1))
		args = append(args, *filter.Applied)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT %s FROM payroll_adjustments WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		adjustmentColumns, whereClause, size, offset)
	var adjustments []models.Adjustment
	if err := r.db.SelectContext(ctx, &adjustments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list adjustments: %w", err)
	}
	for i := range adjustments {
		if err := decodeAdjustmentBlobs(&adjustments[i]); err != nil {
			return nil, 0, err
		}
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payroll_adjustments WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count adjustments: %w", err)
	}
	return adjustments, total, nil
}

// ListUnapplied returns the unapplied entries for an employee whose creation
// time falls inside the period. Read-only: the claim itself happens in Apply.
func (r *AdjustmentRepository) ListUnapplied(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time) ([]models.Adjustment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_adjustments
WHERE employee_id = $1 AND is_applied = FALSE AND created_at >= $2 AND created_at < $3
ORDER BY created_at ASC, id ASC`, adjustmentColumns)
	var adjustments []models.Adjustment
	if err := r.db.SelectContext(ctx, &adjustments, query, employeeID, periodStart, periodEnd); err != nil {
		return nil, fmt.Errorf("list unapplied adjustments: %w", err)
	}
	for i := range adjustments {
		if err := decodeAdjustmentBlobs(&adjustments[i]); err != nil {
			return nil, err
		}
	}
	return adjustments, nil
}

// Apply atomically claims the given entries for a payroll entry. Only rows that
// are still unapplied are touched; the affected-row count is the number of
// entries actually claimed by this call. Rows already applied are skipped, so a
// retry with the same id set is safe.
func (r *AdjustmentRepository) Apply(ctx context.Context, ids []int64, payrollEntryID int64, appliedBy int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE payroll_adjustments
SET is_applied = TRUE, payroll_entry_id = $1, updated_by = $2, updated_at = $3
WHERE id = ANY($4) AND is_applied = FALSE`,
		payrollEntryID, appliedBy, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("apply adjustments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("apply adjustments affected rows: %w", err)
	}
	return int(affected), nil
}

// Edit updates the amount and/or description of a ledger entry inside one
// transaction. The applied flag is re-checked after the row lock is taken, so
// an entry that becomes applied between the caller's read and this write still
// refuses an amount change. Each changed field appends one edit history record.
func (r *AdjustmentRepository) Edit(ctx context.Context, id int64, update models.AdjustmentUpdate, updatedBy int64) (*models.Adjustment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin edit tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := fmt.Sprintf("SELECT %s FROM payroll_adjustments WHERE id = $1 FOR UPDATE", adjustmentColumns)
	var adj models.Adjustment
	if err := tx.GetContext(ctx, &adj, query, id); err != nil {
		return nil, err
	}
	if err := decodeAdjustmentBlobs(&adj); err != nil {
		return nil, err
	}

	if adj.IsApplied && update.Amount != nil {
		return nil, ErrAdjustmentFinalized
	}

	now := time.Now().UTC()
	if update.Amount != nil && !update.Amount.Equal(adj.Amount) {
		adj.EditHistory = append(adj.EditHistory, models.EditRecord{
			Timestamp: now,
			Editor:    updatedBy,
			Field:     "amount",
			OldValue:  adj.Amount.String(),
			NewValue:  update.Amount.String(),
		})
		adj.Amount = *update.Amount
	}
	if update.Description != nil && *update.Description != adj.Description {
		adj.EditHistory = append(adj.EditHistory, models.EditRecord{
			Timestamp: now,
			Editor:    updatedBy,
			Field:     "description",
			OldValue:  adj.Description,
			NewValue:  *update.Description,
		})
		adj.Description = *update.Description
	}
	adj.UpdatedBy = updatedBy
	adj.UpdatedAt = now
	if err := encodeAdjustmentBlobs(&adj); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE payroll_adjustments
SET amount = $1, description = $2, edit_history = $3, updated_by = $4, updated_at = $5
WHERE id = $6`,
		adj.Amount, adj.Description, adj.EditHistoryRaw, adj.UpdatedBy, adj.UpdatedAt, adj.ID,
	); err != nil {
		return nil, fmt.Errorf("edit adjustment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit edit tx: %w", err)
	}
	return &adj, nil
}

// SumApplied returns the signed total of adjustments applied to a payroll entry.
func (r *AdjustmentRepository) SumApplied(ctx context.Context, payrollEntryID int64) (decimal.Decimal, error) {
	var raw sql.NullString
	if err := r.db.GetContext(ctx, &raw,
		"SELECT COALESCE(SUM(amount), 0) FROM payroll_adjustments WHERE payroll_entry_id = $1", payrollEntryID); err != nil {
		return decimal.Zero, fmt.Errorf("sum applied adjustments: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return decimal.Zero, nil
	}
	total, err := decimal.NewFromString(raw.String)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse applied total: %w", err)
	}
	return total, nil
}

// ListByPayrollEntry returns the entries applied to the given payroll entry.
func (r *AdjustmentRepository) ListByPayrollEntry(ctx context.Context, payrollEntryID int64) ([]models.Adjustment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payroll_adjustments WHERE payroll_entry_id = $1 ORDER BY created_at ASC, id ASC`, adjustmentColumns)
	var adjustments []models.Adjustment
	if err := r.db.SelectContext(ctx, &adjustments, query, payrollEntryID); err != nil {
		return nil, fmt.Errorf("list adjustments by payroll entry: %w", err)
	}
	for i := range adjustments {
		if err := decodeAdjustmentBlobs(&adjustments[i]); err != nil {
			return nil, err
		}
	}
	return adjustments, nil
}

func encodeAdjustmentBlobs(adj *models.Adjustment) error {
	if adj.Details == nil {
		adj.Details = map[string]interface{}{}
	}
	details, err := json.Marshal(adj.Details)
	if err != nil {
		return fmt.Errorf("encode adjustment details: %w", err)
	}
	if adj.EditHistory == nil {
		adj.EditHistory = []models.EditRecord{}
	}
	history, err := json.Marshal(adj.EditHistory)
	if err != nil {
		return fmt.Errorf("encode adjustment edit history: %w", err)
	}
	adj.DetailsRaw = details
	adj.EditHistoryRaw = history
	return nil
}

func decodeAdjustmentBlobs(adj *models.Adjustment) error {
	adj.Details = map[string]interface{}{}
	if len(adj.DetailsRaw) > 0 {
		if err := json.Unmarshal(adj.DetailsRaw, &adj.Details); err != nil {
			return fmt.Errorf("decode details of adjustment %d: %w", adj.ID, err)
		}
	}
	adj.EditHistory = []models.EditRecord{}
	if len(adj.EditHistoryRaw) > 0 {
		if err := json.Unmarshal(adj.EditHistoryRaw, &adj.EditHistory); err != nil {
			return fmt.Errorf("decode edit history of adjustment %d: %w", adj.ID, err)
		}
	}
	return nil
}
