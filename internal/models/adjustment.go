package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentType enumerates the supported ledger entry categories.
type AdjustmentType string

const (
	AdjustmentShiftBase       AdjustmentType = "shift_base"
	AdjustmentLateStart       AdjustmentType = "late_start"
	AdjustmentTaskBonus       AdjustmentType = "task_bonus"
	AdjustmentTaskPenalty     AdjustmentType = "task_penalty"
	AdjustmentManualBonus     AdjustmentType = "manual_bonus"
	AdjustmentManualDeduction AdjustmentType = "manual_deduction"
)

// ManualAdjustmentType reports whether the type is allowed for operator-created
// entries.
func ManualAdjustmentType(t AdjustmentType) bool {
	return t == AdjustmentManualBonus || t == AdjustmentManualDeduction
}

// EditRecord is one entry of an adjustment's append-only edit history.
type EditRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Editor    int64     `json:"editor"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
}

// Adjustment is one ledger entry: a signed monetary correction tied to an
// employee. Positive amounts are additions, negative amounts deductions. Once
// applied to a payroll entry the amount and type are immutable; only the
// description may be corrected, and every correction appends to EditHistory.
type Adjustment struct {
	ID             int64           `db:"id" json:"id"`
	EmployeeID     int64           `db:"employee_id" json:"employee_id"`
	ShiftID        *int64          `db:"shift_id" json:"shift_id,omitempty"`
	ObjectID       *int64          `db:"object_id" json:"object_id,omitempty"`
	Type           AdjustmentType  `db:"adjustment_type" json:"adjustment_type"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Description    string          `db:"description" json:"description"`
	DetailsRaw     []byte          `db:"details" json:"-"`
	EditHistoryRaw []byte          `db:"edit_history" json:"-"`
	IsApplied      bool            `db:"is_applied" json:"is_applied"`
	PayrollEntryID *int64          `db:"payroll_entry_id" json:"payroll_entry_id,omitempty"`
	CreatedBy      int64           `db:"created_by" json:"created_by"`
	UpdatedBy      int64           `db:"updated_by" json:"updated_by"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`

	Details     map[string]interface{} `db:"-" json:"details,omitempty"`
	EditHistory []EditRecord           `db:"-" json:"edit_history,omitempty"`
}

// AdjustmentUpdate carries the editable fields of an adjustment. Nil means the
// field is untouched.
type AdjustmentUpdate struct {
	Amount      *decimal.Decimal
	Description *string
}

// Empty reports whether the update changes nothing.
func (u AdjustmentUpdate) Empty() bool {
	return u.Amount == nil && u.Description == nil
}

// AdjustmentFilter constrains listing queries.
type AdjustmentFilter struct {
	EmployeeID *int64
	ShiftID    *int64
	ObjectID   *int64
	Types      []AdjustmentType
	Applied    *bool
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
