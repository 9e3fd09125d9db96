package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/workpulse/shiftpay-api/internal/models"
	"github.com/workpulse/shiftpay-api/internal/repository"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
)

type adjustmentLedger interface {
	Create(ctx context.Context, adj *models.Adjustment) error
	GetByID(ctx context.Context, id int64) (*models.Adjustment, error)
	List(ctx context.Context, filter models.AdjustmentFilter) ([]models.Adjustment, int, error)
	ListUnapplied(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time) ([]models.Adjustment, error)
	Apply(ctx context.Context, ids []int64, payrollEntryID int64, appliedBy int64) (int, error)
	Edit(ctx context.Context, id int64, update models.AdjustmentUpdate, updatedBy int64) (*models.Adjustment, error)
}

type ledgerMetrics interface {
	IncAdjustmentCreated(adjustmentType string)
	AddAdjustmentsApplied(count int)
}

// AdjustmentService orchestrates the adjustment ledger: turning resolved rule
// actions into entries, operator-created manual entries, audited edits, and
// the at-most-once hand-off of unapplied entries to a payroll computation.
type AdjustmentService struct {
	ledger    adjustmentLedger
	validator *validator.Validate
	logger    *zap.Logger
	metrics   ledgerMetrics
}

// NewAdjustmentService constructs the service.
func NewAdjustmentService(ledger adjustmentLedger, validate *validator.Validate, logger *zap.Logger, metrics ledgerMetrics) *AdjustmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdjustmentService{ledger: ledger, validator: validate, logger: logger, metrics: metrics}
}

// CreateManualAdjustmentRequest describes an operator-created ledger entry.
type CreateManualAdjustmentRequest struct {
	EmployeeID  int64           `json:"employee_id" validate:"required"`
	Type        string          `json:"adjustment_type" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description string          `json:"description" validate:"required"`
	ShiftID     *int64          `json:"shift_id"`
	ObjectID    *int64          `json:"object_id"`
}

// CreateFromAction records a resolved rule action as an unapplied ledger
// entry. Fines land as negative amounts, bonuses as positive; the originating
// rule is traceable through the details blob, never a foreign key.
func (s *AdjustmentService) CreateFromAction(ctx context.Context, action models.Action, employeeID int64, shiftID, objectID *int64, createdBy int64) (*models.Adjustment, error) {
	if employeeID == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employee_id is required")
	}

	amount := action.Amount.Abs()
	if action.Kind == models.ActionFine {
		amount = amount.Neg()
	}

	details := map[string]interface{}{
		"source": "rule",
		"scope":  string(action.Scope),
		"code":   action.Code,
	}
	if action.RuleID != 0 {
		details["rule_id"] = action.RuleID
	}
	if shiftID != nil {
		details["shift_id"] = *shiftID
	}

	adj := &models.Adjustment{
		EmployeeID:  employeeID,
		ShiftID:     shiftID,
		ObjectID:    objectID,
		Type:        adjustmentTypeForAction(action),
		Amount:      amount,
		Description: action.Label,
		Details:     details,
		CreatedBy:   createdBy,
		UpdatedBy:   createdBy,
	}
	if err := s.ledger.Create(ctx, adj); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record adjustment")
	}
	if s.metrics != nil {
		s.metrics.IncAdjustmentCreated(string(adj.Type))
	}
	s.logger.Info("adjustment recorded from action",
		zap.Int64("adjustment_id", adj.ID),
		zap.Int64("employee_id", employeeID),
		zap.String("code", action.Code),
		zap.String("amount", amount.String()))
	return adj, nil
}

// CreateManual records an operator-entered bonus or deduction. Only the two
// manual types are accepted; the amount's sign is taken as given, the type
// conveys intent only.
func (s *AdjustmentService) CreateManual(ctx context.Context, req CreateManualAdjustmentRequest, createdBy int64) (*models.Adjustment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}
	adjType := models.AdjustmentType(req.Type)
	if !models.ManualAdjustmentType(adjType) {
		return nil, appErrors.Clone(appErrors.ErrInvalidAdjustmentType,
			"manual adjustments must be manual_bonus or manual_deduction")
	}

	adj := &models.Adjustment{
		EmployeeID:  req.EmployeeID,
		ShiftID:     req.ShiftID,
		ObjectID:    req.ObjectID,
		Type:        adjType,
		Amount:      req.Amount,
		Description: req.Description,
		Details:     map[string]interface{}{"source": "manual"},
		CreatedBy:   createdBy,
		UpdatedBy:   createdBy,
	}
	if err := s.ledger.Create(ctx, adj); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record adjustment")
	}
	if s.metrics != nil {
		s.metrics.IncAdjustmentCreated(string(adj.Type))
	}
	return adj, nil
}

// Edit corrects an adjustment. Amount changes on an applied entry are refused;
// every successful change is captured in the entry's edit history.
func (s *AdjustmentService) Edit(ctx context.Context, id int64, update models.AdjustmentUpdate, updatedBy int64) (*models.Adjustment, error) {
	if update.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no editable fields in update")
	}
	adj, err := s.ledger.Edit(ctx, id, update, updatedBy)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "adjustment not found")
		case errors.Is(err, repository.ErrAdjustmentFinalized):
			return nil, appErrors.ErrAlreadyFinalized
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to edit adjustment")
		}
	}
	return adj, nil
}

// ClaimUnapplied lists the unapplied entries for an employee and period. This
// is the single read path a payroll computation uses to gather its inputs; it
// never mutates state.
func (s *AdjustmentService) ClaimUnapplied(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time) ([]models.Adjustment, error) {
	if employeeID == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employee_id is required")
	}
	if !periodEnd.After(periodStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period_end must be after period_start")
	}
	adjustments, err := s.ledger.ListUnapplied(ctx, employeeID, periodStart, periodEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unapplied adjustments")
	}
	return adjustments, nil
}

// Apply atomically marks the given entries as included in the payroll entry.
// Entries already applied are skipped, not an error, so a retry with the same
// id set is safe; the returned count is the number actually claimed.
func (s *AdjustmentService) Apply(ctx context.Context, adjustmentIDs []int64, payrollEntryID int64, appliedBy int64) (int, error) {
	if payrollEntryID == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "payroll_entry_id is required")
	}
	count, err := s.ledger.Apply(ctx, adjustmentIDs, payrollEntryID, appliedBy)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorageConflict.Code, appErrors.ErrStorageConflict.Status,
			"failed to apply adjustments, retry with the same id set")
	}
	if s.metrics != nil && count > 0 {
		s.metrics.AddAdjustmentsApplied(count)
	}
	s.logger.Info("adjustments applied",
		zap.Int64("payroll_entry_id", payrollEntryID),
		zap.Int("requested", len(adjustmentIDs)),
		zap.Int("applied", count))
	return count, nil
}

// Get fetches one ledger entry.
func (s *AdjustmentService) Get(ctx context.Context, id int64) (*models.Adjustment, error) {
	adj, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "adjustment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch adjustment")
	}
	return adj, nil
}

// List returns ledger entries with pagination.
func (s *AdjustmentService) List(ctx context.Context, filter models.AdjustmentFilter) ([]models.Adjustment, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	adjustments, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list adjustments")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return adjustments, pagination, nil
}

// adjustmentTypeForAction maps a resolved action onto a ledger entry type.
// Lateness has a dedicated type; the remaining scopes ledger as task outcomes
// with the originating scope kept in details.
func adjustmentTypeForAction(action models.Action) models.AdjustmentType {
	if action.Scope == models.ScopeLate {
		return models.AdjustmentLateStart
	}
	if action.Kind == models.ActionBonus {
		return models.AdjustmentTaskBonus
	}
	return models.AdjustmentTaskPenalty
}
