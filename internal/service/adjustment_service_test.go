package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/shiftpay-api/internal/models"
	"github.com/workpulse/shiftpay-api/internal/repository"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
)

type ledgerStub struct {
	created   []*models.Adjustment
	entries   map[int64]models.Adjustment
	applyErr  error
	editErr   error
	applied   []int64
	appliedTo int64
	count     int
}

func (s *ledgerStub) Create(ctx context.Context, adj *models.Adjustment) error {
	adj.ID = int64(len(s.created) + 1)
	s.created = append(s.created, adj)
	return nil
}

func (s *ledgerStub) GetByID(ctx context.Context, id int64) (*models.Adjustment, error) {
	if adj, ok := s.entries[id]; ok {
		return &adj, nil
	}
	return nil, sql.ErrNoRows
}

func (s *ledgerStub) List(ctx context.Context, filter models.AdjustmentFilter) ([]models.Adjustment, int, error) {
	result := []models.Adjustment{}
	for _, adj := range s.entries {
		result = append(result, adj)
	}
	return result, len(result), nil
}

func (s *ledgerStub) ListUnapplied(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time) ([]models.Adjustment, error) {
	result := []models.Adjustment{}
	for _, adj := range s.entries {
		if adj.EmployeeID == employeeID && !adj.IsApplied {
			result = append(result, adj)
		}
	}
	return result, nil
}

func (s *ledgerStub) Apply(ctx context.Context, ids []int64, payrollEntryID int64, appliedBy int64) (int, error) {
	if s.applyErr != nil {
		return 0, s.applyErr
	}
	s.applied = ids
	s.appliedTo = payrollEntryID
	return s.count, nil
}

func (s *ledgerStub) Edit(ctx context.Context, id int64, update models.AdjustmentUpdate, updatedBy int64) (*models.Adjustment, error) {
	if s.editErr != nil {
		return nil, s.editErr
	}
	adj, ok := s.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if update.Amount != nil {
		adj.Amount = *update.Amount
	}
	if update.Description != nil {
		adj.Description = *update.Description
	}
	adj.UpdatedBy = updatedBy
	return &adj, nil
}

type ledgerMetricsStub struct {
	created map[string]int
	applied int
}

func (s *ledgerMetricsStub) IncAdjustmentCreated(adjustmentType string) {
	if s.created == nil {
		s.created = map[string]int{}
	}
	s.created[adjustmentType]++
}

func (s *ledgerMetricsStub) AddAdjustmentsApplied(count int) {
	s.applied += count
}

func TestCreateFromActionNegatesFines(t *testing.T) {
	ledger := &ledgerStub{}
	svc := NewAdjustmentService(ledger, nil, nil, nil)

	action := models.Action{
		Kind:   models.ActionFine,
		Amount: decimal.NewFromInt(25),
		Label:  "Late arrival penalty",
		Code:   "late_penalty",
		Scope:  models.ScopeLate,
		RuleID: 9,
	}
	adj, err := svc.CreateFromAction(context.Background(), action, 100, nil, nil, 1)
	require.NoError(t, err)
	assert.True(t, adj.Amount.Equal(decimal.NewFromInt(-25)))
	assert.Equal(t, models.AdjustmentLateStart, adj.Type)
	assert.False(t, adj.IsApplied)
	assert.Equal(t, int64(9), adj.Details["rule_id"])
	assert.Equal(t, "rule", adj.Details["source"])
}

func TestCreateFromActionBonusStaysPositive(t *testing.T) {
	ledger := &ledgerStub{}
	metrics := &ledgerMetricsStub{}
	svc := NewAdjustmentService(ledger, nil, nil, metrics)

	action := models.Action{
		Kind:   models.ActionBonus,
		Amount: decimal.NewFromInt(10),
		Code:   "task_bonus",
		Scope:  models.ScopeTask,
	}
	adj, err := svc.CreateFromAction(context.Background(), action, 100, nil, nil, 1)
	require.NoError(t, err)
	assert.True(t, adj.Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, models.AdjustmentTaskBonus, adj.Type)
	assert.Equal(t, 1, metrics.created[string(models.AdjustmentTaskBonus)])
}

func TestCreateManualRejectsNonManualType(t *testing.T) {
	ledger := &ledgerStub{}
	svc := NewAdjustmentService(ledger, nil, nil, nil)

	_, err := svc.CreateManual(context.Background(), CreateManualAdjustmentRequest{
		EmployeeID:  100,
		Type:        string(models.AdjustmentLateStart),
		Amount:      decimal.NewFromInt(-5),
		Description: "backdated lateness",
	}, 1)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidAdjustmentType.Code, appErr.Code)
	assert.Empty(t, ledger.created)
}

func TestCreateManualAcceptsManualDeduction(t *testing.T) {
	ledger := &ledgerStub{}
	svc := NewAdjustmentService(ledger, nil, nil, nil)

	adj, err := svc.CreateManual(context.Background(), CreateManualAdjustmentRequest{
		EmployeeID:  100,
		Type:        string(models.AdjustmentManualDeduction),
		Amount:      decimal.NewFromInt(-15),
		Description: "uniform damage",
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentManualDeduction, adj.Type)
	assert.True(t, adj.Amount.Equal(decimal.NewFromInt(-15)))
	assert.Equal(t, int64(3), adj.CreatedBy)
	assert.Equal(t, "manual", adj.Details["source"])
}

func TestEditMapsLedgerErrors(t *testing.T) {
	amount := decimal.NewFromInt(5)

	svc := NewAdjustmentService(&ledgerStub{editErr: repository.ErrAdjustmentFinalized}, nil, nil, nil)
	_, err := svc.Edit(context.Background(), 1, models.AdjustmentUpdate{Amount: &amount}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyFinalized.Code, appErrors.FromError(err).Code)

	svc = NewAdjustmentService(&ledgerStub{editErr: sql.ErrNoRows}, nil, nil, nil)
	_, err = svc.Edit(context.Background(), 1, models.AdjustmentUpdate{Amount: &amount}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEditRejectsEmptyUpdate(t *testing.T) {
	svc := NewAdjustmentService(&ledgerStub{}, nil, nil, nil)

	_, err := svc.Edit(context.Background(), 1, models.AdjustmentUpdate{}, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClaimUnappliedValidatesPeriod(t *testing.T) {
	svc := NewAdjustmentService(&ledgerStub{}, nil, nil, nil)
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.ClaimUnapplied(context.Background(), 100, start, start)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplyReportsClaimedCount(t *testing.T) {
	ledger := &ledgerStub{count: 2}
	metrics := &ledgerMetricsStub{}
	svc := NewAdjustmentService(ledger, nil, nil, metrics)

	// Three requested, one already applied: the count reflects reality.
	count, err := svc.Apply(context.Background(), []int64{1, 2, 3}, 77, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(77), ledger.appliedTo)
	assert.Equal(t, 2, metrics.applied)
}

func TestApplyWrapsStorageFailure(t *testing.T) {
	ledger := &ledgerStub{applyErr: sql.ErrConnDone}
	svc := NewAdjustmentService(ledger, nil, nil, nil)

	_, err := svc.Apply(context.Background(), []int64{1}, 77, 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStorageConflict.Code, appErrors.FromError(err).Code)
}
