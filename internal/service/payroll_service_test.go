package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/shiftpay-api/internal/models"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
)

type payrollEntryRepoStub struct {
	entries map[int64]models.PayrollEntry
	nextID  int64
	totals  decimal.Decimal
	counted int
}

func (s *payrollEntryRepoStub) Create(ctx context.Context, entry *models.PayrollEntry) error {
	s.nextID++
	entry.ID = s.nextID
	if s.entries == nil {
		s.entries = map[int64]models.PayrollEntry{}
	}
	s.entries[entry.ID] = *entry
	return nil
}

func (s *payrollEntryRepoStub) GetByID(ctx context.Context, id int64) (*models.PayrollEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return &entry, nil
}

func (s *payrollEntryRepoStub) ListByEmployee(ctx context.Context, employeeID int64) ([]models.PayrollEntry, error) {
	result := []models.PayrollEntry{}
	for _, entry := range s.entries {
		if entry.EmployeeID == employeeID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (s *payrollEntryRepoStub) SetTotals(ctx context.Context, id int64, total decimal.Decimal, appliedCount int) error {
	entry := s.entries[id]
	entry.AdjustmentTotal = total
	entry.AppliedCount = appliedCount
	s.entries[id] = entry
	s.totals = total
	s.counted = appliedCount
	return nil
}

type appliedReaderStub struct {
	byEntry map[int64][]models.Adjustment
	sum     decimal.Decimal
}

func (s *appliedReaderStub) ListByPayrollEntry(ctx context.Context, payrollEntryID int64) ([]models.Adjustment, error) {
	return s.byEntry[payrollEntryID], nil
}

func (s *appliedReaderStub) SumApplied(ctx context.Context, payrollEntryID int64) (decimal.Decimal, error) {
	return s.sum, nil
}

type applierStub struct {
	claimable []models.Adjustment
	applied   int
	gotIDs    []int64
	gotEntry  int64
}

func (s *applierStub) ClaimUnapplied(ctx context.Context, employeeID int64, periodStart, periodEnd time.Time) ([]models.Adjustment, error) {
	return s.claimable, nil
}

func (s *applierStub) Apply(ctx context.Context, adjustmentIDs []int64, payrollEntryID int64, appliedBy int64) (int, error) {
	s.gotIDs = adjustmentIDs
	s.gotEntry = payrollEntryID
	return s.applied, nil
}

func TestPayrollRunStoresAuthoritativeTotals(t *testing.T) {
	entries := &payrollEntryRepoStub{}
	claimable := []models.Adjustment{
		{ID: 1, EmployeeID: 100, Amount: decimal.NewFromInt(-20)},
		{ID: 2, EmployeeID: 100, Amount: decimal.NewFromInt(10)},
		{ID: 3, EmployeeID: 100, Amount: decimal.NewFromInt(5)},
	}
	// One of the three was taken by a concurrent run; the applied sum and
	// count must reflect what this run actually claimed.
	reader := &appliedReaderStub{
		sum: decimal.NewFromInt(-10),
		byEntry: map[int64][]models.Adjustment{
			1: {claimable[0], claimable[1]},
		},
	}
	applier := &applierStub{claimable: claimable, applied: 2}
	svc := NewPayrollService(entries, reader, applier, nil, nil)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	result, err := svc.Run(context.Background(), 100, start, end, 7)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, applier.gotIDs)
	assert.Equal(t, result.Entry.ID, applier.gotEntry)
	assert.Equal(t, 2, result.Entry.AppliedCount)
	assert.True(t, result.Entry.AdjustmentTotal.Equal(decimal.NewFromInt(-10)))
	assert.True(t, entries.totals.Equal(decimal.NewFromInt(-10)))
	assert.Len(t, result.Adjustments, 2)
}

func TestPayrollRunValidatesPeriod(t *testing.T) {
	svc := NewPayrollService(&payrollEntryRepoStub{}, &appliedReaderStub{}, &applierStub{}, nil, nil)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Run(context.Background(), 100, start, start, 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Run(context.Background(), 0, start, start.AddDate(0, 1, 0), 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStatementCSVIncludesTotalFooter(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	entries := &payrollEntryRepoStub{entries: map[int64]models.PayrollEntry{
		1: {ID: 1, EmployeeID: 100, PeriodStart: start, PeriodEnd: start.AddDate(0, 1, 0),
			AdjustmentTotal: decimal.NewFromInt(-10), AppliedCount: 2},
	}}
	reader := &appliedReaderStub{byEntry: map[int64][]models.Adjustment{
		1: {
			{ID: 1, Type: models.AdjustmentLateStart, Amount: decimal.NewFromInt(-20), Description: "Late arrival penalty"},
			{ID: 2, Type: models.AdjustmentTaskBonus, Amount: decimal.NewFromInt(10), Description: "Task completion bonus"},
		},
	}}
	svc := NewPayrollService(entries, reader, &applierStub{}, nil, nil)

	payload, contentType, err := svc.Statement(context.Background(), 1, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.Contains(t, body, "Late arrival penalty")
	assert.Contains(t, body, "task_bonus")
	assert.True(t, strings.Contains(body, "Total"), "statement must carry a total row")
	assert.Contains(t, body, "-10")
}

func TestStatementPDFContentType(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	entries := &payrollEntryRepoStub{entries: map[int64]models.PayrollEntry{
		1: {ID: 1, EmployeeID: 100, PeriodStart: start, PeriodEnd: start.AddDate(0, 1, 0)},
	}}
	svc := NewPayrollService(entries, &appliedReaderStub{}, &applierStub{}, nil, nil)

	payload, contentType, err := svc.Statement(context.Background(), 1, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.NotEmpty(t, payload)
}

func TestStatementHonorsConfiguredFormats(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	entries := &payrollEntryRepoStub{entries: map[int64]models.PayrollEntry{
		1: {ID: 1, EmployeeID: 100, PeriodStart: start, PeriodEnd: start.AddDate(0, 1, 0)},
	}}
	svc := NewPayrollService(entries, &appliedReaderStub{}, &applierStub{}, []string{"csv"}, nil)

	_, contentType, err := svc.Statement(context.Background(), 1, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	_, _, err = svc.Statement(context.Background(), 1, "pdf")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStatementRejectsUnknownFormat(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	entries := &payrollEntryRepoStub{entries: map[int64]models.PayrollEntry{
		1: {ID: 1, EmployeeID: 100, PeriodStart: start, PeriodEnd: start.AddDate(0, 1, 0)},
	}}
	svc := NewPayrollService(entries, &appliedReaderStub{}, &applierStub{}, nil, nil)

	_, _, err := svc.Statement(context.Background(), 1, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
