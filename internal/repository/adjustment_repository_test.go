package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/shiftpay-api/internal/models"
)

func newAdjustmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func adjustmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "employee_id", "shift_id", "object_id", "adjustment_type", "amount", "description",
		"details", "edit_history", "is_applied", "payroll_entry_id", "created_by", "updated_by", "created_at", "updated_at",
	})
}

func TestAdjustmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAdjustmentRepoMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payroll_adjustments")).
		WithArgs(int64(100), nil, nil, models.AdjustmentManualBonus, decimal.NewFromInt(15), "holiday cover",
			sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	adj := &models.Adjustment{
		EmployeeID:  100,
		Type:        models.AdjustmentManualBonus,
		Amount:      decimal.NewFromInt(15),
		Description: "holiday cover",
		IsApplied:   true, // must be forced back to false on insert
		CreatedBy:   1,
		UpdatedBy:   1,
	}
	require.NoError(t, repo.Create(context.Background(), adj))
	assert.Equal(t, int64(42), adj.ID)
	assert.False(t, adj.IsApplied)
	assert.Nil(t, adj.PayrollEntryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentRepositoryApplyIsConditional(t *testing.T) {
	db, mock, cleanup := newAdjustmentRepoMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	// Three requested, only two still unapplied: the affected-row count is
	// what the caller gets back.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payroll_adjustments\nSET is_applied = TRUE, payroll_entry_id = $1, updated_by = $2, updated_at = $3\nWHERE id = ANY($4) AND is_applied = FALSE")).
		WithArgs(int64(77), int64(1), sqlmock.AnyArg(), pq.Array([]int64{1, 2, 3})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.Apply(context.Background(), []int64{1, 2, 3}, 77, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentRepositoryApplyEmptySet(t *testing.T) {
	db, mock, cleanup := newAdjustmentRepoMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	count, err := repo.Apply(context.Background(), nil, 77, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentRepositoryEditRefusesFinalizedAmount(t *testing.T) {
	db, mock, cleanup := newAdjustmentRepoMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs(int64(5)).
		WillReturnRows(adjustmentRows().AddRow(
			int64(5), int64(100), nil, nil, "late_start", "-20", "Late arrival penalty",
			[]byte(`{}`), []byte(`[]`), true, int64(77), int64(1), int64(1), now, now))
	mock.ExpectRollback()

	amount := decimal.NewFromInt(-5)
	_, err := repo.Edit(context.Background(), 5, models.AdjustmentUpdate{Amount: &amount}, 2)
	require.ErrorIs(t, err, ErrAdjustmentFinalized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentRepositoryEditAppendsHistory(t *testing.T) {
	db, mock, cleanup := newAdjustmentRepoMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs(int64(5)).
		WillReturnRows(adjustmentRows().AddRow(
			int64(5), int64(100), nil, nil, "manual_bonus", "15", "holiday cover",
			[]byte(`{"source":"manual"}`), []byte(`[]`), false, nil, int64(1), int64(1), now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payroll_adjustments\nSET amount = $1, description = $2, edit_history = $3, updated_by = $4, updated_at = $5\nWHERE id = $6")).
		WithArgs(decimal.NewFromInt(20), "holiday cover plus travel", sqlmock.AnyArg(), int64(2), sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	amount := decimal.NewFromInt(20)
	description := "holiday cover plus travel"
	adj, err := repo.Edit(context.Background(), 5, models.AdjustmentUpdate{Amount: &amount, Description: &description}, 2)
	require.NoError(t, err)
	require.Len(t, adj.EditHistory, 2)
	assert.Equal(t, "amount", adj.EditHistory[0].Field)
	assert.Equal(t, "15", adj.EditHistory[0].OldValue)
	assert.Equal(t, "20", adj.EditHistory[0].NewValue)
	assert.Equal(t, "description", adj.EditHistory[1].Field)
	assert.Equal(t, int64(2), adj.EditHistory[1].Editor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentRepositoryListUnapplied(t *testing.T) {
	db, mock, cleanup := newAdjustmentRepoMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("is_applied = FALSE AND created_at >= $2 AND created_at < $3")).
		WithArgs(int64(100), start, end).
		WillReturnRows(adjustmentRows().AddRow(
			int64(1), int64(100), nil, nil, "late_start", "-20", "Late arrival penalty",
			[]byte(`{"source":"rule"}`), []byte(`[]`), false, nil, int64(1), int64(1), now, now))

	adjustments, err := repo.ListUnapplied(context.Background(), 100, start, end)
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, "rule", adjustments[0].Details["source"])
	assert.True(t, adjustments[0].Amount.Equal(decimal.NewFromInt(-20)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentRepositorySumApplied(t *testing.T) {
	db, mock, cleanup := newAdjustmentRepoMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payroll_adjustments WHERE payroll_entry_id = $1")).
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("-12.50"))

	total, err := repo.SumApplied(context.Background(), 77)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromFloat(-12.5)))
	require.NoError(t, mock.ExpectationsWereMet())
}
