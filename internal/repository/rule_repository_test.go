package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/shiftpay-api/internal/models"
)

func newRuleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func ruleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "code", "owner_id", "scope", "priority", "is_active", "condition", "action", "created_at", "updated_at",
	})
}

func TestRuleRepositoryListActiveOrdering(t *testing.T) {
	db, mock, cleanup := newRuleRepoMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE scope = $1 AND is_active = TRUE AND (owner_id = $2 OR owner_id IS NULL)\nORDER BY priority ASC, (owner_id IS NULL) ASC, id ASC")).
		WithArgs(models.ScopeLate, int64(7)).
		WillReturnRows(ruleRows().
			AddRow(int64(2), "tenant_late", int64(7), "late", 10, true, []byte(`{}`), []byte(`{"kind":"fine","amount":"20"}`), now, now).
			AddRow(int64(1), "default_late", nil, "late", 1000, true, []byte(`{}`), []byte(`{"kind":"fine","amount":"99"}`), now, now))

	rules, err := repo.ListActive(context.Background(), 7, models.ScopeLate)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "tenant_late", rules[0].Code)
	assert.Nil(t, rules[1].OwnerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRuleRepoMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO rules")).
		WithArgs("tenant_late", int64(7), models.ScopeLate, 10, true, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	ownerID := int64(7)
	rule := &models.Rule{
		Code:      "tenant_late",
		OwnerID:   &ownerID,
		Scope:     models.ScopeLate,
		Priority:  10,
		IsActive:  true,
		Condition: models.RuleCondition{},
		Action:    models.RuleAction{Kind: models.ActionFine, Label: "Late fine"},
	}
	require.NoError(t, rule.EncodePayloads())
	require.NoError(t, repo.Create(context.Background(), rule))
	assert.Equal(t, int64(5), rule.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepositorySetActiveNotFound(t *testing.T) {
	db, mock, cleanup := newRuleRepoMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE rules SET is_active = $1")).
		WithArgs(false, sqlmock.AnyArg(), int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetActive(context.Background(), 404, false)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
