package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/workpulse/shiftpay-api/internal/models"
)

// RuleRepository manages persistence for policy rules.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository constructs a new repository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = "id, code, owner_id, scope, priority, is_active, condition, action, created_at, updated_at"

// ListActive returns every active rule for the scope that belongs to the owner
// or is a system default, ordered for deterministic resolution. The tie-break
// contract the resolution engine relies on: priority first, tenant rules
// before system defaults at equal priority, then id.
func (r *RuleRepository) ListActive(ctx context.Context, ownerID int64, scope models.RuleScope) ([]models.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM rules
WHERE scope = $1 AND is_active = TRUE AND (owner_id = $2 OR owner_id IS NULL)
ORDER BY priority ASC, (owner_id IS NULL) ASC, id ASC`, ruleColumns)
	var rules []models.Rule
	if err := r.db.SelectContext(ctx, &rules, query, scope, ownerID); err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	return rules, nil
}

// List returns rules per provided filter for the admin surface.
func (r *RuleRepository) List(ctx context.Context, filter models.RuleFilter) ([]models.Rule, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.OwnerID != nil {
		where = append(where, fmt.Sprintf("(owner_id = $%d OR owner_id IS NULL)", len(args)+1))
		args = append(args, *filter.OwnerID)
	}
	if filter.Scope != "" {
		where = append(where, fmt.Sprintf("scope = $%d", len(args)+1))
		args = append(args, filter.Scope)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
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
	query := fmt.Sprintf(`SELECT %s FROM rules WHERE %s ORDER BY scope, priority ASC, id ASC LIMIT %d OFFSET %d`,
		ruleColumns, whereClause, size, offset)
	var rules []models.Rule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rules: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM rules WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rules: %w", err)
	}
	return rules, total, nil
}

// GetByID fetches one rule.
func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*models.Rule, error) {
	query := fmt.Sprintf("SELECT %s FROM rules WHERE id = $1", ruleColumns)
	var rule models.Rule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create inserts a new rule and fills in its generated id.
func (r *RuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	query := `INSERT INTO rules (code, owner_id, scope, priority, is_active, condition, action, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		rule.Code, rule.OwnerID, rule.Scope, rule.Priority, rule.IsActive,
		rule.ConditionRaw, rule.ActionRaw, rule.CreatedAt, rule.UpdatedAt,
	).Scan(&rule.ID); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// Update rewrites the mutable attributes of a rule.
func (r *RuleRepository) Update(ctx context.Context, rule *models.Rule) error {
	rule.UpdatedAt = time.Now().UTC()
	query := `UPDATE rules SET code = :code, priority = :priority, is_active = :is_active,
condition = :condition, action = :action, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rule affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update rule %d: %w", rule.ID, sql.ErrNoRows)
	}
	return nil
}

// SetActive soft-activates or soft-deactivates a rule. Rules referenced by
// historical adjustments are never physically deleted.
func (r *RuleRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE rules SET is_active = $1, updated_at = $2 WHERE id = $3",
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set rule active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set rule active affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set rule active %d: %w", id, sql.ErrNoRows)
	}
	return nil
}
