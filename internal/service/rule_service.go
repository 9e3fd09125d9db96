package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/workpulse/shiftpay-api/internal/models"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
)

type ruleRepository interface {
	List(ctx context.Context, filter models.RuleFilter) ([]models.Rule, int, error)
	GetByID(ctx context.Context, id int64) (*models.Rule, error)
	Create(ctx context.Context, rule *models.Rule) error
	Update(ctx context.Context, rule *models.Rule) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type ruleCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RuleService provides the administrative surface over the rule store. Rules
// authored here are validated and encoded at write time, so MalformedRule
// stays a legacy-data concern of the resolution path.
type RuleService struct {
	repo      ruleRepository
	cache     ruleCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRuleService constructs the service.
func NewRuleService(repo ruleRepository, cache ruleCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *RuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// SaveRuleRequest describes a rule create or update payload.
type SaveRuleRequest struct {
	Code            string                 `json:"code" validate:"required"`
	OwnerID         *int64                 `json:"owner_id"`
	Scope           string                 `json:"scope" validate:"required"`
	Priority        int                    `json:"priority"`
	IsActive        bool                   `json:"is_active"`
	Condition       map[string]interface{} `json:"condition"`
	ActionKind      string                 `json:"action_kind" validate:"required"`
	Amount          decimal.Decimal        `json:"amount"`
	AmountPerMinute *decimal.Decimal       `json:"amount_per_minute"`
	Label           string                 `json:"label" validate:"required"`
	ActionCode      string                 `json:"action_code"`
}

// List returns rules with pagination.
func (s *RuleService) List(ctx context.Context, filter models.RuleFilter) ([]models.Rule, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	rules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rules")
	}
	for i := range rules {
		if err := rules[i].Decode(); err != nil {
			// Shown as-is in the admin surface; resolution skips these.
			s.logger.Warn("listing malformed rule", zap.Int64("rule_id", rules[i].ID), zap.Error(err))
		}
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rules, pagination, nil
}

// Get fetches one rule.
func (s *RuleService) Get(ctx context.Context, id int64) (*models.Rule, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch rule")
	}
	if err := rule.Decode(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedRule.Code, appErrors.ErrMalformedRule.Status, "stored rule cannot be parsed")
	}
	return rule, nil
}

// Create authors a new rule.
func (s *RuleService) Create(ctx context.Context, req SaveRuleRequest) (*models.Rule, error) {
	rule, err := s.buildRule(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rule")
	}
	s.invalidate(ctx, rule)
	return rule, nil
}

// Update rewrites an existing rule's mutable attributes.
func (s *RuleService) Update(ctx context.Context, id int64, req SaveRuleRequest) (*models.Rule, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch rule")
	}

	rule, err := s.buildRule(req)
	if err != nil {
		return nil, err
	}
	rule.ID = existing.ID
	// Owner and scope are part of a rule's identity; they never change after
	// creation, only condition/action/priority/activation do.
	rule.OwnerID = existing.OwnerID
	rule.Scope = existing.Scope
	rule.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, rule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rule")
	}
	s.invalidate(ctx, rule)
	return rule, nil
}

// SetActive enables or disables a rule. Deactivation is the only removal the
// store supports while historical adjustments reference rule codes.
func (s *RuleService) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change rule state")
	}
	s.invalidate(ctx, nil)
	return nil
}

func (s *RuleService) buildRule(req SaveRuleRequest) (*models.Rule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	scope := models.RuleScope(req.Scope)
	if !models.ValidScope(scope) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown rule scope %q", req.Scope))
	}
	kind := models.ActionKind(req.ActionKind)
	if kind != models.ActionFine && kind != models.ActionBonus {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action kind %q", req.ActionKind))
	}
	if req.Amount.IsZero() && (req.AmountPerMinute == nil || req.AmountPerMinute.IsZero()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rule needs an amount or a per-minute amount")
	}
	if req.AmountPerMinute != nil && scope != models.ScopeLate {
		return nil, appErrors.Clone(appErrors.ErrValidation, "per-minute amounts only apply to late rules")
	}

	condition := models.RuleCondition(req.Condition)
	if condition == nil {
		condition = models.RuleCondition{}
	}

	rule := &models.Rule{
		Code:      req.Code,
		OwnerID:   req.OwnerID,
		Scope:     scope,
		Priority:  req.Priority,
		IsActive:  req.IsActive,
		Condition: condition,
		Action: models.RuleAction{
			Kind:            kind,
			Amount:          req.Amount,
			AmountPerMinute: req.AmountPerMinute,
			Label:           req.Label,
			Code:            req.ActionCode,
		},
	}
	if err := rule.EncodePayloads(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rule payload cannot be encoded")
	}
	return rule, nil
}

func (s *RuleService) invalidate(ctx context.Context, rule *models.Rule) {
	if s.cache == nil {
		return
	}
	pattern := "rules:*"
	if rule != nil {
		// Tenant-specific rules only affect that tenant's cached sets; system
		// defaults can affect every tenant.
		if rule.OwnerID != nil {
			pattern = fmt.Sprintf("rules:%d:%s", *rule.OwnerID, rule.Scope)
		}
	}
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("rule cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
