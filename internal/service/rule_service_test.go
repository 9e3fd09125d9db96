package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workpulse/shiftpay-api/internal/models"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
)

type ruleRepoStub struct {
	rules  map[int64]models.Rule
	nextID int64
}

func (s *ruleRepoStub) List(ctx context.Context, filter models.RuleFilter) ([]models.Rule, int, error) {
	result := []models.Rule{}
	for _, rule := range s.rules {
		result = append(result, rule)
	}
	return result, len(result), nil
}

func (s *ruleRepoStub) GetByID(ctx context.Context, id int64) (*models.Rule, error) {
	rule, ok := s.rules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &rule, nil
}

func (s *ruleRepoStub) Create(ctx context.Context, rule *models.Rule) error {
	s.nextID++
	rule.ID = s.nextID
	if s.rules == nil {
		s.rules = map[int64]models.Rule{}
	}
	s.rules[rule.ID] = *rule
	return nil
}

func (s *ruleRepoStub) Update(ctx context.Context, rule *models.Rule) error {
	if _, ok := s.rules[rule.ID]; !ok {
		return sql.ErrNoRows
	}
	s.rules[rule.ID] = *rule
	return nil
}

func (s *ruleRepoStub) SetActive(ctx context.Context, id int64, active bool) error {
	rule, ok := s.rules[id]
	if !ok {
		return sql.ErrNoRows
	}
	rule.IsActive = active
	s.rules[id] = rule
	return nil
}

type cacheInvalidatorStub struct {
	patterns []string
}

func (s *cacheInvalidatorStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func validSaveRequest() SaveRuleRequest {
	return SaveRuleRequest{
		Code:       "tenant_late_fine",
		Scope:      string(models.ScopeLate),
		Priority:   10,
		IsActive:   true,
		Condition:  map[string]interface{}{"zone_id": 3},
		ActionKind: string(models.ActionFine),
		Amount:     decimal.NewFromInt(25),
		Label:      "Late arrival fine",
		ActionCode: "late_fine",
	}
}

func TestRuleCreateEncodesPayloads(t *testing.T) {
	repo := &ruleRepoStub{}
	cache := &cacheInvalidatorStub{}
	svc := NewRuleService(repo, cache, nil, nil)

	ownerID := int64(7)
	req := validSaveRequest()
	req.OwnerID = &ownerID
	rule, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotZero(t, rule.ID)
	assert.NotEmpty(t, rule.ConditionRaw)
	assert.NotEmpty(t, rule.ActionRaw)

	stored := repo.rules[rule.ID]
	require.NoError(t, stored.Decode())
	assert.Equal(t, models.ActionFine, stored.Action.Kind)
	assert.Equal(t, []string{"rules:7:late"}, cache.patterns)
}

func TestRuleCreateSystemDefaultInvalidatesAllTenants(t *testing.T) {
	cache := &cacheInvalidatorStub{}
	svc := NewRuleService(&ruleRepoStub{}, cache, nil, nil)

	_, err := svc.Create(context.Background(), validSaveRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"rules:*"}, cache.patterns)
}

func TestRuleCreateRejectsBadPayloads(t *testing.T) {
	svc := NewRuleService(&ruleRepoStub{}, nil, nil, nil)

	cases := map[string]func(*SaveRuleRequest){
		"unknown scope":             func(r *SaveRuleRequest) { r.Scope = "overtime" },
		"unknown kind":              func(r *SaveRuleRequest) { r.ActionKind = "waiver" },
		"missing amount":            func(r *SaveRuleRequest) { r.Amount = decimal.Zero },
		"per-minute outside late":   func(r *SaveRuleRequest) { r.Scope = string(models.ScopeTask); perMin := decimal.NewFromInt(1); r.AmountPerMinute = &perMin },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validSaveRequest()
			mutate(&req)
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestRuleUpdatePreservesIdentity(t *testing.T) {
	repo := &ruleRepoStub{}
	svc := NewRuleService(repo, nil, nil, nil)

	ownerID := int64(7)
	req := validSaveRequest()
	req.OwnerID = &ownerID
	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	update := validSaveRequest()
	update.OwnerID = nil
	update.Scope = string(models.ScopeTask)
	update.Priority = 99
	update.AmountPerMinute = nil

	updated, err := svc.Update(context.Background(), created.ID, update)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	require.NotNil(t, updated.OwnerID)
	assert.Equal(t, ownerID, *updated.OwnerID)
	assert.Equal(t, models.ScopeLate, updated.Scope, "scope is identity and must not change")
	assert.Equal(t, 99, updated.Priority)
}

func TestRuleUpdateNotFound(t *testing.T) {
	svc := NewRuleService(&ruleRepoStub{}, nil, nil, nil)

	_, err := svc.Update(context.Background(), 404, validSaveRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRuleSetActive(t *testing.T) {
	repo := &ruleRepoStub{}
	svc := NewRuleService(repo, nil, nil, nil)

	created, err := svc.Create(context.Background(), validSaveRequest())
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(context.Background(), created.ID, false))
	assert.False(t, repo.rules[created.ID].IsActive)

	err = svc.SetActive(context.Background(), 404, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRuleGetMalformed(t *testing.T) {
	repo := &ruleRepoStub{rules: map[int64]models.Rule{
		1: {ID: 1, Code: "broken", Scope: models.ScopeLate, ConditionRaw: []byte(`{`), ActionRaw: []byte(`{}`)},
	}}
	svc := NewRuleService(repo, nil, nil, nil)

	_, err := svc.Get(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedRule.Code, appErrors.FromError(err).Code)
}
