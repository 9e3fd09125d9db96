package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/workpulse/shiftpay-api/internal/models"
	appErrors "github.com/workpulse/shiftpay-api/pkg/errors"
)

// Well-known fact keys consumed by the resolution engine.
const (
	FactLateMinutes = "late_minutes"
	FactObjectID    = "object_id"
)

type activeRuleReader interface {
	ListActive(ctx context.Context, ownerID int64, scope models.RuleScope) ([]models.Rule, error)
}

type ruleSetCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type legacySettingsReader interface {
	LegacyPenaltySettings(ctx context.Context, objectID int64) (*models.LegacyPenaltySettings, error)
}

type resolutionMetrics interface {
	ObserveResolution(scope string, actions int)
	IncMalformedRule()
	IncCacheHit()
	IncCacheMiss()
}

// ResolutionService selects the applicable policy rules for a business event
// and produces the pending fine/bonus actions. Matching is a conjunctive
// equality check over the fact context; the scope decides whether one rule or
// every matching rule fires.
type ResolutionService struct {
	rules    activeRuleReader
	cache    ruleSetCache
	legacy   legacySettingsReader
	metrics  resolutionMetrics
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewResolutionService constructs the service. Cache, legacy settings reader
// and metrics are optional.
func NewResolutionService(rules activeRuleReader, cache ruleSetCache, legacy legacySettingsReader, metrics resolutionMetrics, logger *zap.Logger, cacheTTL time.Duration) *ResolutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolutionService{
		rules:    rules,
		cache:    cache,
		legacy:   legacy,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Resolve returns the actions the active rule set produces for the given
// tenant, scope and fact context. For late and cancellation scopes at most one
// rule fires, the first match in priority order with tenant rules ahead of
// system defaults at equal priority. For task and incident
// scopes every matching rule fires. When no rule matches a late event, the
// object's inherited legacy penalty settings act as a synthetic last-priority
// rule.
func (s *ResolutionService) Resolve(ctx context.Context, ownerID int64, scope models.RuleScope, factCtx map[string]interface{}) ([]models.Action, error) {
	if !models.ValidScope(scope) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown rule scope %q", scope))
	}
	if factCtx == nil {
		factCtx = map[string]interface{}{}
	}

	rules, err := s.loadRules(ctx, ownerID, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rules")
	}

	actions := make([]models.Action, 0, 2)
	for _, rule := range rules {
		if !conditionMatches(rule.Condition, factCtx) {
			continue
		}
		action, err := s.buildAction(rule, scope, factCtx)
		if err != nil {
			s.logger.Warn("skipping rule with unusable action",
				zap.Int64("rule_id", rule.ID),
				zap.String("scope", string(scope)),
				zap.Error(err))
			if s.metrics != nil {
				s.metrics.IncMalformedRule()
			}
			continue
		}
		actions = append(actions, action)
		if scope.SingleFire() {
			break
		}
	}

	if len(actions) == 0 {
		if fallback, ok := s.legacyFallback(ctx, scope, factCtx); ok {
			actions = append(actions, fallback)
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveResolution(string(scope), len(actions))
	}
	return actions, nil
}

// loadRules returns the decoded active rule set for (ownerID, scope), from
// cache when available. Malformed rules are dropped here with a warning so one
// bad rule never blocks resolution of the rest.
func (s *ResolutionService) loadRules(ctx context.Context, ownerID int64, scope models.RuleScope) ([]models.Rule, error) {
	key := fmt.Sprintf("rules:%d:%s", ownerID, scope)
	if s.cache != nil {
		var cached []models.Rule
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.IncCacheHit()
			}
			return cached, nil
		} else if errors.Is(err, appErrors.ErrCacheMiss) {
			if s.metrics != nil {
				s.metrics.IncCacheMiss()
			}
		} else {
			s.logger.Warn("rule cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	stored, err := s.rules.ListActive(ctx, ownerID, scope)
	if err != nil {
		return nil, err
	}

	decoded := make([]models.Rule, 0, len(stored))
	for i := range stored {
		rule := stored[i]
		if err := rule.Decode(); err != nil {
			s.logger.Warn("skipping malformed rule",
				zap.Int64("rule_id", rule.ID),
				zap.String("code", rule.Code),
				zap.Error(err))
			if s.metrics != nil {
				s.metrics.IncMalformedRule()
			}
			continue
		}
		decoded = append(decoded, rule)
	}

	// Tenant rules shadow system defaults at equal priority; id breaks the
	// remaining ties.
	sort.SliceStable(decoded, func(i, j int) bool {
		a, b := decoded[i], decoded[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if (a.OwnerID != nil) != (b.OwnerID != nil) {
			return a.OwnerID != nil
		}
		return a.ID < b.ID
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, decoded, s.cacheTTL); err != nil {
			s.logger.Warn("rule cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return decoded, nil
}

// buildAction turns a matched rule into a resolved action. Late penalties with
// a per-minute rate are linear in the context's late minutes; everything else
// uses the rule's flat amount.
func (s *ResolutionService) buildAction(rule models.Rule, scope models.RuleScope, factCtx map[string]interface{}) (models.Action, error) {
	amount := rule.Action.Amount
	if scope == models.ScopeLate && rule.Action.AmountPerMinute != nil {
		minutes, ok := contextInt64(factCtx, FactLateMinutes)
		if !ok {
			return models.Action{}, fmt.Errorf("rule %d needs %q in the context", rule.ID, FactLateMinutes)
		}
		amount = rule.Action.AmountPerMinute.Mul(decimal.NewFromInt(minutes))
	}
	code := rule.Action.Code
	if code == "" {
		code = rule.Code
	}
	return models.Action{
		Kind:   rule.Action.Kind,
		Amount: amount,
		Label:  rule.Action.Label,
		Code:   code,
		Scope:  scope,
		RuleID: rule.ID,
	}, nil
}

// legacyFallback synthesises an action from the object's inherited penalty
// settings. Only late events carry legacy settings; other scopes simply
// resolve to nothing.
func (s *ResolutionService) legacyFallback(ctx context.Context, scope models.RuleScope, factCtx map[string]interface{}) (models.Action, bool) {
	if s.legacy == nil || scope != models.ScopeLate {
		return models.Action{}, false
	}
	objectID, ok := contextInt64(factCtx, FactObjectID)
	if !ok {
		return models.Action{}, false
	}
	minutes, ok := contextInt64(factCtx, FactLateMinutes)
	if !ok {
		return models.Action{}, false
	}

	settings, err := s.legacy.LegacyPenaltySettings(ctx, objectID)
	if err != nil || settings == nil {
		if err != nil {
			s.logger.Warn("legacy penalty settings lookup failed", zap.Int64("object_id", objectID), zap.Error(err))
		}
		return models.Action{}, false
	}
	if settings.PenaltyPerMinute.IsZero() || minutes < settings.ThresholdMinutes {
		return models.Action{}, false
	}

	return models.Action{
		Kind:   models.ActionFine,
		Amount: settings.PenaltyPerMinute.Mul(decimal.NewFromInt(minutes)),
		Label:  "Late arrival penalty (inherited object settings)",
		Code:   models.LegacyFallbackCode,
		Scope:  scope,
	}, true
}

// conditionMatches reports whether every key of the condition equals the
// corresponding context value. Keys absent from the condition are wildcards.
func conditionMatches(condition models.RuleCondition, factCtx map[string]interface{}) bool {
	for key, expected := range condition {
		got, ok := factCtx[key]
		if !ok {
			return false
		}
		if !valuesEqual(expected, got) {
			return false
		}
	}
	return true
}

// valuesEqual compares a decoded condition value against a context value.
// Conditions come from JSON, so numbers arrive as float64 while callers hand
// in native ints; both sides are normalised before comparison.
func valuesEqual(expected, got interface{}) bool {
	if ef, ok := asFloat64(expected); ok {
		gf, ok := asFloat64(got)
		return ok && ef == gf
	}
	switch e := expected.(type) {
	case string:
		g, ok := got.(string)
		return ok && e == g
	case bool:
		g, ok := got.(bool)
		return ok && e == g
	case nil:
		return got == nil
	default:
		return fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", got)
	}
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case decimal.Decimal:
		f, _ := n.Float64()
		return f, true
	default:
		return 0, false
	}
}

func contextInt64(factCtx map[string]interface{}, key string) (int64, bool) {
	v, ok := factCtx[key]
	if !ok {
		return 0, false
	}
	f, ok := asFloat64(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
