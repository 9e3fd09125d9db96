package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RuleScope identifies the business domain a rule applies to.
type RuleScope string

const (
	ScopeLate         RuleScope = "late"
	ScopeCancellation RuleScope = "cancellation"
	ScopeTask         RuleScope = "task"
	ScopeIncident     RuleScope = "incident"
)

// ValidScope reports whether the given scope is one of the supported domains.
func ValidScope(scope RuleScope) bool {
	switch scope {
	case ScopeLate, ScopeCancellation, ScopeTask, ScopeIncident:
		return true
	default:
		return false
	}
}

// SingleFire reports whether at most one rule fires for the scope. Lateness and
// cancellation are a single determination; task and incident outcomes are
// independent events, so every matching rule fires.
func (s RuleScope) SingleFire() bool {
	return s == ScopeLate || s == ScopeCancellation
}

// ActionKind distinguishes deductions from additions.
type ActionKind string

const (
	ActionFine  ActionKind = "fine"
	ActionBonus ActionKind = "bonus"
)

// LegacyFallbackCode marks actions synthesised from pre-rule-engine object
// settings when no authored rule matches.
const LegacyFallbackCode = "legacy_fallback"

// RuleAction is the decoded action payload of a rule. Amount is a flat value;
// AmountPerMinute, when set on a late-scope rule, makes the resolved amount
// linear in the context's late minutes.
type RuleAction struct {
	Kind            ActionKind       `json:"kind"`
	Amount          decimal.Decimal  `json:"amount"`
	AmountPerMinute *decimal.Decimal `json:"amount_per_minute,omitempty"`
	Label           string           `json:"label"`
	Code            string           `json:"code"`
}

// RuleCondition is a flat mapping of fact keys to expected values. Every key
// present must equal the corresponding context value; absent keys are wildcards.
type RuleCondition map[string]interface{}

// Rule is a versioned policy rule scoped by tenant and domain. Condition and
// action are persisted as JSON blobs and decoded once at load time.
type Rule struct {
	ID           int64     `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	OwnerID      *int64    `db:"owner_id" json:"owner_id,omitempty"`
	Scope        RuleScope `db:"scope" json:"scope"`
	Priority     int       `db:"priority" json:"priority"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	ConditionRaw []byte    `db:"condition" json:"-"`
	ActionRaw    []byte    `db:"action" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Condition RuleCondition `db:"-" json:"condition"`
	Action    RuleAction    `db:"-" json:"action"`
}

// Decode parses the stored condition and action payloads into their typed
// forms. A failure means the rule is malformed and must be skipped during
// resolution rather than propagated.
func (r *Rule) Decode() error {
	r.Condition = RuleCondition{}
	if len(r.ConditionRaw) > 0 {
		if err := json.Unmarshal(r.ConditionRaw, &r.Condition); err != nil {
			return fmt.Errorf("decode condition of rule %d: %w", r.ID, err)
		}
	}
	if len(r.ActionRaw) == 0 {
		return fmt.Errorf("rule %d has no action payload", r.ID)
	}
	if err := json.Unmarshal(r.ActionRaw, &r.Action); err != nil {
		return fmt.Errorf("decode action of rule %d: %w", r.ID, err)
	}
	switch r.Action.Kind {
	case ActionFine, ActionBonus:
	default:
		return fmt.Errorf("rule %d has unknown action kind %q", r.ID, r.Action.Kind)
	}
	return nil
}

// EncodePayloads serialises the typed condition and action back into their
// stored representation. Used by the authoring path so rules written through
// the API are well-formed by construction.
func (r *Rule) EncodePayloads() error {
	cond, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("encode condition: %w", err)
	}
	action, err := json.Marshal(r.Action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	r.ConditionRaw = cond
	r.ActionRaw = action
	return nil
}

// RuleFilter constrains admin listing queries.
type RuleFilter struct {
	OwnerID  *int64
	Scope    RuleScope
	Active   *bool
	Page     int
	PageSize int
}

// Action is a resolved, ready-to-ledger descriptor of a fine or bonus.
type Action struct {
	Kind   ActionKind      `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Label  string          `json:"label"`
	Code   string          `json:"code"`
	Scope  RuleScope       `json:"scope"`
	RuleID int64           `json:"rule_id,omitempty"`
}

// LegacyPenaltySettings are pre-rule-engine penalty settings inherited from an
// object, consulted only when no authored rule matches.
type LegacyPenaltySettings struct {
	PenaltyPerMinute decimal.Decimal `db:"late_penalty_per_minute" json:"late_penalty_per_minute"`
	ThresholdMinutes int64           `db:"late_threshold_minutes" json:"late_threshold_minutes"`
}
