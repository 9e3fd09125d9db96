// Command seed-rules inserts the system-default policy rules (owner-less rows
// every tenant inherits) into an empty or partially seeded database. Existing
// codes are left untouched, so the command is safe to re-run.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/workpulse/shiftpay-api/internal/models"
	"github.com/workpulse/shiftpay-api/pkg/config"
	"github.com/workpulse/shiftpay-api/pkg/database"
)

type seedRule struct {
	Code      string
	Scope     models.RuleScope
	Priority  int
	Condition models.RuleCondition
	Action    models.RuleAction
}

func defaultRules() []seedRule {
	perMinute := decimal.NewFromFloat(0.5)
	return []seedRule{
		{
			Code:     "default_late_penalty",
			Scope:    models.ScopeLate,
			Priority: 1000,
			Action: models.RuleAction{
				Kind:            models.ActionFine,
				AmountPerMinute: &perMinute,
				Label:           "Late arrival penalty",
				Code:            "late_penalty",
			},
		},
		{
			Code:      "default_cancellation_penalty",
			Scope:     models.ScopeCancellation,
			Priority:  1000,
			Condition: models.RuleCondition{"short_notice": true},
			Action: models.RuleAction{
				Kind:   models.ActionFine,
				Amount: decimal.NewFromInt(50),
				Label:  "Short-notice cancellation penalty",
				Code:   "cancellation_penalty",
			},
		},
		{
			Code:      "default_task_completion_bonus",
			Scope:     models.ScopeTask,
			Priority:  1000,
			Condition: models.RuleCondition{"completed": true},
			Action: models.RuleAction{
				Kind:   models.ActionBonus,
				Amount: decimal.NewFromInt(10),
				Label:  "Task completion bonus",
				Code:   "task_bonus",
			},
		},
	}
}

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall execution timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	const insert = `INSERT INTO rules (code, owner_id, scope, priority, is_active, condition, action, created_at, updated_at)
SELECT $1, NULL, $2, $3, TRUE, $4, $5, NOW(), NOW()
WHERE NOT EXISTS (SELECT 1 FROM rules WHERE code = $1 AND owner_id IS NULL)`

	inserted := 0
	for _, seed := range defaultRules() {
		rule := models.Rule{
			Code:      seed.Code,
			Scope:     seed.Scope,
			Priority:  seed.Priority,
			Condition: seed.Condition,
			Action:    seed.Action,
		}
		if rule.Condition == nil {
			rule.Condition = models.RuleCondition{}
		}
		if err := rule.EncodePayloads(); err != nil {
			log.Fatalf("failed to encode rule %s: %v", seed.Code, err)
		}
		res, err := db.ExecContext(ctx, insert, rule.Code, rule.Scope, rule.Priority, rule.ConditionRaw, rule.ActionRaw)
		if err != nil {
			log.Fatalf("failed to seed rule %s: %v", seed.Code, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
			log.Printf("seeded rule %s (%s)", seed.Code, seed.Scope)
		}
	}
	log.Printf("done: %d rules inserted, %d already present", inserted, len(defaultRules())-inserted)
}
