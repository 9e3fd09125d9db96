package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/workpulse/shiftpay-api/internal/models"
)

// LegacySettingsRepository reads pre-rule-engine penalty settings that live on
// work objects, with org-unit values inherited when the object leaves them
// unset.
type LegacySettingsRepository struct {
	db *sqlx.DB
}

// NewLegacySettingsRepository constructs a new repository.
func NewLegacySettingsRepository(db *sqlx.DB) *LegacySettingsRepository {
	return &LegacySettingsRepository{db: db}
}

// LegacyPenaltySettings resolves the effective late penalty settings for an
// object. Returns nil when neither the object nor its org unit carries them.
func (r *LegacySettingsRepository) LegacyPenaltySettings(ctx context.Context, objectID int64) (*models.LegacyPenaltySettings, error) {
	query := `SELECT
COALESCE(o.late_penalty_per_minute, u.late_penalty_per_minute, 0) AS late_penalty_per_minute,
COALESCE(o.late_threshold_minutes, u.late_threshold_minutes, 0) AS late_threshold_minutes,
(o.late_penalty_per_minute IS NOT NULL OR u.late_penalty_per_minute IS NOT NULL) AS configured
FROM work_objects o
LEFT JOIN org_units u ON u.id = o.org_unit_id
WHERE o.id = $1`
	var row struct {
		models.LegacyPenaltySettings
		Configured bool `db:"configured"`
	}
	if err := r.db.GetContext(ctx, &row, query, objectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get legacy penalty settings for object %d: %w", objectID, err)
	}
	if !row.Configured {
		return nil, nil
	}
	settings := row.LegacyPenaltySettings
	return &settings, nil
}
