package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/emerginginv/crm-notifications/internal/domain"
	"github.com/emerginginv/crm-notifications/pkg/database"
	apperrors "github.com/emerginginv/crm-notifications/pkg/errors"
)

// PreferenceRepository implements repository.PreferenceRepository using
// PostgreSQL. Preferences are stored as one JSONB document per user.
type PreferenceRepository struct {
	pool database.DBTX
}

// NewPreferenceRepository creates a new PostgreSQL-backed preference repository.
func NewPreferenceRepository(pool database.DBTX) *PreferenceRepository {
	return &PreferenceRepository{pool: pool}
}

// Get retrieves the stored preferences for a user.
func (r *PreferenceRepository) Get(ctx context.Context, userID string) (domain.Preferences, error) {
	query := `
		SELECT prefs
		FROM notification_preferences
		WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "GetPreferences", query)
	var raw []byte
	err := r.pool.QueryRow(ctx, query, userID).Scan(&raw)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Preferences{}, apperrors.NotFound("preferences", userID)
		}
		return domain.Preferences{}, fmt.Errorf("query preferences: %w", err)
	}

	var prefs domain.Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return domain.Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}

	return prefs, nil
}

// Save upserts the full preferences document for a user.
func (r *PreferenceRepository) Save(ctx context.Context, userID string, prefs domain.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	query := `
		INSERT INTO notification_preferences (user_id, prefs, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET prefs = EXCLUDED.prefs, updated_at = EXCLUDED.updated_at`

	ctx, end := database.TraceQuery(ctx, "SavePreferences", query)
	_, err = r.pool.Exec(ctx, query, userID, raw, time.Now().UTC())
	end(err)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}

	return nil
}
