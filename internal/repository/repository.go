package repository

import (
	"context"

	"github.com/emerginginv/crm-notifications/internal/domain"
)

// SnapshotRepository reads CRM entity snapshots for derivation. The CRM data
// layer owns these tables; this service never writes them.
type SnapshotRepository interface {
	// ListOpenTasks returns the pending tasks owned by the given user.
	ListOpenTasks(ctx context.Context, ownerID string) ([]domain.Task, error)

	// ListOpenDeals returns the user's deals that have not reached a
	// terminal stage.
	ListOpenDeals(ctx context.Context, ownerID string) ([]domain.Deal, error)
}

// PreferenceRepository persists per-user notification preferences.
type PreferenceRepository interface {
	// Get retrieves the stored preferences for a user. Returns an error
	// wrapping apperrors.ErrNotFound when the user has none.
	Get(ctx context.Context, userID string) (domain.Preferences, error)

	// Save stores the full preferences document for a user, replacing any
	// previous version.
	Save(ctx context.Context, userID string, prefs domain.Preferences) error
}
