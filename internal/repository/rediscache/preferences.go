// Package rediscache decorates the preference repository with a Redis
// read-through cache. Preferences are read on every recomputation, so keeping
// the hot copy out of Postgres matters more than strict freshness; writes and
// external preference-change events invalidate the cached copy.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emerginginv/crm-notifications/internal/domain"
	"github.com/emerginginv/crm-notifications/internal/repository"
)

// DefaultTTL bounds staleness for cache entries that miss an invalidation
// (e.g. a preference write from another instance that crashed before DEL).
const DefaultTTL = 10 * time.Minute

// Store is the subset of the go-redis client used by the cache. *redis.Client
// satisfies it; tests provide a fake.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// PreferenceCache wraps a PreferenceRepository with a Redis read-through
// cache. Cache failures degrade to the inner repository and are logged, never
// surfaced.
type PreferenceCache struct {
	inner  repository.PreferenceRepository
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewPreferenceCache creates a caching decorator around inner with the given
// TTL (DefaultTTL if zero).
func NewPreferenceCache(inner repository.PreferenceRepository, store Store, ttl time.Duration, logger *slog.Logger) *PreferenceCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PreferenceCache{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(userID string) string {
	return "prefs:" + userID
}

// Get returns the cached preferences when present, falling back to the inner
// repository and populating the cache on a miss.
func (c *PreferenceCache) Get(ctx context.Context, userID string) (domain.Preferences, error) {
	key := cacheKey(userID)

	raw, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var prefs domain.Preferences
		if err := json.Unmarshal(raw, &prefs); err == nil {
			return prefs, nil
		}
		// A corrupt cache entry is dropped and re-read from the source.
		c.invalidate(ctx, key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "preference cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	prefs, err := c.inner.Get(ctx, userID)
	if err != nil {
		return domain.Preferences{}, err
	}

	if raw, err := json.Marshal(prefs); err == nil {
		if err := c.store.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "preference cache write failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	return prefs, nil
}

// Save writes through to the inner repository and invalidates the cached copy.
func (c *PreferenceCache) Save(ctx context.Context, userID string, prefs domain.Preferences) error {
	if err := c.inner.Save(ctx, userID, prefs); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	c.invalidate(ctx, cacheKey(userID))
	return nil
}

// Invalidate drops the cached preferences for a user. Called when an external
// preference change is observed via the event stream.
func (c *PreferenceCache) Invalidate(ctx context.Context, userID string) {
	c.invalidate(ctx, cacheKey(userID))
}

func (c *PreferenceCache) invalidate(ctx context.Context, key string) {
	if err := c.store.Del(ctx, key).Err(); err != nil {
		c.logger.WarnContext(ctx, "preference cache invalidation failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
