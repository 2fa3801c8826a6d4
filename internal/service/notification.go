package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emerginginv/crm-notifications/internal/domain"
	"github.com/emerginginv/crm-notifications/internal/engine"
	"github.com/emerginginv/crm-notifications/internal/repository"
	apperrors "github.com/emerginginv/crm-notifications/pkg/errors"
)

// Recompute trigger labels, used for logging and metrics.
const (
	TriggerAPI         = "api"
	TriggerEvent       = "event"
	TriggerPreferences = "preferences"
	TriggerLazy        = "lazy"
)

// Clock supplies the evaluation instant for derivation. Injectable so tests
// can pin time.
type Clock func() time.Time

// FeedPublisher announces feed recomputations to the event stream.
type FeedPublisher interface {
	PublishFeedUpdated(ctx context.Context, userID string, total, unread int) error
}

// userFeed pairs a feed with its own lock so one user's recomputation does
// not serialize every other user's queries.
type userFeed struct {
	mu   sync.Mutex
	feed *engine.Feed
	// ready flips once the first recomputation has populated the feed.
	ready bool
}

// NotificationService owns the per-user notification feeds. It loads CRM
// snapshots and preferences, runs the derivation engine, and exposes the
// feed's queries and mutations. The engine stays pure; all I/O and locking
// live here.
type NotificationService struct {
	snapshots repository.SnapshotRepository
	prefs     repository.PreferenceRepository
	publisher FeedPublisher
	logger    *slog.Logger
	now       Clock

	mu    sync.Mutex
	feeds map[string]*userFeed
}

// NewNotificationService creates a new notification service.
func NewNotificationService(
	snapshots repository.SnapshotRepository,
	prefs repository.PreferenceRepository,
	publisher FeedPublisher,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		snapshots: snapshots,
		prefs:     prefs,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		feeds:     make(map[string]*userFeed),
	}
}

// userFeedFor returns the feed holder for a user, creating it if needed.
func (s *NotificationService) userFeedFor(userID string) *userFeed {
	s.mu.Lock()
	defer s.mu.Unlock()

	uf, ok := s.feeds[userID]
	if !ok {
		uf = &userFeed{feed: engine.NewFeed()}
		s.feeds[userID] = uf
	}
	return uf
}

// Recompute rebuilds the user's feed from current snapshots and preferences.
// Read flags are carried forward by notification id; everything else is
// freshly derived.
func (s *NotificationService) Recompute(ctx context.Context, userID, trigger string) error {
	uf := s.userFeedFor(userID)
	uf.mu.Lock()
	defer uf.mu.Unlock()
	return s.recomputeLocked(ctx, uf, userID, trigger)
}

// recomputeLocked runs a derivation pass for a user. Callers hold uf.mu.
func (s *NotificationService) recomputeLocked(ctx context.Context, uf *userFeed, userID, trigger string) error {
	start := time.Now()

	prefs := s.loadPreferences(ctx, userID)

	tasks, err := s.snapshots.ListOpenTasks(ctx, userID)
	if err != nil {
		return fmt.Errorf("load task snapshot: %w", err)
	}
	deals, err := s.snapshots.ListOpenDeals(ctx, userID)
	if err != nil {
		return fmt.Errorf("load deal snapshot: %w", err)
	}

	candidates := engine.Derive(tasks, deals, prefs, s.now())
	uf.feed.Recompute(candidates)
	uf.ready = true

	total, unread := uf.feed.Len(), uf.feed.UnreadCount()

	recomputesTotal.WithLabelValues(trigger).Inc()
	recomputeDuration.Observe(time.Since(start).Seconds())

	if err := s.publisher.PublishFeedUpdated(ctx, userID, total, unread); err != nil {
		// Feed consumers are best-effort; a publish failure never fails
		// the recomputation.
		s.logger.ErrorContext(ctx, "failed to publish feed.updated event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.DebugContext(ctx, "feed recomputed",
		slog.String("user_id", userID),
		slog.String("trigger", trigger),
		slog.Int("total", total),
		slog.Int("unread", unread),
	)

	return nil
}

// ensureReady guarantees the feed has been derived at least once. Callers
// hold uf.mu.
func (s *NotificationService) ensureReady(ctx context.Context, uf *userFeed, userID string) error {
	if uf.ready {
		return nil
	}
	return s.recomputeLocked(ctx, uf, userID, TriggerLazy)
}

// loadPreferences fetches the user's preferences, falling back to the
// documented defaults when none are stored or the stored document cannot be
// read. Derivation availability wins over strictness.
func (s *NotificationService) loadPreferences(ctx context.Context, userID string) domain.Preferences {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to load preferences, using defaults",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		return domain.DefaultPreferences()
	}
	return prefs
}

// ListNotifications returns the user's feed filtered and ordered per the
// query view rules, plus the current unread count.
func (s *NotificationService) ListNotifications(ctx context.Context, userID string, filter engine.Filter, sortBy engine.Sort) ([]domain.Notification, int, error) {
	uf := s.userFeedFor(userID)
	uf.mu.Lock()
	defer uf.mu.Unlock()

	if err := s.ensureReady(ctx, uf, userID); err != nil {
		return nil, 0, err
	}
	return uf.feed.FilteredAndSorted(filter, sortBy), uf.feed.UnreadCount(), nil
}

// UnreadCount returns the number of unread notifications in the user's feed.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	uf := s.userFeedFor(userID)
	uf.mu.Lock()
	defer uf.mu.Unlock()

	if err := s.ensureReady(ctx, uf, userID); err != nil {
		return 0, err
	}
	return uf.feed.UnreadCount(), nil
}

// MarkAsRead marks one notification as read. An unknown id is a no-op, not
// an error: the notification may have been dropped by a recomputation the
// caller has not observed.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	uf := s.userFeedFor(userID)
	uf.mu.Lock()
	defer uf.mu.Unlock()

	if err := s.ensureReady(ctx, uf, userID); err != nil {
		return err
	}
	if !uf.feed.MarkAsRead(notificationID) {
		s.logger.DebugContext(ctx, "mark-as-read on absent notification",
			slog.String("user_id", userID),
			slog.String("notification_id", notificationID),
		)
	}
	return nil
}

// MarkAllAsRead marks every notification in the user's feed as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	uf := s.userFeedFor(userID)
	uf.mu.Lock()
	defer uf.mu.Unlock()

	if err := s.ensureReady(ctx, uf, userID); err != nil {
		return err
	}
	uf.feed.MarkAllAsRead()
	return nil
}

// DeleteNotification removes one notification from the user's feed. The
// removal does not survive the next recomputation if the source condition
// still holds.
func (s *NotificationService) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	uf := s.userFeedFor(userID)
	uf.mu.Lock()
	defer uf.mu.Unlock()

	if err := s.ensureReady(ctx, uf, userID); err != nil {
		return err
	}
	uf.feed.Delete(notificationID)
	return nil
}

// ClearAll empties the user's feed, with the same non-durability caveat as
// DeleteNotification.
func (s *NotificationService) ClearAll(ctx context.Context, userID string) error {
	uf := s.userFeedFor(userID)
	uf.mu.Lock()
	defer uf.mu.Unlock()

	if err := s.ensureReady(ctx, uf, userID); err != nil {
		return err
	}
	uf.feed.ClearAll()
	return nil
}

// GetPreferences returns the user's stored preferences, or the defaults when
// none are stored yet.
func (s *NotificationService) GetPreferences(ctx context.Context, userID string) (domain.Preferences, error) {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.DefaultPreferences(), nil
		}
		return domain.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return prefs, nil
}

// UpdatePreferences shallow-merges the patch into the stored preferences,
// persists the result, and recomputes the feed immediately, since a
// preferences change is itself a recomputation trigger.
func (s *NotificationService) UpdatePreferences(ctx context.Context, userID string, patch domain.PreferencesPatch) (domain.Preferences, error) {
	if patch.Digest != nil && !domain.IsValidDigest(*patch.Digest) {
		return domain.Preferences{}, apperrors.InvalidInput(fmt.Sprintf("invalid digest %q", *patch.Digest))
	}

	current, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return domain.Preferences{}, err
	}

	merged := current.Apply(patch)
	if err := s.prefs.Save(ctx, userID, merged); err != nil {
		return domain.Preferences{}, fmt.Errorf("save preferences: %w", err)
	}

	if err := s.Recompute(ctx, userID, TriggerPreferences); err != nil {
		// The save succeeded; the stale feed corrects itself on the next
		// trigger.
		s.logger.ErrorContext(ctx, "recompute after preference update failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return merged, nil
}
