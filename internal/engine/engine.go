// Package engine derives a user's notification feed from CRM entity
// snapshots and notification preferences. Derivation is pure: given the same
// tasks, deals, preferences and evaluation instant it always produces the
// same candidate set. All mutable state lives in Feed.
package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/emerginginv/crm-notifications/internal/domain"
)

// Rule thresholds.
const (
	// HighValueDealThreshold is the deal value at or above which a deal in
	// the proposal stage raises a high-priority alert.
	HighValueDealThreshold int64 = 50_000

	// ClosingSoonWindowDays is the number of days ahead within which an open
	// deal's close date raises a closing-soon alert.
	ClosingSoonWindowDays = 7

	// closingSoonUrgentDays is the cut-off at or below which a closing-soon
	// alert is high priority instead of medium.
	closingSoonUrgentDays = 3
)

// reportWeekday is the day the weekly report notification is emitted.
const reportWeekday = time.Monday

// Reason segments used to build deterministic notification ids.
const (
	reasonOverdue     = "overdue"
	reasonDueToday    = "due-today"
	reasonDueTomorrow = "due-tomorrow"
	reasonClosing     = "closing"
	reasonHighValue   = "high-value"
	reasonWelcome     = "welcome"
	reasonWeekly      = "weekly"
)

// Derive computes the candidate notification set for the given snapshots,
// preferences and evaluation instant. The result is deduplicated by
// construction (one notification per type/reason/source), quiet-hours
// filtered, and sorted newest first. Read flags are always false; merging
// prior read state is Feed.Recompute's job.
func Derive(tasks []domain.Task, deals []domain.Deal, prefs domain.Preferences, now time.Time) []domain.Notification {
	var out []domain.Notification

	if prefs.Tasks {
		for _, t := range tasks {
			if n, ok := taskRule(t, now); ok {
				out = append(out, n)
			}
		}
	}

	if prefs.Deals {
		for _, d := range deals {
			out = append(out, dealRules(d, now)...)
		}
	}

	out = append(out, welcomeRule(now))

	if prefs.Reports && now.Weekday() == reportWeekday {
		out = append(out, weeklyReportRule(now))
	}

	out = quietHoursFilter(out, prefs, now)
	sortNewestFirst(out)
	return out
}

// taskRule evaluates the due-date rules for a single task. Tasks that are not
// pending, have no due date, or are due further than a day out produce
// nothing.
func taskRule(t domain.Task, now time.Time) (domain.Notification, bool) {
	if !t.IsOpen() || t.DueDate.IsZero() {
		return domain.Notification{}, false
	}

	switch d := daysUntil(t.DueDate, now); {
	case d < 0:
		overdue := -d
		return domain.Notification{
			ID:        domain.NotificationID(domain.NotificationTypeTask, reasonOverdue, t.ID),
			Type:      domain.NotificationTypeTask,
			Priority:  domain.NotificationPriorityHigh,
			Title:     "Task overdue",
			Message:   fmt.Sprintf("Task %q is %d day(s) overdue", t.Title, overdue),
			Timestamp: now.Add(-time.Duration(overdue) * 24 * time.Hour),
			ActionURL: taskActionURL(t),
			RelatedID: t.ID,
		}, true
	case d == 0:
		return domain.Notification{
			ID:        domain.NotificationID(domain.NotificationTypeTask, reasonDueToday, t.ID),
			Type:      domain.NotificationTypeTask,
			Priority:  domain.NotificationPriorityMedium,
			Title:     "Task due today",
			Message:   fmt.Sprintf("Task %q is due today", t.Title),
			Timestamp: now.Add(-2 * time.Hour),
			ActionURL: taskActionURL(t),
			RelatedID: t.ID,
		}, true
	case d == 1:
		return domain.Notification{
			ID:        domain.NotificationID(domain.NotificationTypeTask, reasonDueTomorrow, t.ID),
			Type:      domain.NotificationTypeTask,
			Priority:  domain.NotificationPriorityLow,
			Title:     "Task due tomorrow",
			Message:   fmt.Sprintf("Task %q is due tomorrow", t.Title),
			Timestamp: now.Add(-1 * time.Hour),
			ActionURL: taskActionURL(t),
			RelatedID: t.ID,
		}, true
	default:
		return domain.Notification{}, false
	}
}

// dealRules evaluates the closing-soon and high-value rules for a single
// deal. The rules are independent; a deal may emit both notifications and
// their ids stay distinct because the reason differs.
func dealRules(d domain.Deal, now time.Time) []domain.Notification {
	var out []domain.Notification

	if !d.IsClosed() && !d.CloseDate.IsZero() {
		if days := daysUntil(d.CloseDate, now); days >= 0 && days <= ClosingSoonWindowDays {
			priority := domain.NotificationPriorityMedium
			if days <= closingSoonUrgentDays {
				priority = domain.NotificationPriorityHigh
			}
			out = append(out, domain.Notification{
				ID:        domain.NotificationID(domain.NotificationTypeDeal, reasonClosing, d.ID),
				Type:      domain.NotificationTypeDeal,
				Priority:  priority,
				Title:     "Deal closing soon",
				Message:   fmt.Sprintf("Deal %q is expected to close in %d day(s) at %d%% probability", d.Name, days, d.Probability),
				Timestamp: now.Add(-3 * time.Hour),
				ActionURL: "/deals",
				RelatedID: d.ID,
			})
		}
	}

	if d.Value >= HighValueDealThreshold && d.Stage == domain.DealStageProposal {
		out = append(out, domain.Notification{
			ID:        domain.NotificationID(domain.NotificationTypeDeal, reasonHighValue, d.ID),
			Type:      domain.NotificationTypeDeal,
			Priority:  domain.NotificationPriorityHigh,
			Title:     "High-value deal in proposal",
			Message:   fmt.Sprintf("Deal %q worth $%d is awaiting a proposal decision", d.Name, d.Value),
			Timestamp: now.Add(-4 * time.Hour),
			ActionURL: "/deals",
			RelatedID: d.ID,
		})
	}

	return out
}

// welcomeRule emits the static system notification present in every feed.
func welcomeRule(now time.Time) domain.Notification {
	return domain.Notification{
		ID:        domain.NotificationID(domain.NotificationTypeSystem, reasonWelcome, ""),
		Type:      domain.NotificationTypeSystem,
		Priority:  domain.NotificationPriorityLow,
		Title:     "Welcome to your CRM",
		Message:   "You're all set up. Alerts about your tasks and deals will appear here.",
		Timestamp: now.Add(-24 * time.Hour),
	}
}

// weeklyReportRule emits the weekly pipeline report notification.
func weeklyReportRule(now time.Time) domain.Notification {
	return domain.Notification{
		ID:        domain.NotificationID(domain.NotificationTypeReport, reasonWeekly, ""),
		Type:      domain.NotificationTypeReport,
		Priority:  domain.NotificationPriorityLow,
		Title:     "Weekly report ready",
		Message:   "Your weekly pipeline summary is ready to view",
		Timestamp: now.Add(-1 * time.Hour),
		ActionURL: "/reports",
	}
}

// quietHoursFilter drops candidates generated during the configured quiet
// window. High-priority candidates survive when critical alerts are allowed.
func quietHoursFilter(candidates []domain.Notification, prefs domain.Preferences, now time.Time) []domain.Notification {
	if !prefs.InQuietWindow(now) {
		return candidates
	}

	kept := candidates[:0]
	for _, n := range candidates {
		if n.Priority == domain.NotificationPriorityHigh && prefs.AllowCritical {
			kept = append(kept, n)
		}
	}
	return kept
}

// daysUntil returns ceil((t - now) / 24h): negative for overdue instants,
// zero when t falls within the trailing day, one for tomorrow.
func daysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// taskActionURL points at the owning contact's task tab.
func taskActionURL(t domain.Task) string {
	return fmt.Sprintf("/contacts/%s?tab=tasks", t.ContactID)
}

// sortNewestFirst orders notifications by timestamp descending, breaking ties
// by id so derivation output is reproducible.
func sortNewestFirst(ns []domain.Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		if !ns[i].Timestamp.Equal(ns[j].Timestamp) {
			return ns[i].Timestamp.After(ns[j].Timestamp)
		}
		return ns[i].ID < ns[j].ID
	})
}
