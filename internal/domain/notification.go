package domain

import (
	"fmt"
	"time"
)

// Notification type constants. The type names the rule family that produced
// the notification.
const (
	NotificationTypeTask   = "task"
	NotificationTypeDeal   = "deal"
	NotificationTypeReport = "report"
	NotificationTypeSystem = "system"
)

// Notification priority constants.
const (
	NotificationPriorityHigh   = "high"
	NotificationPriorityMedium = "medium"
	NotificationPriorityLow    = "low"
)

// Notification is a derived alert. It is recomputed from CRM snapshots on
// every relevant data change and is never persisted; only the Read flag
// survives recomputation, carried forward by ID.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Priority  string    `json:"priority"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	ActionURL string    `json:"action_url,omitempty"`
	RelatedID string    `json:"related_id,omitempty"`
}

// NotificationID builds the deterministic identity for a derived notification.
// The (type, reason, source) triple is the sole stable identity used to carry
// read state across recomputations.
func NotificationID(typ, reason, sourceID string) string {
	if sourceID == "" {
		return fmt.Sprintf("%s-%s", typ, reason)
	}
	return fmt.Sprintf("%s-%s-%s", typ, reason, sourceID)
}

// ValidNotificationTypes returns the set of valid notification types.
func ValidNotificationTypes() []string {
	return []string{
		NotificationTypeTask,
		NotificationTypeDeal,
		NotificationTypeReport,
		NotificationTypeSystem,
	}
}

// IsValidNotificationType checks whether the given type string is a valid notification type.
func IsValidNotificationType(t string) bool {
	for _, v := range ValidNotificationTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// ValidNotificationPriorities returns the set of valid notification priorities.
func ValidNotificationPriorities() []string {
	return []string{
		NotificationPriorityHigh,
		NotificationPriorityMedium,
		NotificationPriorityLow,
	}
}

// IsValidNotificationPriority checks whether the given priority string is a
// valid notification priority.
func IsValidNotificationPriority(priority string) bool {
	for _, p := range ValidNotificationPriorities() {
		if p == priority {
			return true
		}
	}
	return false
}

// PriorityRank maps a priority to its sort weight: high=3, medium=2, low=1.
// Unknown priorities rank below low.
func PriorityRank(priority string) int {
	switch priority {
	case NotificationPriorityHigh:
		return 3
	case NotificationPriorityMedium:
		return 2
	case NotificationPriorityLow:
		return 1
	default:
		return 0
	}
}
