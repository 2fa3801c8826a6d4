package domain

import (
	"time"
)

// Task status constants.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
	TaskStatusCancelled  = "cancelled"
)

// Task is a read-only snapshot of a CRM task. Tasks are owned and mutated by
// the CRM data layer; this service only derives notifications from them.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	DueDate   time.Time `json:"due_date"`
	Status    string    `json:"status"`
	ContactID string    `json:"contact_id"`
}

// IsOpen reports whether the task still awaits completion.
func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusPending
}

// ValidTaskStatuses returns the set of valid task statuses.
func ValidTaskStatuses() []string {
	return []string{TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled}
}

// IsValidTaskStatus checks whether the given status string is a valid task status.
func IsValidTaskStatus(status string) bool {
	for _, s := range ValidTaskStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
