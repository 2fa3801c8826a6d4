package engine

import (
	"sort"

	"github.com/emerginginv/crm-notifications/internal/domain"
)

// Filter selects which notifications a query view returns.
type Filter string

// Filter constants. The type filters match the notification type constants.
const (
	FilterAll    Filter = "all"
	FilterUnread Filter = "unread"
	FilterTask   Filter = Filter(domain.NotificationTypeTask)
	FilterDeal   Filter = Filter(domain.NotificationTypeDeal)
	FilterReport Filter = Filter(domain.NotificationTypeReport)
	FilterSystem Filter = Filter(domain.NotificationTypeSystem)
)

// IsValidFilter checks whether the given filter is recognized.
func IsValidFilter(f Filter) bool {
	switch f {
	case FilterAll, FilterUnread, FilterTask, FilterDeal, FilterReport, FilterSystem:
		return true
	default:
		return false
	}
}

// Sort selects the ordering of a query view.
type Sort string

// Sort constants.
const (
	SortNewest   Sort = "newest"
	SortOldest   Sort = "oldest"
	SortPriority Sort = "priority"
)

// IsValidSort checks whether the given sort is a recognized ordering.
func IsValidSort(s Sort) bool {
	switch s {
	case SortNewest, SortOldest, SortPriority:
		return true
	default:
		return false
	}
}

// Feed owns the derived notification set for a single user. It is the sole
// holder of mutable engine state: the working set and its read flags.
//
// Recompute replaces the entire working set, carrying read flags forward by
// id. Mutations act only on the current set, so a deleted notification
// reappears on the next recomputation if its source condition still holds,
// and read state set before a delete is lost with the deleted record. That
// asymmetry is deliberate: mark-as-read is re-derivable through the
// carry-forward merge, delete discards history.
//
// Feed is not safe for concurrent use; callers serialize access.
type Feed struct {
	items []domain.Notification
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Recompute replaces the working set with the given candidates, copying the
// read flag from any prior notification with the same id. A previously read
// notification is never reset to unread.
func (f *Feed) Recompute(candidates []domain.Notification) {
	read := make(map[string]bool, len(f.items))
	for _, n := range f.items {
		if n.Read {
			read[n.ID] = true
		}
	}

	items := make([]domain.Notification, len(candidates))
	copy(items, candidates)
	for i := range items {
		if read[items[i].ID] {
			items[i].Read = true
		}
	}
	f.items = items
}

// Notifications returns a copy of the current working set in stored order.
func (f *Feed) Notifications() []domain.Notification {
	out := make([]domain.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Len returns the size of the current working set.
func (f *Feed) Len() int {
	return len(f.items)
}

// UnreadCount returns the number of unread notifications in the working set.
func (f *Feed) UnreadCount() int {
	count := 0
	for _, n := range f.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkAsRead sets the read flag on the matching notification. A missing id is
// a no-op: the notification may have been dropped by a recomputation the
// caller has not observed yet.
func (f *Feed) MarkAsRead(id string) bool {
	for i := range f.items {
		if f.items[i].ID == id {
			changed := !f.items[i].Read
			f.items[i].Read = true
			return changed
		}
	}
	return false
}

// MarkAllAsRead sets the read flag on every notification.
func (f *Feed) MarkAllAsRead() {
	for i := range f.items {
		f.items[i].Read = true
	}
}

// Delete removes the matching notification from the working set. A missing id
// is a no-op. The removal does not survive the next recomputation.
func (f *Feed) Delete(id string) bool {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAll empties the working set. Like Delete, the next recomputation
// rebuilds whatever the source data still warrants.
func (f *Feed) ClearAll() {
	f.items = nil
}

// ByType returns the notifications of the given type, in stored order.
func (f *Feed) ByType(typ string) []domain.Notification {
	var out []domain.Notification
	for _, n := range f.items {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// ByPriority returns the notifications of the given priority, in stored order.
func (f *Feed) ByPriority(priority string) []domain.Notification {
	var out []domain.Notification
	for _, n := range f.items {
		if n.Priority == priority {
			out = append(out, n)
		}
	}
	return out
}

// FilteredAndSorted applies the filter and ordering to a copy of the working
// set. The stored order is never mutated.
func (f *Feed) FilteredAndSorted(filter Filter, sortBy Sort) []domain.Notification {
	out := make([]domain.Notification, 0, len(f.items))
	for _, n := range f.items {
		switch filter {
		case FilterAll, "":
			out = append(out, n)
		case FilterUnread:
			if !n.Read {
				out = append(out, n)
			}
		default:
			if n.Type == string(filter) {
				out = append(out, n)
			}
		}
	}

	switch sortBy {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Timestamp.Before(out[j].Timestamp)
		})
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			ri, rj := domain.PriorityRank(out[i].Priority), domain.PriorityRank(out[j].Priority)
			if ri != rj {
				return ri > rj
			}
			return out[i].Timestamp.After(out[j].Timestamp)
		})
	default:
		// Stored order is already newest first.
	}

	return out
}
