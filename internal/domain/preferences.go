package domain

import (
	"strconv"
	"strings"
	"time"
)

// Digest frequency constants.
const (
	DigestOff    = "off"
	DigestDaily  = "daily"
	DigestWeekly = "weekly"
)

// ChannelFlags selects delivery channels for a notification category.
// Delivery itself is handled outside this service; the flags are stored and
// served back to clients untouched.
type ChannelFlags struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// Preferences is the per-user notification configuration. It is persisted as
// a single JSON document keyed by user and handed to the derivation engine as
// an immutable input on every recomputation.
type Preferences struct {
	Tasks   bool `json:"tasks"`
	Deals   bool `json:"deals"`
	Reports bool `json:"reports"`

	QuietHours      bool   `json:"quiet_hours"`
	QuietHoursStart string `json:"quiet_hours_start"`
	QuietHoursEnd   string `json:"quiet_hours_end"`
	AllowCritical   bool   `json:"allow_critical"`

	Email  bool   `json:"email"`
	Push   bool   `json:"push"`
	SMS    bool   `json:"sms"`
	Digest string `json:"digest"`

	ChannelPreferences map[string]ChannelFlags `json:"channel_preferences,omitempty"`
}

// DefaultPreferences returns the fallback configuration used when a user has
// no stored preferences or the stored row cannot be decoded: all categories
// enabled, quiet hours off, critical alerts always allowed.
func DefaultPreferences() Preferences {
	return Preferences{
		Tasks:           true,
		Deals:           true,
		Reports:         true,
		QuietHours:      false,
		QuietHoursStart: "22:00",
		QuietHoursEnd:   "07:00",
		AllowCritical:   true,
		Email:           true,
		Push:            true,
		SMS:             false,
		Digest:          DigestOff,
	}
}

// ValidDigests returns the set of valid digest frequencies.
func ValidDigests() []string {
	return []string{DigestOff, DigestDaily, DigestWeekly}
}

// IsValidDigest checks whether the given digest string is a valid digest frequency.
func IsValidDigest(digest string) bool {
	for _, d := range ValidDigests() {
		if d == digest {
			return true
		}
	}
	return false
}

// InQuietWindow reports whether now falls inside the configured quiet-hours
// window. A start later than the end means the window wraps across midnight.
// Malformed window bounds disable suppression rather than failing derivation.
func (p Preferences) InQuietWindow(now time.Time) bool {
	if !p.QuietHours {
		return false
	}

	start, ok := parseMinuteOfDay(p.QuietHoursStart)
	if !ok {
		return false
	}
	end, ok := parseMinuteOfDay(p.QuietHoursEnd)
	if !ok {
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	if start > end {
		return cur >= start || cur <= end
	}
	return cur >= start && cur <= end
}

// parseMinuteOfDay parses an "HH:MM" clock string into minutes since midnight.
func parseMinuteOfDay(s string) (int, bool) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// PreferencesPatch is a partial preferences update. Nil fields are left
// untouched by Apply; set fields overwrite, shallow-merge style.
type PreferencesPatch struct {
	Tasks   *bool `json:"tasks,omitempty"`
	Deals   *bool `json:"deals,omitempty"`
	Reports *bool `json:"reports,omitempty"`

	QuietHours      *bool   `json:"quiet_hours,omitempty"`
	QuietHoursStart *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *string `json:"quiet_hours_end,omitempty"`
	AllowCritical   *bool   `json:"allow_critical,omitempty"`

	Email  *bool   `json:"email,omitempty"`
	Push   *bool   `json:"push,omitempty"`
	SMS    *bool   `json:"sms,omitempty"`
	Digest *string `json:"digest,omitempty"`

	ChannelPreferences map[string]ChannelFlags `json:"channel_preferences,omitempty"`
}

// Apply returns a copy of p with every set patch field applied.
func (p Preferences) Apply(patch PreferencesPatch) Preferences {
	if patch.Tasks != nil {
		p.Tasks = *patch.Tasks
	}
	if patch.Deals != nil {
		p.Deals = *patch.Deals
	}
	if patch.Reports != nil {
		p.Reports = *patch.Reports
	}
	if patch.QuietHours != nil {
		p.QuietHours = *patch.QuietHours
	}
	if patch.QuietHoursStart != nil {
		p.QuietHoursStart = *patch.QuietHoursStart
	}
	if patch.QuietHoursEnd != nil {
		p.QuietHoursEnd = *patch.QuietHoursEnd
	}
	if patch.AllowCritical != nil {
		p.AllowCritical = *patch.AllowCritical
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Push != nil {
		p.Push = *patch.Push
	}
	if patch.SMS != nil {
		p.SMS = *patch.SMS
	}
	if patch.Digest != nil {
		p.Digest = *patch.Digest
	}
	if patch.ChannelPreferences != nil {
		p.ChannelPreferences = patch.ChannelPreferences
	}
	return p
}
