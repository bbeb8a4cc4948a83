package preferences

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// ChannelDefaults holds the per-channel master toggles. A channel disabled
// here is never used, regardless of category overrides.
type ChannelDefaults struct {
	Push  bool `json:"push"`
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	InApp bool `json:"in_app"`
}

// Enabled reports whether the given channel is globally enabled.
func (d ChannelDefaults) Enabled(ch notification.Channel) bool {
	switch ch {
	case notification.ChannelPush:
		return d.Push
	case notification.ChannelEmail:
		return d.Email
	case notification.ChannelSMS:
		return d.SMS
	case notification.ChannelInApp:
		return d.InApp
	}
	return false
}

// CategoryOverride replaces the type's default channel set for one category.
// Presence of an override in Preferences.Categories is the "override exists"
// state; absence means the type defaults apply unchanged. There is no
// nullable in-between.
type CategoryOverride struct {
	Enabled  bool                   `json:"enabled"`
	Channels []notification.Channel `json:"channels"`
}

// DigestFrequency controls how often digest-mode notifications are bundled.
type DigestFrequency string

const (
	DigestImmediate DigestFrequency = "immediate"
	DigestHourly    DigestFrequency = "hourly"
	DigestDaily     DigestFrequency = "daily"
	DigestWeekly    DigestFrequency = "weekly"
)

// Valid reports whether the frequency is part of the closed enumeration.
func (f DigestFrequency) Valid() bool {
	switch f {
	case DigestImmediate, DigestHourly, DigestDaily, DigestWeekly:
		return true
	}
	return false
}

// Digest holds digest delivery settings.
type Digest struct {
	Enabled   bool            `json:"enabled"`
	Frequency DigestFrequency `json:"frequency"`
}

// QuietHours defines a daily window during which non-urgent notifications
// are suppressed. Start and End use "HH:MM" in the configured timezone.
// A window with Start == End suppresses nothing.
type QuietHours struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// Contains reports whether now falls inside the quiet window. Overnight
// windows (start > end) wrap across midnight and are treated as a circular
// interval. The window is half-open: [start, end).
func (q QuietHours) Contains(now time.Time) (bool, error) {
	if !q.Enabled {
		return false, nil
	}

	startMin, err := parseClock(q.Start)
	if err != nil {
		return false, fmt.Errorf("%w: start %q", ErrInvalidQuietHours, q.Start)
	}
	endMin, err := parseClock(q.End)
	if err != nil {
		return false, fmt.Errorf("%w: end %q", ErrInvalidQuietHours, q.End)
	}

	// Equal boundaries are ambiguous between "all day" and "never";
	// resolved as no suppression so a typo cannot mute a user.
	if startMin == endMin {
		return false, nil
	}

	loc := time.UTC
	if q.Timezone != "" {
		loc, err = time.LoadLocation(q.Timezone)
		if err != nil {
			return false, fmt.Errorf("%w: timezone %q", ErrInvalidQuietHours, q.Timezone)
		}
	}

	local := now.In(loc)
	nowMin := local.Hour()*60 + local.Minute()

	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin, nil
	}
	// Overnight wrap, e.g. 22:00-08:00
	return nowMin >= startMin || nowMin < endMin, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Preferences is the per-user notification configuration.
type Preferences struct {
	UserID          string                                             `json:"user_id"`
	Enabled         bool                                               `json:"enabled"`
	ChannelDefaults ChannelDefaults                                    `json:"channel_defaults"`
	Categories      map[notification.Category]CategoryOverride         `json:"categories,omitempty"`
	QuietHours      QuietHours                                         `json:"quiet_hours"`
	Digest          Digest                                             `json:"digest"`
	UpdatedAt       time.Time                                          `json:"updated_at"`
}

// Default returns the preferences assumed for a user who never changed
// anything: notifications on, every channel except SMS enabled, no category
// overrides, no quiet hours, immediate delivery.
func Default(userID string) Preferences {
	return Preferences{
		UserID:  userID,
		Enabled: true,
		ChannelDefaults: ChannelDefaults{
			Push:  true,
			Email: true,
			SMS:   false,
			InApp: true,
		},
		Digest: Digest{Enabled: false, Frequency: DigestImmediate},
	}
}

// Override returns the category override and whether one exists.
func (p Preferences) Override(c notification.Category) (CategoryOverride, bool) {
	o, ok := p.Categories[c]
	return o, ok
}
