package preferences

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// EffectiveChannels computes the channel set a notification of the given type
// should fire on for a user, at the given time. It is the single point of
// truth for "should this channel fire": deterministic, side-effect free, and
// reused identically at enqueue time and at preference-change re-evaluation.
//
// Resolution order:
//
//  1. Master switch off -> nothing fires.
//  2. Start from the type's default channel set.
//  3. A category override replaces that set (or drops everything when the
//     category is disabled). Channels the type does not allow are ignored.
//  4. Intersect with the globally enabled channel defaults.
//  5. During quiet hours only urgent notifications pass.
//
// A quiet hours window that cannot be interpreted (bad clock, unknown
// timezone) is ignored rather than suppressing deliveries: misconfiguration
// must not silently mute a user's notifications.
func EffectiveChannels(prefs Preferences, typ notification.Type, now time.Time) []notification.Channel {
	if !prefs.Enabled {
		return nil
	}

	channels := typ.DefaultChannels

	if override, ok := prefs.Override(typ.Category); ok {
		if !override.Enabled {
			return nil
		}
		channels = intersect(override.Channels, typ.DefaultChannels)
	}

	var effective []notification.Channel
	for _, ch := range channels {
		if prefs.ChannelDefaults.Enabled(ch) {
			effective = append(effective, ch)
		}
	}

	if typ.Priority != notification.PriorityUrgent {
		if quiet, err := prefs.QuietHours.Contains(now); err == nil && quiet {
			return nil
		}
	}

	return effective
}

// intersect keeps the channels of set that are also allowed by the type.
func intersect(set, allowed []notification.Channel) []notification.Channel {
	allowedSet := make(map[notification.Channel]struct{}, len(allowed))
	for _, ch := range allowed {
		allowedSet[ch] = struct{}{}
	}

	var out []notification.Channel
	for _, ch := range set {
		if _, ok := allowedSet[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}
