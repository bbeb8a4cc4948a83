package preferences

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Patch is a partial preferences update. Nil fields leave the current value
// untouched; set fields replace it wholesale. Category entries with a nil
// override remove the override for that category.
type Patch struct {
	Enabled         *bool
	ChannelDefaults *ChannelDefaults
	Categories      map[notification.Category]*CategoryOverride
	QuietHours      *QuietHours
	Digest          *Digest
}

// Validate checks the patch against the closed enumerations before it is
// applied, so a bad update is rejected as a whole.
func (p Patch) Validate() error {
	for c, o := range p.Categories {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", notification.ErrInvalidCategory, c)
		}
		if o == nil {
			continue
		}
		for _, ch := range o.Channels {
			if !ch.Valid() {
				return fmt.Errorf("%w: %q", notification.ErrInvalidChannel, ch)
			}
		}
	}
	if p.QuietHours != nil && p.QuietHours.Enabled {
		if _, err := p.QuietHours.Contains(time.Now()); err != nil {
			return err
		}
	}
	if p.Digest != nil && !p.Digest.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDigestFrequency, p.Digest.Frequency)
	}
	return nil
}

// Apply returns a copy of prefs with the patch applied.
func (p Patch) Apply(prefs Preferences) Preferences {
	if p.Enabled != nil {
		prefs.Enabled = *p.Enabled
	}
	if p.ChannelDefaults != nil {
		prefs.ChannelDefaults = *p.ChannelDefaults
	}
	if len(p.Categories) > 0 {
		merged := make(map[notification.Category]CategoryOverride, len(prefs.Categories)+len(p.Categories))
		for c, o := range prefs.Categories {
			merged[c] = o
		}
		for c, o := range p.Categories {
			if o == nil {
				delete(merged, c)
				continue
			}
			merged[c] = *o
		}
		prefs.Categories = merged
	}
	if p.QuietHours != nil {
		prefs.QuietHours = *p.QuietHours
	}
	if p.Digest != nil {
		prefs.Digest = *p.Digest
	}
	prefs.UpdatedAt = time.Now()
	return prefs
}
