// Package preferences models per-user notification preferences and resolves
// them into effective channel sets.
//
// The model avoids nullable override blobs: a category either has a
// CategoryOverride entry (override exists) or it does not (type defaults
// apply). EffectiveChannels is a pure function over (preferences, type, time)
// and is the single decision point for channel selection, shared by enqueue
// and preference re-evaluation paths.
//
//	prefs, _ := store.Get(ctx, userID)
//	channels := preferences.EffectiveChannels(prefs, typ, time.Now())
//	for _, ch := range channels {
//	    // enqueue one delivery per channel
//	}
//
// Quiet hours are a circular daily window in the user's timezone; overnight
// windows wrap across midnight, and only urgent notifications pass during the
// window. Start == end means no suppression.
package preferences
