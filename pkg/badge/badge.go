// Package badge maintains per-user unread counts and the push permission
// lifecycle that app shells read to render badges and prompt decisions.
//
// The count is cached and mutated incrementally as notifications arrive and
// are read; Recompute reconciles it against storage whenever drift is
// suspected (client reconnect, process restart). Push permission is a
// one-way state machine: once a user denies the prompt, the tracker refuses
// to prompt again.
package badge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Permission is the push prompt state for one user.
type Permission string

const (
	// PermissionDefault means the user has never been prompted.
	PermissionDefault Permission = "default"
	// PermissionGranted means the user accepted the push prompt.
	PermissionGranted Permission = "granted"
	// PermissionDenied means the user declined. Denied is sticky: the
	// prompt must never be shown again.
	PermissionDenied Permission = "denied"
)

var (
	// ErrPermissionDenied is returned when a prompt is requested for a
	// user who already denied one.
	ErrPermissionDenied = errors.New("push permission was denied")

	// ErrPermissionNotGranted is returned when push is toggled for a user
	// without a granted permission.
	ErrPermissionNotGranted = errors.New("push permission not granted")

	// ErrInvalidDecision is returned when a prompt resolves to anything
	// other than granted or denied.
	ErrInvalidDecision = errors.New("invalid permission decision")
)

type userState struct {
	unread      int
	permission  Permission
	pushEnabled bool
}

// Tracker keeps badge state for all users of one service instance.
type Tracker struct {
	mu      sync.Mutex
	users   map[string]*userState
	storage notification.Storage
}

// NewTracker creates a tracker backed by the given notification storage.
// Storage is the source of truth for Recompute; the in-memory counters are
// a cache over it.
func NewTracker(storage notification.Storage) *Tracker {
	return &Tracker{
		users:   make(map[string]*userState),
		storage: storage,
	}
}

func (t *Tracker) state(userID string) *userState {
	st, ok := t.users[userID]
	if !ok {
		st = &userState{permission: PermissionDefault}
		t.users[userID] = st
	}
	return st
}

// Unread returns the cached unread count for a user.
func (t *Tracker) Unread(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state(userID).unread
}

// Increment bumps the unread count after a new notification is stored.
func (t *Tracker) Increment(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state(userID)
	st.unread++
	return st.unread
}

// Decrement lowers the unread count after a notification is read or
// deleted unread. The count never goes below zero.
func (t *Tracker) Decrement(userID string, n int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state(userID)
	st.unread -= n
	if st.unread < 0 {
		st.unread = 0
	}
	return st.unread
}

// Clear zeroes the unread count, matching a mark-all-read or clear-all.
func (t *Tracker) Clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(userID).unread = 0
}

// Recompute reconciles the cached count against storage and returns the
// authoritative value.
func (t *Tracker) Recompute(ctx context.Context, userID string) (int, error) {
	count, err := t.storage.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("recompute unread count: %w", err)
	}

	t.mu.Lock()
	t.state(userID).unread = count
	t.mu.Unlock()
	return count, nil
}

// Permission returns the push prompt state for a user.
func (t *Tracker) Permission(userID string) Permission {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state(userID).permission
}

// RequestPushPermission records the outcome of a push prompt. It refuses to
// run for users who already denied: surfacing ErrPermissionDenied lets the
// caller suppress the prompt UI instead of nagging. A granted outcome also
// enables push delivery.
func (t *Tracker) RequestPushPermission(userID string, decision Permission) (Permission, error) {
	if decision != PermissionGranted && decision != PermissionDenied {
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state(userID)
	if st.permission == PermissionDenied {
		return PermissionDenied, ErrPermissionDenied
	}

	st.permission = decision
	st.pushEnabled = decision == PermissionGranted
	return st.permission, nil
}

// PushEnabled reports whether push delivery is on for a user.
func (t *Tracker) PushEnabled(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.users[userID]
	return st != nil && st.permission == PermissionGranted && st.pushEnabled
}

// SetPushEnabled toggles push delivery for a user with a granted
// permission. Toggling without a grant is rejected so UI state cannot
// diverge from the permission machine.
func (t *Tracker) SetPushEnabled(userID string, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.state(userID)
	if st.permission != PermissionGranted {
		return fmt.Errorf("%w: user %s is %s", ErrPermissionNotGranted, userID, st.permission)
	}

	st.pushEnabled = enabled
	return nil
}
