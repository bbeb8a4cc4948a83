package badge_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/badge"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func storeNotification(t *testing.T, storage notification.Storage, userID string, read bool) notification.Notification {
	t.Helper()

	n := notification.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		TypeID:    "MESSAGE_NEW",
		Category:  notification.CategoryMessage,
		Priority:  notification.PriorityHigh,
		Title:     "Yeni Mesaj",
		Body:      "Ayşe: Merhaba",
		Read:      read,
		CreatedAt: time.Now(),
	}
	require.NoError(t, storage.Create(context.Background(), n))
	return n
}

func TestTracker_UnreadCount(t *testing.T) {
	t.Parallel()

	t.Run("mutators agree with recompute", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		storage := notification.NewMemoryStorage()
		tracker := badge.NewTracker(storage)

		first := storeNotification(t, storage, "user-1", false)
		tracker.Increment("user-1")
		storeNotification(t, storage, "user-1", false)
		tracker.Increment("user-1")

		assert.Equal(t, 2, tracker.Unread("user-1"))
		count, err := tracker.Recompute(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, storage.MarkRead(ctx, "user-1", first.ID))
		tracker.Decrement("user-1", 1)

		assert.Equal(t, 1, tracker.Unread("user-1"))
		count, err = tracker.Recompute(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("recompute heals drift", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		storage := notification.NewMemoryStorage()
		tracker := badge.NewTracker(storage)

		storeNotification(t, storage, "user-1", false)
		storeNotification(t, storage, "user-1", false)
		storeNotification(t, storage, "user-1", true)

		// Cache never saw the writes.
		assert.Zero(t, tracker.Unread("user-1"))

		count, err := tracker.Recompute(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, 2, tracker.Unread("user-1"))
	})

	t.Run("decrement floors at zero", func(t *testing.T) {
		t.Parallel()

		tracker := badge.NewTracker(notification.NewMemoryStorage())
		tracker.Increment("user-1")
		assert.Zero(t, tracker.Decrement("user-1", 5))
	})

	t.Run("clear matches mark-all-read", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		storage := notification.NewMemoryStorage()
		tracker := badge.NewTracker(storage)

		a := storeNotification(t, storage, "user-1", false)
		b := storeNotification(t, storage, "user-1", false)
		tracker.Increment("user-1")
		tracker.Increment("user-1")

		require.NoError(t, storage.MarkRead(ctx, "user-1", a.ID, b.ID))
		tracker.Clear("user-1")

		count, err := tracker.Recompute(ctx, "user-1")
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Zero(t, tracker.Unread("user-1"))
	})

	t.Run("counts are per user", func(t *testing.T) {
		t.Parallel()

		tracker := badge.NewTracker(notification.NewMemoryStorage())
		tracker.Increment("user-1")
		assert.Equal(t, 1, tracker.Unread("user-1"))
		assert.Zero(t, tracker.Unread("user-2"))
	})
}

func TestTracker_PushPermission(t *testing.T) {
	t.Parallel()

	t.Run("starts in default", func(t *testing.T) {
		t.Parallel()

		tracker := badge.NewTracker(notification.NewMemoryStorage())
		assert.Equal(t, badge.PermissionDefault, tracker.Permission("user-1"))
		assert.False(t, tracker.PushEnabled("user-1"))
	})

	t.Run("grant enables push", func(t *testing.T) {
		t.Parallel()

		tracker := badge.NewTracker(notification.NewMemoryStorage())
		state, err := tracker.RequestPushPermission("user-1", badge.PermissionGranted)
		require.NoError(t, err)
		assert.Equal(t, badge.PermissionGranted, state)
		assert.True(t, tracker.PushEnabled("user-1"))
	})

	t.Run("denied is sticky", func(t *testing.T) {
		t.Parallel()

		tracker := badge.NewTracker(notification.NewMemoryStorage())
		state, err := tracker.RequestPushPermission("user-1", badge.PermissionDenied)
		require.NoError(t, err)
		assert.Equal(t, badge.PermissionDenied, state)

		// A later grant attempt must not re-open the prompt.
		state, err = tracker.RequestPushPermission("user-1", badge.PermissionGranted)
		assert.ErrorIs(t, err, badge.ErrPermissionDenied)
		assert.Equal(t, badge.PermissionDenied, state)
		assert.False(t, tracker.PushEnabled("user-1"))
	})

	t.Run("rejects non-decisions", func(t *testing.T) {
		t.Parallel()

		tracker := badge.NewTracker(notification.NewMemoryStorage())
		_, err := tracker.RequestPushPermission("user-1", badge.PermissionDefault)
		assert.ErrorIs(t, err, badge.ErrInvalidDecision)
	})

	t.Run("toggle requires a grant", func(t *testing.T) {
		t.Parallel()

		tracker := badge.NewTracker(notification.NewMemoryStorage())
		err := tracker.SetPushEnabled("user-1", true)
		assert.ErrorIs(t, err, badge.ErrPermissionNotGranted)

		_, err = tracker.RequestPushPermission("user-1", badge.PermissionGranted)
		require.NoError(t, err)

		require.NoError(t, tracker.SetPushEnabled("user-1", false))
		assert.False(t, tracker.PushEnabled("user-1"))
		require.NoError(t, tracker.SetPushEnabled("user-1", true))
		assert.True(t, tracker.PushEnabled("user-1"))
	})
}
