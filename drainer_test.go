package notifykit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func TestService_RetryCycle(t *testing.T) {
	t.Parallel()

	t.Run("retryable failures back off and exhaust the budget", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
		rec := newRecorder()
		rec.fail(dispatch.Retryable(errors.New("gateway timeout")))
		svc := newTestService(t, clock, rec)

		// SYSTEM_ANNOUNCEMENT targets only the in-app channel, so the
		// cycle is observable on a single queue item.
		notif, err := svc.Notify(ctx, "user-1", "SYSTEM_ANNOUNCEMENT", map[string]any{"announcement": "Bakım"})
		require.NoError(t, err)
		require.NotNil(t, notif)

		// Attempt 1 fails; a retry is scheduled 5s out.
		svc.Tick(ctx)
		assert.Equal(t, 1, rec.count(notification.ChannelInApp))
		stats := svc.QueueStats()
		assert.Equal(t, 1, stats.Retrying)

		// Not due yet: nothing happens.
		clock.Advance(time.Second)
		svc.Tick(ctx)
		assert.Equal(t, 1, rec.count(notification.ChannelInApp))

		// Attempt 2 after the first backoff.
		clock.Advance(5 * time.Second)
		svc.Tick(ctx)
		assert.Equal(t, 2, rec.count(notification.ChannelInApp))

		// Attempt 3 after the doubled backoff spends the budget.
		clock.Advance(11 * time.Second)
		svc.Tick(ctx)
		assert.Equal(t, 3, rec.count(notification.ChannelInApp))

		stats = svc.QueueStats()
		assert.Zero(t, stats.Total)
		assert.Equal(t, 1, stats.Exhausted)

		dead := svc.DeadLetters()
		require.Len(t, dead, 1)
		assert.Equal(t, notif.ID, dead[0].NotificationID)
		assert.Equal(t, 3, dead[0].Attempts)
		assert.Equal(t, "gateway timeout", dead[0].LastError)

		// No further attempts on later ticks.
		clock.Advance(time.Hour)
		svc.Tick(ctx)
		assert.Equal(t, 3, rec.count(notification.ChannelInApp))
	})

	t.Run("terminal failure short-circuits to exhausted", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
		rec := newRecorder()
		rec.fail(dispatch.Terminal(dispatch.ErrInvalidRecipient))
		svc := newTestService(t, clock, rec)

		_, err := svc.Notify(ctx, "user-1", "SYSTEM_ANNOUNCEMENT", map[string]any{"announcement": "Bakım"})
		require.NoError(t, err)

		svc.Tick(ctx)
		assert.Equal(t, 1, rec.count(notification.ChannelInApp))

		dead := svc.DeadLetters()
		require.Len(t, dead, 1)
		assert.Equal(t, 1, dead[0].Attempts)

		clock.Advance(time.Hour)
		svc.Tick(ctx)
		assert.Equal(t, 1, rec.count(notification.ChannelInApp))
	})

	t.Run("recovered provider delivers on retry", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
		rec := newRecorder()
		rec.fail(dispatch.Retryable(errors.New("gateway timeout")))
		svc := newTestService(t, clock, rec)

		_, err := svc.Notify(ctx, "user-1", "SYSTEM_ANNOUNCEMENT", map[string]any{"announcement": "Bakım"})
		require.NoError(t, err)

		svc.Tick(ctx)
		rec.fail(nil)

		clock.Advance(6 * time.Second)
		svc.Tick(ctx)

		stats := svc.QueueStats()
		assert.Zero(t, stats.Total)
		assert.Equal(t, 1, stats.Sent)
		assert.Empty(t, svc.DeadLetters())
	})
}

// flakyStorage injects transient Get failures in front of a real storage.
type flakyStorage struct {
	notification.Storage
	mu       sync.Mutex
	failures int
}

func (s *flakyStorage) failNext(n int) {
	s.mu.Lock()
	s.failures = n
	s.mu.Unlock()
}

func (s *flakyStorage) Get(ctx context.Context, userID, notifID string) (*notification.Notification, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	s.mu.Unlock()
	return s.Storage.Get(ctx, userID, notifID)
}

func TestService_TransientStorageFailure(t *testing.T) {
	t.Parallel()

	t.Run("storage error retries instead of dropping", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
		rec := newRecorder()
		storage := &flakyStorage{Storage: notification.NewMemoryStorage(notification.WithMemoryClock(clock.Now))}
		svc := newTestServiceWith(t, clock, rec, storage)

		notif, err := svc.Notify(ctx, "user-1", "SYSTEM_ANNOUNCEMENT", map[string]any{"announcement": "Bakım"})
		require.NoError(t, err)
		require.NotNil(t, notif)

		storage.failNext(1)
		svc.Tick(ctx)

		// The item survived the outage as a scheduled retry.
		assert.Zero(t, rec.count(notification.ChannelInApp))
		stats := svc.QueueStats()
		assert.Equal(t, 1, stats.Total)
		assert.Equal(t, 1, stats.Retrying)

		clock.Advance(6 * time.Second)
		svc.Tick(ctx)

		assert.Equal(t, 1, rec.count(notification.ChannelInApp))
		stats = svc.QueueStats()
		assert.Zero(t, stats.Total)
		assert.Equal(t, 1, stats.Sent)
		assert.Empty(t, svc.DeadLetters())
	})

	t.Run("deleted parent still drops the delivery", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
		rec := newRecorder()
		svc := newTestService(t, clock, rec)

		notif, err := svc.Notify(ctx, "user-1", "SYSTEM_ANNOUNCEMENT", map[string]any{"announcement": "Bakım"})
		require.NoError(t, err)
		require.NoError(t, svc.Delete(ctx, "user-1", notif.ID))

		svc.Tick(ctx)

		assert.Zero(t, rec.count(notification.ChannelInApp))
		assert.Zero(t, svc.QueueStats().Total)
		assert.Empty(t, svc.DeadLetters())
	})
}

func TestService_ExpiredBeforeDispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	rec := newRecorder()
	svc := newTestService(t, clock, rec)

	// MESSAGE_NEW expires after 24h.
	notif, err := svc.Notify(ctx, "user-1", "MESSAGE_NEW", map[string]any{"senderName": "Ayşe"})
	require.NoError(t, err)
	require.NotNil(t, notif.ExpiresAt)

	clock.Advance(25 * time.Hour)
	svc.Tick(ctx)

	// Stale deliveries are dropped without a provider call.
	assert.Zero(t, rec.count(notification.ChannelPush))
	assert.Zero(t, rec.count(notification.ChannelInApp))
	stats := svc.QueueStats()
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.Sent)
	assert.Empty(t, svc.DeadLetters())
}

func TestService_DrainLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	rec := newRecorder()
	svc := newTestService(t, clock, rec, notifykit.WithDrainLimit(3))

	for range 5 {
		_, err := svc.Notify(ctx, "user-1", "SYSTEM_ANNOUNCEMENT", map[string]any{"announcement": "Bakım"})
		require.NoError(t, err)
	}

	svc.Tick(ctx)
	assert.Equal(t, 3, rec.count(notification.ChannelInApp))

	svc.Tick(ctx)
	assert.Equal(t, 5, rec.count(notification.ChannelInApp))
}

func TestService_StartStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	rec := newRecorder()
	svc := newTestService(t, clock, rec, notifykit.WithTickInterval(10*time.Millisecond))

	require.NoError(t, svc.Start(ctx))
	assert.ErrorIs(t, svc.Start(ctx), notifykit.ErrAlreadyRunning)

	_, err := svc.Notify(ctx, "user-1", "SYSTEM_ANNOUNCEMENT", map[string]any{"announcement": "Bakım"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return rec.count(notification.ChannelInApp) == 1
	}, time.Second, 10*time.Millisecond)

	svc.Stop()
	svc.Stop() // idempotent

	// The loop is stopped; new work waits for the next Start.
	_, err = svc.Notify(ctx, "user-1", "SYSTEM_ANNOUNCEMENT", map[string]any{"announcement": "Bakım"})
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rec.count(notification.ChannelInApp))

	require.NoError(t, svc.Start(ctx))
	require.Eventually(t, func() bool {
		return rec.count(notification.ChannelInApp) == 2
	}, time.Second, 10*time.Millisecond)
	svc.Stop()
}
