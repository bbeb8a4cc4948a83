package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func testDelivery(ch notification.Channel) dispatch.Delivery {
	return dispatch.Delivery{
		NotificationID: "notif-1",
		UserID:         "user-1",
		Channel:        ch,
		Title:          "Yeni Mesaj",
		Body:           "Ayşe: Merhaba",
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("successful delivery", func(t *testing.T) {
		t.Parallel()

		var sent []dispatch.Delivery
		d := dispatch.NewDispatcher(
			dispatch.WithSender(notification.ChannelPush, dispatch.FuncSender(func(_ context.Context, dl dispatch.Delivery) error {
				sent = append(sent, dl)
				return nil
			})),
		)

		res := d.Dispatch(context.Background(), testDelivery(notification.ChannelPush))
		assert.True(t, res.OK)
		assert.NoError(t, res.Err)
		require.Len(t, sent, 1)
		assert.Equal(t, "notif-1", sent[0].NotificationID)
	})

	t.Run("missing sender is terminal", func(t *testing.T) {
		t.Parallel()

		d := dispatch.NewDispatcher()
		res := d.Dispatch(context.Background(), testDelivery(notification.ChannelSMS))
		assert.False(t, res.OK)
		assert.False(t, res.Retryable)
		assert.ErrorIs(t, res.Err, dispatch.ErrNoSender)
	})

	t.Run("unclassified error defaults to retryable", func(t *testing.T) {
		t.Parallel()

		d := dispatch.NewDispatcher(
			dispatch.WithSender(notification.ChannelEmail, dispatch.FuncSender(func(context.Context, dispatch.Delivery) error {
				return errors.New("connection reset")
			})),
		)

		res := d.Dispatch(context.Background(), testDelivery(notification.ChannelEmail))
		assert.False(t, res.OK)
		assert.True(t, res.Retryable)
	})

	t.Run("terminal classification is honored", func(t *testing.T) {
		t.Parallel()

		d := dispatch.NewDispatcher(
			dispatch.WithSender(notification.ChannelEmail, dispatch.FuncSender(func(context.Context, dispatch.Delivery) error {
				return dispatch.Terminal(dispatch.ErrInvalidRecipient)
			})),
		)

		res := d.Dispatch(context.Background(), testDelivery(notification.ChannelEmail))
		assert.False(t, res.OK)
		assert.False(t, res.Retryable)
		assert.ErrorIs(t, res.Err, dispatch.ErrInvalidRecipient)
	})

	t.Run("slow provider times out as retryable", func(t *testing.T) {
		t.Parallel()

		d := dispatch.NewDispatcher(
			dispatch.WithTimeout(20*time.Millisecond),
			dispatch.WithSender(notification.ChannelPush, dispatch.FuncSender(func(ctx context.Context, _ dispatch.Delivery) error {
				<-ctx.Done()
				return ctx.Err()
			})),
		)

		res := d.Dispatch(context.Background(), testDelivery(notification.ChannelPush))
		assert.False(t, res.OK)
		assert.True(t, res.Retryable)
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	})
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		terminal bool
	}{
		{"plain error", errors.New("boom"), false},
		{"retryable wrap", dispatch.Retryable(errors.New("boom")), false},
		{"terminal wrap", dispatch.Terminal(errors.New("boom")), true},
		{"no sender sentinel", dispatch.ErrNoSender, true},
		{"invalid recipient sentinel", dispatch.ErrInvalidRecipient, true},
		{"permission revoked sentinel", dispatch.ErrPermissionRevoked, true},
		{"provider unavailable sentinel", dispatch.ErrProviderUnavailable, false},
		{"wrapped terminal sentinel", dispatch.Terminal(dispatch.ErrPermissionRevoked), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.terminal, dispatch.IsTerminal(tt.err))
		})
	}
}

func TestInAppSender(t *testing.T) {
	t.Parallel()

	t.Run("fans out to all feeds of the target user", func(t *testing.T) {
		t.Parallel()

		hub := dispatch.NewInAppSender()
		feedA, stopA := hub.Subscribe("user-1")
		defer stopA()
		feedB, stopB := hub.Subscribe("user-1")
		defer stopB()
		other, stopOther := hub.Subscribe("user-2")
		defer stopOther()

		require.NoError(t, hub.Send(context.Background(), testDelivery(notification.ChannelInApp)))

		assert.Equal(t, "notif-1", (<-feedA).NotificationID)
		assert.Equal(t, "notif-1", (<-feedB).NotificationID)
		assert.Empty(t, other)
	})

	t.Run("succeeds with no subscribers", func(t *testing.T) {
		t.Parallel()

		hub := dispatch.NewInAppSender()
		assert.NoError(t, hub.Send(context.Background(), testDelivery(notification.ChannelInApp)))
	})

	t.Run("unsubscribe closes the feed", func(t *testing.T) {
		t.Parallel()

		hub := dispatch.NewInAppSender()
		feed, stop := hub.Subscribe("user-1")
		require.Equal(t, 1, hub.Subscribers("user-1"))

		stop()
		stop() // idempotent
		assert.Zero(t, hub.Subscribers("user-1"))

		_, open := <-feed
		assert.False(t, open)
	})

	t.Run("full buffer drops instead of blocking", func(t *testing.T) {
		t.Parallel()

		hub := dispatch.NewInAppSender()
		feed, stop := hub.Subscribe("user-1")
		defer stop()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for range 100 {
				_ = hub.Send(context.Background(), testDelivery(notification.ChannelInApp))
			}
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("send blocked on a saturated subscriber")
		}
		assert.NotEmpty(t, feed)
	})
}
