package dispatch

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Delivery is the channel-agnostic payload handed to a sender: the rendered
// content plus the addressing a provider adapter needs.
type Delivery struct {
	NotificationID string
	UserID         string
	Channel        notification.Channel
	Priority       notification.Priority
	Title          string
	Body           string
	Data           map[string]any
}

// ChannelSender delivers one rendered notification over one channel.
// Implementations wrap a provider (APNs/FCM, email API, SMS gateway) or an
// in-process fan-out for in-app delivery.
//
// A nil return means delivered. Failures should be classified with
// Retryable or Terminal so the dispatcher can decide between backing off
// and giving up; an unclassified error is treated as retryable.
type ChannelSender interface {
	Send(ctx context.Context, d Delivery) error
}

// FuncSender adapts a function to the ChannelSender interface.
type FuncSender func(ctx context.Context, d Delivery) error

func (f FuncSender) Send(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}
