package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 10 * time.Second

// Result is the outcome of one delivery attempt.
type Result struct {
	OK        bool
	Retryable bool
	Err       error
}

// Dispatcher routes a delivery to the sender registered for its channel and
// classifies the outcome. It holds no queue state; the caller owns retry
// scheduling and uses Result to drive it.
type Dispatcher struct {
	senders map[notification.Channel]ChannelSender
	timeout time.Duration
	log     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSender registers a sender for a channel. Registering the same channel
// twice keeps the last sender.
func WithSender(ch notification.Channel, s ChannelSender) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.senders[ch] = s
		}
	}
}

// WithTimeout overrides the per-attempt provider timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the logger for delivery outcomes.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDispatcher creates a dispatcher with the given senders.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		senders: make(map[notification.Channel]ChannelSender),
		timeout: DefaultTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetTimeout adjusts the per-attempt provider timeout after construction.
// The composed service applies its configured timeout through this.
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout = timeout
	}
}

// Timeout returns the per-attempt provider timeout.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}

// Channels returns the channels that have a registered sender.
func (d *Dispatcher) Channels() []notification.Channel {
	out := make([]notification.Channel, 0, len(d.senders))
	for ch := range d.senders {
		out = append(out, ch)
	}
	return out
}

// Dispatch attempts one delivery and classifies the outcome. A missing
// sender is terminal; a timed-out provider call is retryable. The attempt
// runs under the dispatcher timeout, layered on top of whatever deadline
// or cancellation the parent context already carries.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery Delivery) Result {
	sender, ok := d.senders[delivery.Channel]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrNoSender, delivery.Channel)
		d.log.WarnContext(ctx, "delivery dropped",
			"notification_id", delivery.NotificationID,
			"channel", delivery.Channel,
			"error", err)
		return Result{Retryable: false, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := sender.Send(ctx, delivery); err != nil {
		// Unclassified errors, including context.DeadlineExceeded from a
		// slow provider, default to retryable.
		retryable := !IsTerminal(err)
		d.log.WarnContext(ctx, "delivery failed",
			"notification_id", delivery.NotificationID,
			"channel", delivery.Channel,
			"retryable", retryable,
			"error", err)
		return Result{Retryable: retryable, Err: err}
	}

	d.log.DebugContext(ctx, "delivery sent",
		"notification_id", delivery.NotificationID,
		"channel", delivery.Channel)
	return Result{OK: true}
}
