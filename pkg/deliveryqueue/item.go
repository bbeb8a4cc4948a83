package deliveryqueue

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Status represents the delivery state of a queue item.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusSent           Status = "sent"
	StatusFailed         Status = "failed"
	StatusRetryScheduled Status = "retry_scheduled"
	StatusExhausted      Status = "exhausted"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusExhausted
}

// validTransitions is the delivery state machine:
// pending/retry_scheduled -> processing -> sent | failed,
// failed -> retry_scheduled | exhausted. Anything else is a programming
// error on the caller's side.
var validTransitions = map[Status][]Status{
	StatusPending:        {StatusProcessing},
	StatusRetryScheduled: {StatusProcessing},
	StatusProcessing:     {StatusSent, StatusFailed},
	StatusFailed:         {StatusRetryScheduled, StatusExhausted},
}

func canTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Item is one delivery attempt binding: a single notification on a single
// channel. The queue is its only owner; all status mutation is serialized
// through the queue's lock.
type Item struct {
	ID             string               `json:"id"`
	NotificationID string               `json:"notification_id"`
	UserID         string               `json:"user_id"`
	Channel        notification.Channel `json:"channel"`
	// Priority is joined in from the parent notification at enqueue time so
	// draining can order items without a storage lookup.
	Priority    notification.Priority `json:"priority"`
	Status      Status                `json:"status"`
	Attempts    int                   `json:"attempts"`
	MaxAttempts int                   `json:"max_attempts"`
	CreatedAt   time.Time             `json:"created_at"`
	// ScheduledAt is the due time: enqueue time for fresh items, the backoff
	// deadline for retries.
	ScheduledAt time.Time `json:"scheduled_at"`
	LastError   string    `json:"last_error,omitempty"`
}

// Due reports whether the item is eligible for draining at the given time.
func (i *Item) Due(now time.Time) bool {
	if i.Status != StatusPending && i.Status != StatusRetryScheduled {
		return false
	}
	return !i.ScheduledAt.After(now)
}
