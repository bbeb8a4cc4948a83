package deliveryqueue

import "errors"

var (
	// ErrItemNotFound is returned when an item id is not in the queue.
	ErrItemNotFound = errors.New("delivery queue item not found")

	// ErrInvalidTransition is returned when a Mark* call violates the item
	// state machine. This signals a caller bug, not a runtime condition.
	ErrInvalidTransition = errors.New("invalid delivery status transition")

	// ErrInvalidChannel is returned when enqueueing with an unknown channel.
	ErrInvalidChannel = errors.New("invalid delivery channel")

	// ErrEmptyNotificationID is returned when enqueueing without a parent
	// notification.
	ErrEmptyNotificationID = errors.New("notification ID is required")
)
