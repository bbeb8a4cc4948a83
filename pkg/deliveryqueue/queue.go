package deliveryqueue

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

const (
	// DefaultMaxAttempts caps delivery retries. Kept low on purpose:
	// notifications are perishable, a stale alert has little value.
	DefaultMaxAttempts = 3

	// DefaultDeadLetterLimit bounds the retained exhausted items.
	DefaultDeadLetterLimit = 1000
)

type pairKey struct {
	notificationID string
	channel        notification.Channel
}

// Queue holds pending delivery attempts, one per (notification, channel)
// pair. It is an in-memory structure: id map plus a dedup index, so enqueue
// and status transitions stay O(1) and only DrainDue scans.
//
// Concurrency contract: any number of producers may Enqueue concurrently
// with the drain loop; all mutation is serialized through one mutex.
// DrainDue is exclusive with itself by the same mutex, and the drained
// snapshot hands ownership of the returned items to the single drain owner.
type Queue struct {
	mu       sync.Mutex
	items    map[string]*Item
	byPair   map[pairKey]string // active (non-terminal) item per pair
	dead     []Item
	sent     int
	expired  int
	deadSeen int

	maxAttempts     int
	deadLetterLimit int
	now             func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxAttempts sets the retry ceiling stamped on enqueued items.
func WithMaxAttempts(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithDeadLetterLimit bounds how many exhausted items are retained for
// observability. Oldest entries are dropped first.
func WithDeadLetterLimit(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.deadLetterLimit = n
		}
	}
}

// WithClock sets the time source, letting tests drive due-time checks
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// NewQueue creates an empty delivery queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		items:           make(map[string]*Item),
		byPair:          make(map[pairKey]string),
		maxAttempts:     DefaultMaxAttempts,
		deadLetterLimit: DefaultDeadLetterLimit,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a delivery attempt for one notification on one channel.
// If an item for the same (notification, channel) pair already exists in a
// non-terminal state, the call is a no-op returning the existing item id.
// This is the de-duplication guarantee that keeps producer retries from
// causing duplicate sends.
//
// A zero scheduledAt means due immediately.
func (q *Queue) Enqueue(notificationID, userID string, channel notification.Channel, priority notification.Priority, scheduledAt time.Time) (string, error) {
	if notificationID == "" {
		return "", ErrEmptyNotificationID
	}
	if !channel.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, channel)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	key := pairKey{notificationID: notificationID, channel: channel}
	if existing, ok := q.byPair[key]; ok {
		return existing, nil
	}

	now := q.now()
	if scheduledAt.IsZero() {
		scheduledAt = now
	}

	item := &Item{
		ID:             uuid.New().String(),
		NotificationID: notificationID,
		UserID:         userID,
		Channel:        channel,
		Priority:       priority,
		Status:         StatusPending,
		MaxAttempts:    q.maxAttempts,
		CreatedAt:      now,
		ScheduledAt:    scheduledAt,
	}

	q.items[item.ID] = item
	q.byPair[key] = item.ID
	return item.ID, nil
}

// DrainDue returns up to limit items eligible for delivery: status pending or
// retry_scheduled with a due time at or before now, ordered by priority
// (highest first) then creation time (oldest first). The limit is the
// per-tick rate control: it bounds throughput regardless of backlog size.
//
// Returned items are snapshots; callers must MarkProcessing each item before
// dispatching it.
func (q *Queue) DrainDue(limit int) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var due []*Item
	for _, item := range q.items {
		if item.Due(now) {
			due = append(due, item)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	batch := make([]Item, len(due))
	for i, item := range due {
		batch[i] = *item
	}
	return batch
}

// MarkProcessing transitions an item to processing. Required before MarkSent
// or MarkFailed; calling it on an item that is not due-eligible reports
// ErrInvalidTransition.
func (q *Queue) MarkProcessing(itemID string) (Item, error) {
	return q.transition(itemID, StatusProcessing, func(item *Item) {})
}

// MarkSent transitions a processing item to the terminal sent state and
// removes it from the active set.
func (q *Queue) MarkSent(itemID string) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, err := q.transitionLocked(itemID, StatusSent, func(item *Item) {})
	if err != nil {
		return Item{}, err
	}

	q.sent++
	q.retire(item)
	return item, nil
}

// MarkFailed records a failed attempt: the attempt counter increments and
// the cause is retained. The item stays in the queue awaiting MarkRetry or
// MarkExhausted.
func (q *Queue) MarkFailed(itemID string, cause error) (Item, error) {
	return q.transition(itemID, StatusFailed, func(item *Item) {
		item.Attempts++
		if cause != nil {
			item.LastError = cause.Error()
		}
	})
}

// MarkRetry schedules a failed item for another attempt at the given time.
// Rejected when the retry budget is already spent; exhausting the item is
// the only valid move then.
func (q *Queue) MarkRetry(itemID string, at time.Time) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item, ok := q.items[itemID]; ok && item.Attempts >= item.MaxAttempts {
		return Item{}, fmt.Errorf("%w: item %s has no retry budget left (%d attempts)", ErrInvalidTransition, item.ID, item.Attempts)
	}

	return q.transitionLocked(itemID, StatusRetryScheduled, func(item *Item) {
		item.ScheduledAt = at
	})
}

// MarkExhausted transitions a failed item to the terminal exhausted state,
// removes it from the active set, and retains it in the dead-letter view.
func (q *Queue) MarkExhausted(itemID string) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, err := q.transitionLocked(itemID, StatusExhausted, func(item *Item) {})
	if err != nil {
		return Item{}, err
	}

	q.deadSeen++
	q.dead = append(q.dead, item)
	if len(q.dead) > q.deadLetterLimit {
		q.dead = q.dead[len(q.dead)-q.deadLetterLimit:]
	}
	q.retire(item)
	return item, nil
}

// Remove drops a non-terminal item without recording a delivery outcome.
// Used when the parent notification expired or was deleted before dispatch.
func (q *Queue) Remove(itemID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[itemID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	q.expired++
	q.retire(*item)
	return nil
}

// Item returns a snapshot of a queue item by id.
func (q *Queue) Item(itemID string) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[itemID]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return *item, nil
}

// DeadLetters returns the retained exhausted items, oldest first.
func (q *Queue) DeadLetters() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, len(q.dead))
	copy(out, q.dead)
	return out
}

// Stats is a point-in-time summary of queue state.
type Stats struct {
	Total      int `json:"total"`      // active (non-terminal) items
	Pending    int `json:"pending"`    // awaiting first attempt
	Processing int `json:"processing"` // currently being dispatched
	Retrying   int `json:"retrying"`   // waiting on a retry deadline
	Scheduled  int `json:"scheduled"`  // due time in the future
	Sent       int `json:"sent"`       // cumulative successful deliveries
	Exhausted  int `json:"exhausted"`  // cumulative permanent failures
}

// Stats returns a summary of the queue for observability.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	s := Stats{
		Total:     len(q.items),
		Sent:      q.sent,
		Exhausted: q.deadSeen,
	}
	for _, item := range q.items {
		switch item.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing, StatusFailed:
			s.Processing++
		case StatusRetryScheduled:
			s.Retrying++
		}
		if (item.Status == StatusPending || item.Status == StatusRetryScheduled) && item.ScheduledAt.After(now) {
			s.Scheduled++
		}
	}
	return s
}

// transition applies a guarded status change and returns the updated snapshot.
func (q *Queue) transition(itemID string, to Status, mutate func(*Item)) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.transitionLocked(itemID, to, mutate)
}

// transitionLocked is transition without locking. Callers must hold q.mu.
func (q *Queue) transitionLocked(itemID string, to Status, mutate func(*Item)) (Item, error) {
	item, ok := q.items[itemID]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	if !canTransition(item.Status, to) {
		return Item{}, fmt.Errorf("%w: %s -> %s (item %s)", ErrInvalidTransition, item.Status, to, itemID)
	}

	item.Status = to
	mutate(item)
	return *item, nil
}

// retire removes an item from the active set and frees its dedup slot.
// Callers must hold q.mu.
func (q *Queue) retire(item Item) {
	delete(q.items, item.ID)
	delete(q.byPair, pairKey{notificationID: item.NotificationID, channel: item.Channel})
}
