package dispatch

import (
	"context"
	"sync"
)

const defaultSubscriberBuffer = 16

// InAppSender fans rendered notifications out to connected subscribers,
// typically bridged to SSE or websocket handlers. Delivery is fire-and-
// forget: a subscriber that cannot keep up loses the event rather than
// blocking the drain loop, and a user with no open connections still counts
// as delivered because the notification is already persisted for later reads.
type InAppSender struct {
	mu   sync.RWMutex
	subs map[string]map[chan Delivery]struct{} // userID -> subscriber channels
	buf  int
}

// NewInAppSender creates an in-app fan-out hub.
func NewInAppSender() *InAppSender {
	return &InAppSender{
		subs: make(map[string]map[chan Delivery]struct{}),
		buf:  defaultSubscriberBuffer,
	}
}

// Subscribe registers a live feed for one user. The returned channel
// receives deliveries until unsubscribe is called, after which it is closed.
func (s *InAppSender) Subscribe(userID string) (<-chan Delivery, func()) {
	ch := make(chan Delivery, s.buf)

	s.mu.Lock()
	set, ok := s.subs[userID]
	if !ok {
		set = make(map[chan Delivery]struct{})
		s.subs[userID] = set
	}
	set[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(s.subs, userID)
				}
			}
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Subscribers returns the number of open feeds for a user.
func (s *InAppSender) Subscribers(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[userID])
}

// Send pushes the delivery to every open feed of the target user.
// It never fails: full subscriber buffers drop the event instead of
// blocking.
func (s *InAppSender) Send(_ context.Context, d Delivery) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch := range s.subs[d.UserID] {
		select {
		case ch <- d:
		default:
		}
	}
	return nil
}
