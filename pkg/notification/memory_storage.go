package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development, testing, and the single-process deployments the
// delivery core is designed for.
type MemoryStorage struct {
	notifications map[string][]Notification // userID -> notifications
	mu            sync.RWMutex
	now           func() time.Time
}

// MemoryStorageOption configures a MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithMemoryClock sets the time source used for expiry filtering, so the
// storage shares one clock with the delivery pipeline.
func WithMemoryClock(now func() time.Time) MemoryStorageOption {
	return func(s *MemoryStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	s := &MemoryStorage{
		notifications: make(map[string][]Notification),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if notif.ID == "" {
		return errors.New("notification ID is required")
	}
	if notif.UserID == "" {
		return errors.New("user ID is required")
	}

	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = s.now()
	}

	s.notifications[notif.UserID] = append(s.notifications[notif.UserID], notif)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications[userID] {
		if n.ID == notifID {
			// Return a copy to prevent external mutation of stored data
			notif := n
			return &notif, nil
		}
	}

	return nil, ErrNotFound
}

func (s *MemoryStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notifications, exists := s.notifications[userID]
	if !exists {
		return []Notification{}, nil
	}

	now := s.now()
	var filtered []Notification
	for _, n := range notifications {
		if opts.matches(n, now) {
			filtered = append(filtered, n)
		}
	}

	// Newest first
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}

	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end], nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notifications, exists := s.notifications[userID]
	if !exists {
		return nil
	}

	idSet := make(map[string]struct{}, len(notifIDs))
	for _, id := range notifIDs {
		idSet[id] = struct{}{}
	}

	for i := range notifications {
		if _, ok := idSet[notifications[i].ID]; ok {
			notifications[i].MarkAsRead()
		}
	}

	s.notifications[userID] = notifications
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notifications, exists := s.notifications[userID]
	if !exists {
		return nil
	}

	idSet := make(map[string]struct{}, len(notifIDs))
	for _, id := range notifIDs {
		idSet[id] = struct{}{}
	}

	var kept []Notification
	for _, n := range notifications {
		if _, ok := idSet[n.ID]; !ok {
			kept = append(kept, n)
		}
	}

	s.notifications[userID] = kept
	return nil
}

func (s *MemoryStorage) DeleteAll(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.notifications, userID)
	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	count := 0
	for _, n := range s.notifications[userID] {
		if !n.Read && !n.IsExpiredAt(now) {
			count++
		}
	}

	return count, nil
}
