package notifykit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/backoff"
	"github.com/dmitrymomot/notifykit/pkg/badge"
	"github.com/dmitrymomot/notifykit/pkg/deliveryqueue"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preferences"
)

// Service composes the delivery pipeline: type registry, preference
// resolution, the per-channel queue, and the dispatcher. It is the single
// entry point applications use to emit notifications and manage per-user
// state.
type Service struct {
	registry   *notification.Registry
	storage    notification.Storage
	prefs      preferences.Store
	queue      *deliveryqueue.Queue
	dispatcher *dispatch.Dispatcher
	badges     *badge.Tracker
	policy     backoff.Policy
	log        *slog.Logger
	now        func() time.Time

	tickInterval    time.Duration
	drainLimit      int
	workers         int
	dispatchTimeout time.Duration

	loop loopState
}

// Option configures a Service.
type Option func(*Service)

// WithConfig applies the environment-derived tunables.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.TickInterval > 0 {
			s.tickInterval = cfg.TickInterval
		}
		if cfg.DrainLimit > 0 {
			s.drainLimit = cfg.DrainLimit
		}
		if cfg.WorkerPoolSize > 0 {
			s.workers = cfg.WorkerPoolSize
		}
		if cfg.DispatchTimeout > 0 {
			s.dispatchTimeout = cfg.DispatchTimeout
		}
		if cfg.MaxAttempts > 0 {
			s.policy.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.RetryBaseDelay > 0 {
			s.policy.BaseDelay = cfg.RetryBaseDelay
		}
		if cfg.RetryMaxDelay > 0 {
			s.policy.MaxDelay = cfg.RetryMaxDelay
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock sets the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTickInterval sets how often the drain loop wakes up.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithDrainLimit caps deliveries attempted per tick.
func WithDrainLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.drainLimit = n
		}
	}
}

// WithWorkerPoolSize bounds concurrent provider calls within one tick.
func WithWorkerPoolSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithDispatchTimeout bounds a single provider call; applied to the
// dispatcher when the service is assembled.
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dispatchTimeout = d
		}
	}
}

// WithBackoffPolicy replaces the retry policy.
func WithBackoffPolicy(p backoff.Policy) Option {
	return func(s *Service) {
		if p.MaxAttempts > 0 {
			s.policy = p
		}
	}
}

// WithBadgeTracker replaces the badge tracker, letting callers share one
// tracker across services.
func WithBadgeTracker(t *badge.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.badges = t
		}
	}
}

// New assembles a notification service. Registry, storage, preference store
// and dispatcher are required; everything else has defaults.
func New(
	registry *notification.Registry,
	storage notification.Storage,
	prefs preferences.Store,
	dispatcher *dispatch.Dispatcher,
	opts ...Option,
) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	}
	if storage == nil {
		return nil, fmt.Errorf("%w: storage", ErrMissingDependency)
	}
	if prefs == nil {
		return nil, fmt.Errorf("%w: preference store", ErrMissingDependency)
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher", ErrMissingDependency)
	}

	s := &Service{
		registry:     registry,
		storage:      storage,
		prefs:        prefs,
		dispatcher:   dispatcher,
		policy:       backoff.Default(),
		log:          slog.Default(),
		now:          time.Now,
		tickInterval: 2 * time.Second,
		drainLimit:   25,
		workers:      4,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.dispatchTimeout > 0 {
		s.dispatcher.SetTimeout(s.dispatchTimeout)
	}
	if s.badges == nil {
		s.badges = badge.NewTracker(storage)
	}
	s.queue = deliveryqueue.NewQueue(
		deliveryqueue.WithMaxAttempts(s.policy.MaxAttempts),
		deliveryqueue.WithClock(s.now),
	)
	return s, nil
}

// Notify renders and fans out one notification. It resolves the type,
// renders templates against data, applies the user's preferences, persists
// the notification and enqueues one delivery per effective channel.
//
// When preferences suppress every channel nothing is stored or enqueued and
// Notify returns (nil, nil).
func (s *Service) Notify(ctx context.Context, userID, typeID string, data map[string]any) (*notification.Notification, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	typ, err := s.registry.Resolve(typeID)
	if err != nil {
		return nil, err
	}

	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences for user %s: %w", userID, err)
	}

	now := s.now()
	channels := preferences.EffectiveChannels(prefs, typ, now)
	if len(channels) == 0 {
		s.log.DebugContext(ctx, "notification suppressed by preferences",
			"user_id", userID, "type_id", typeID)
		return nil, nil
	}

	title, body := s.registry.Render(typ, data)
	notif := notification.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		TypeID:    typ.ID,
		Category:  typ.Category,
		Priority:  typ.Priority,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: now,
	}
	if typ.ExpireAfter > 0 {
		expiresAt := now.Add(typ.ExpireAfter)
		notif.ExpiresAt = &expiresAt
	}

	if err := s.storage.Create(ctx, notif); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	s.badges.Increment(userID)

	for _, ch := range channels {
		if _, err := s.queue.Enqueue(notif.ID, userID, ch, typ.Priority, time.Time{}); err != nil {
			s.log.ErrorContext(ctx, "enqueue delivery",
				"notification_id", notif.ID, "channel", ch, "error", err)
		}
	}

	s.log.InfoContext(ctx, "notification created",
		"notification_id", notif.ID,
		"user_id", userID,
		"type_id", typeID,
		"channels", len(channels))
	return &notif, nil
}

// Preferences returns the user's preferences, defaults for unknown users.
func (s *Service) Preferences(ctx context.Context, userID string) (preferences.Preferences, error) {
	if userID == "" {
		return preferences.Preferences{}, ErrEmptyUserID
	}
	return s.prefs.Get(ctx, userID)
}

// UpdatePreferences applies a partial update to the user's preferences and
// returns the resulting document. Unset patch fields keep their current
// values.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, patch preferences.Patch) (preferences.Preferences, error) {
	if userID == "" {
		return preferences.Preferences{}, ErrEmptyUserID
	}
	if err := patch.Validate(); err != nil {
		return preferences.Preferences{}, err
	}

	current, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return preferences.Preferences{}, err
	}

	updated := patch.Apply(current)
	if err := s.prefs.Put(ctx, updated); err != nil {
		return preferences.Preferences{}, err
	}
	return updated, nil
}

// List returns the user's notifications.
func (s *Service) List(ctx context.Context, userID string, opts notification.ListOptions) ([]notification.Notification, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	return s.storage.List(ctx, userID, opts)
}

// MarkRead marks notifications as read and reconciles the badge count.
func (s *Service) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if err := s.storage.MarkRead(ctx, userID, notifIDs...); err != nil {
		return err
	}
	_, err := s.badges.Recompute(ctx, userID)
	return err
}

// MarkAllRead marks every unread notification as read and zeroes the badge.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	unread, err := s.storage.List(ctx, userID, notification.ListOptions{OnlyUnread: true})
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		s.badges.Clear(userID)
		return nil
	}

	ids := make([]string, len(unread))
	for i, n := range unread {
		ids[i] = n.ID
	}
	if err := s.storage.MarkRead(ctx, userID, ids...); err != nil {
		return err
	}
	s.badges.Clear(userID)
	return nil
}

// Delete removes notifications and reconciles the badge count.
func (s *Service) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if err := s.storage.Delete(ctx, userID, notifIDs...); err != nil {
		return err
	}
	_, err := s.badges.Recompute(ctx, userID)
	return err
}

// ClearAll removes every notification for a user and zeroes the badge.
func (s *Service) ClearAll(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if err := s.storage.DeleteAll(ctx, userID); err != nil {
		return err
	}
	s.badges.Clear(userID)
	return nil
}

// UnreadCount returns the authoritative unread count for a user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrEmptyUserID
	}
	return s.badges.Recompute(ctx, userID)
}

// NotificationStats summarizes one user's notification state.
type NotificationStats struct {
	Total          int              `json:"total"`
	Unread         int              `json:"unread"`
	PushPermission badge.Permission `json:"push_permission"`
	PushEnabled    bool             `json:"push_enabled"`
}

// GetStats returns the per-user view app shells render: counts plus the
// push permission state.
func (s *Service) GetStats(ctx context.Context, userID string) (NotificationStats, error) {
	if userID == "" {
		return NotificationStats{}, ErrEmptyUserID
	}

	all, err := s.storage.List(ctx, userID, notification.ListOptions{})
	if err != nil {
		return NotificationStats{}, err
	}
	unread, err := s.badges.Recompute(ctx, userID)
	if err != nil {
		return NotificationStats{}, err
	}

	return NotificationStats{
		Total:          len(all),
		Unread:         unread,
		PushPermission: s.badges.Permission(userID),
		PushEnabled:    s.badges.PushEnabled(userID),
	}, nil
}

// Badges exposes the badge tracker for permission and badge reads.
func (s *Service) Badges() *badge.Tracker {
	return s.badges
}

// QueueStats returns a snapshot of the delivery queue.
func (s *Service) QueueStats() deliveryqueue.Stats {
	return s.queue.Stats()
}

// DeadLetters returns deliveries that exhausted their retry budget.
func (s *Service) DeadLetters() []deliveryqueue.Item {
	return s.queue.DeadLetters()
}
