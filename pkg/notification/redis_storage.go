package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrFailedToParseRedisConnString is returned when the Redis URL is malformed.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")

	// ErrRedisNotReady is returned when the Redis server does not become
	// reachable within the configured retry budget.
	ErrRedisNotReady = errors.New("redis server is not ready")
)

// RedisConfig configures the Redis-backed notification storage.
type RedisConfig struct {
	ConnectionURL  string        `env:"NOTIFY_REDIS_URL,required" envDefault:"redis://localhost:6379/0"` // Format "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"NOTIFY_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"NOTIFY_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"NOTIFY_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	KeyPrefix      string        `env:"NOTIFY_REDIS_KEY_PREFIX" envDefault:"notifications"`
}

// ConnectRedis establishes a Redis connection with retry, verifying the
// server responds to PING before handing the client to the storage.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	for range cfg.RetryAttempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// RedisStorage is a Redis-backed implementation of the Storage interface.
// Notifications are stored as JSON values in a per-user hash keyed by
// notification id, so single-notification reads and deletes stay O(1) while
// list operations load and filter the user's set.
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// RedisStorageOption configures a RedisStorage.
type RedisStorageOption func(*RedisStorage)

// WithRedisClock sets the time source used for expiry filtering, so the
// storage shares one clock with the delivery pipeline.
func WithRedisClock(now func() time.Time) RedisStorageOption {
	return func(s *RedisStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStorage creates a Redis-backed notification storage.
func NewRedisStorage(client *redis.Client, keyPrefix string, opts ...RedisStorageOption) *RedisStorage {
	if keyPrefix == "" {
		keyPrefix = "notifications"
	}
	s := &RedisStorage{client: client, keyPrefix: keyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStorage) userKey(userID string) string {
	return s.keyPrefix + ":user:" + userID
}

func (s *RedisStorage) Create(ctx context.Context, notif Notification) error {
	if notif.ID == "" {
		return errors.New("notification ID is required")
	}
	if notif.UserID == "" {
		return errors.New("user ID is required")
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = s.now()
	}

	raw, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", notif.ID, err)
	}

	if err := s.client.HSet(ctx, s.userKey(notif.UserID), notif.ID, raw).Err(); err != nil {
		return fmt.Errorf("store notification %s: %w", notif.ID, err)
	}
	return nil
}

func (s *RedisStorage) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	raw, err := s.client.HGet(ctx, s.userKey(userID), notifID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notification %s: %w", notifID, err)
	}

	var notif Notification
	if err := json.Unmarshal([]byte(raw), &notif); err != nil {
		return nil, fmt.Errorf("unmarshal notification %s: %w", notifID, err)
	}
	return &notif, nil
}

func (s *RedisStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	all, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var filtered []Notification
	for _, n := range all {
		if opts.matches(n, now) {
			filtered = append(filtered, n)
		}
	}

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

func (s *RedisStorage) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	key := s.userKey(userID)
	for _, id := range notifIDs {
		notif, err := s.Get(ctx, userID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		if notif.Read {
			continue
		}
		notif.MarkAsRead()

		raw, err := json.Marshal(notif)
		if err != nil {
			return fmt.Errorf("marshal notification %s: %w", id, err)
		}
		if err := s.client.HSet(ctx, key, id, raw).Err(); err != nil {
			return fmt.Errorf("update notification %s: %w", id, err)
		}
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.userKey(userID), notifIDs...).Err(); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

func (s *RedisStorage) DeleteAll(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete notifications for user %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	all, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	count := 0
	for _, n := range all {
		if !n.Read && !n.IsExpiredAt(now) {
			count++
		}
	}
	return count, nil
}

func (s *RedisStorage) load(ctx context.Context, userID string) ([]Notification, error) {
	raw, err := s.client.HGetAll(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load notifications for user %s: %w", userID, err)
	}

	notifs := make([]Notification, 0, len(raw))
	for id, v := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			return nil, fmt.Errorf("unmarshal notification %s: %w", id, err)
		}
		notifs = append(notifs, n)
	}
	return notifs, nil
}
