package notifykit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/deliveryqueue"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// loopState tracks the single drain loop owner.
type loopState struct {
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Start launches the background drain loop. Exactly one loop owns the queue:
// a second Start without an intervening Stop reports ErrAlreadyRunning.
// The loop stops when ctx is canceled or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.loop.mu.Lock()
	defer s.loop.mu.Unlock()

	if s.loop.running {
		return ErrAlreadyRunning
	}
	s.loop.running = true
	s.loop.stop = make(chan struct{})
	s.loop.done = make(chan struct{})

	go s.run(ctx, s.loop.stop, s.loop.done)
	s.log.InfoContext(ctx, "delivery loop started",
		"tick_interval", s.tickInterval,
		"drain_limit", s.drainLimit,
		"workers", s.workers)
	return nil
}

// Stop halts the drain loop and waits for the in-flight tick to finish.
// Safe to call multiple times.
func (s *Service) Stop() {
	s.loop.mu.Lock()
	if !s.loop.running {
		s.loop.mu.Unlock()
		return
	}
	s.loop.running = false
	close(s.loop.stop)
	done := s.loop.done
	s.loop.mu.Unlock()

	<-done
}

func (s *Service) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick drains one batch of due deliveries and dispatches them through a
// bounded worker pool, blocking until the batch completes. The background
// loop calls it on every tick; tests call it directly for deterministic
// delivery.
func (s *Service) Tick(ctx context.Context) {
	batch := s.queue.DrainDue(s.drainLimit)
	if len(batch) == 0 {
		return
	}

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for _, item := range batch {
		claimed, err := s.queue.MarkProcessing(item.ID)
		if err != nil {
			// Raced with Remove or a status change; skip.
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.deliver(ctx, claimed)
		}()
	}
	wg.Wait()
}

// deliver executes one claimed delivery attempt and records the outcome.
// Only a positively missing or expired parent drops the item; a storage
// error may be transient, so it consumes an attempt and retries instead of
// destroying the delivery.
func (s *Service) deliver(ctx context.Context, item deliveryqueue.Item) {
	notif, err := s.storage.Get(ctx, item.UserID, item.NotificationID)
	switch {
	case errors.Is(err, notification.ErrNotFound):
		s.drop(ctx, item, "parent notification deleted")
		return
	case err != nil:
		s.fail(ctx, item, fmt.Errorf("load notification %s: %w", item.NotificationID, err), true)
		return
	case notif == nil || notif.IsExpiredAt(s.now()):
		s.drop(ctx, item, "parent notification expired")
		return
	}

	res := s.dispatcher.Dispatch(ctx, dispatch.Delivery{
		NotificationID: notif.ID,
		UserID:         notif.UserID,
		Channel:        item.Channel,
		Priority:       notif.Priority,
		Title:          notif.Title,
		Body:           notif.Body,
		Data:           notif.Data,
	})
	if res.OK {
		if _, err := s.queue.MarkSent(item.ID); err != nil {
			s.log.ErrorContext(ctx, "record sent delivery",
				"item_id", item.ID, "error", err)
		}
		return
	}

	s.fail(ctx, item, res.Err, res.Retryable)
}

// fail records a failed attempt and either schedules a retry or exhausts
// the item.
func (s *Service) fail(ctx context.Context, item deliveryqueue.Item, cause error, retryable bool) {
	failed, err := s.queue.MarkFailed(item.ID, cause)
	if err != nil {
		s.log.ErrorContext(ctx, "record failed delivery",
			"item_id", item.ID, "error", err)
		return
	}

	if !retryable {
		s.exhaust(ctx, failed)
		return
	}

	delay, ok := s.policy.Next(failed.Attempts)
	if !ok {
		s.exhaust(ctx, failed)
		return
	}

	if _, err := s.queue.MarkRetry(item.ID, s.now().Add(delay)); err != nil {
		s.log.ErrorContext(ctx, "schedule retry",
			"item_id", item.ID, "error", err)
		return
	}
	s.log.WarnContext(ctx, "delivery retry scheduled",
		"notification_id", item.NotificationID,
		"channel", item.Channel,
		"attempts", failed.Attempts,
		"delay", delay)
}

// drop removes a delivery whose parent no longer warrants it.
func (s *Service) drop(ctx context.Context, item deliveryqueue.Item, reason string) {
	if err := s.queue.Remove(item.ID); err != nil {
		s.log.ErrorContext(ctx, "drop stale delivery",
			"item_id", item.ID, "error", err)
		return
	}
	s.log.InfoContext(ctx, "delivery dropped",
		"notification_id", item.NotificationID,
		"channel", item.Channel,
		"reason", reason)
}

func (s *Service) exhaust(ctx context.Context, item deliveryqueue.Item) {
	if _, err := s.queue.MarkExhausted(item.ID); err != nil {
		s.log.ErrorContext(ctx, "record exhausted delivery",
			"item_id", item.ID, "error", err)
		return
	}
	s.log.ErrorContext(ctx, "delivery exhausted",
		"notification_id", item.NotificationID,
		"channel", item.Channel,
		"attempts", item.Attempts,
		"last_error", item.LastError)
}
