package notification

import (
	"context"
	"time"
)

// Storage handles notification persistence and retrieval.
// The delivery pipeline treats it as an external collaborator: it only reads
// notifications by id while an attempt is in flight and never mutates them.
type Storage interface {
	// Create stores a new notification.
	Create(ctx context.Context, notif Notification) error

	// Get retrieves a single notification.
	Get(ctx context.Context, userID, notifID string) (*Notification, error)

	// List returns notifications for a user.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// MarkRead marks notification(s) as read.
	MarkRead(ctx context.Context, userID string, notifIDs ...string) error

	// Delete removes notification(s).
	Delete(ctx context.Context, userID string, notifIDs ...string) error

	// DeleteAll removes every notification for a user.
	DeleteAll(ctx context.Context, userID string) error

	// CountUnread returns the unread count for a user, excluding expired
	// notifications.
	CountUnread(ctx context.Context, userID string) (int, error)
}

// ListOptions provides filtering and pagination options for listing notifications.
type ListOptions struct {
	Limit      int        // Maximum number of notifications to return (0 = no limit)
	Offset     int        // Number of notifications to skip for pagination
	OnlyUnread bool       // When true, only return unread notifications
	Categories []Category // If specified, only return notifications of these categories
	Since      *time.Time // If specified, only return notifications created after this time
}

func (o ListOptions) matches(n Notification, now time.Time) bool {
	if n.IsExpiredAt(now) {
		return false
	}
	if o.OnlyUnread && n.Read {
		return false
	}
	if len(o.Categories) > 0 {
		found := false
		for _, c := range o.Categories {
			if n.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if o.Since != nil && n.CreatedAt.Before(*o.Since) {
		return false
	}
	return true
}
