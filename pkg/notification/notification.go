package notification

import (
	"time"
)

// Channel represents a delivery medium for notifications.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
)

// Channels lists all known channels in a stable order.
func Channels() []Channel {
	return []Channel{ChannelPush, ChannelEmail, ChannelSMS, ChannelInApp}
}

// Valid reports whether the channel is one of the known delivery media.
func (c Channel) Valid() bool {
	switch c {
	case ChannelPush, ChannelEmail, ChannelSMS, ChannelInApp:
		return true
	}
	return false
}

// Category groups notification types by the product area that produces them.
type Category string

const (
	CategoryMessage   Category = "message"
	CategoryBooking   Category = "booking"
	CategoryReview    Category = "review"
	CategorySystem    Category = "system"
	CategoryPromotion Category = "promotion"
	CategorySecurity  Category = "security"
	CategoryPayment   Category = "payment"
	CategoryProfile   Category = "profile"
)

// Valid reports whether the category is part of the closed enumeration.
func (c Category) Valid() bool {
	switch c {
	case CategoryMessage, CategoryBooking, CategoryReview, CategorySystem,
		CategoryPromotion, CategorySecurity, CategoryPayment, CategoryProfile:
		return true
	}
	return false
}

// Priority represents the notification priority level.
// The ordering is significant: higher values are serviced first by the
// delivery queue, and only PriorityUrgent bypasses quiet hours.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	}
	return "unknown"
}

// Valid reports whether the priority is within the known range.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// ParseChannel converts a string into a Channel.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", ErrInvalidChannel
	}
	return c, nil
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// ParsePriority converts a string into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	}
	return 0, ErrInvalidPriority
}

// Notification is the core domain model for a single user-facing event.
// It is created by the registry-render step at notify time and mutated only
// through read-state operations; the delivery pipeline never touches it.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	TypeID    string         `json:"type_id"`
	Category  Category       `json:"category"`
	Priority  Priority       `json:"priority"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	return n.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the notification is expired at the given time.
func (n *Notification) IsExpiredAt(t time.Time) bool {
	if n.ExpiresAt == nil {
		return false
	}
	return t.After(*n.ExpiresAt)
}

// MarkAsRead marks the notification as read with the current timestamp.
func (n *Notification) MarkAsRead() {
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}
