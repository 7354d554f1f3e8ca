package notifications

import (
	"context"
	"time"
)

// Store describes persistence for notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	Find(ctx context.Context, id int64) (*Notification, error)
	// ForUser returns a user's notifications newest first. limit <= 0
	// means no limit.
	ForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*Notification, error)
	Update(ctx context.Context, n *Notification) error
	// MarkAllRead marks every unread notification of the user and returns
	// how many changed.
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	CountByKind(ctx context.Context, userID int64) (map[string]int, error)
	Delete(ctx context.Context, id int64) error
	// Purge deletes a user's notifications, only the read ones when
	// readOnly is set, and returns how many went away.
	Purge(ctx context.Context, userID int64, readOnly bool) (int, error)
}
