package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tutoria.org/internal/identity"
	"tutoria.org/internal/notify"
)

// Service stores and serves per-user notifications. It is deliberately
// forgiving on input: producers fire and forget, so unknown kinds are
// coerced instead of rejected.
type Service struct {
	store     Store
	directory identity.Directory
	now       func() time.Time
}

// NewService builds the service. directory may be nil; sender names are
// then left unresolved.
func NewService(store Store, directory identity.Directory) *Service {
	return &Service{
		store:     store,
		directory: directory,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores one notification. Unknown kinds become "sistema".
func (s *Service) Create(ctx context.Context, msg notify.Message) (*Notification, error) {
	if msg.RecipientID <= 0 {
		return nil, fmt.Errorf("%w: usuario_destino_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(msg.Body) == "" {
		return nil, fmt.Errorf("%w: mensaje is required", ErrInvalidInput)
	}
	kind := strings.TrimSpace(msg.Kind)
	if !KnownKind(kind) {
		kind = notify.KindSystem
	}
	n := &Notification{
		Kind:        kind,
		RecipientID: msg.RecipientID,
		SenderID:    msg.SenderID,
		Body:        msg.Body,
		RefKind:     msg.RefKind,
		RefID:       msg.RefID,
		CreatedAt:   s.now(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// DefaultListLimit caps listings when the caller does not ask for one.
const DefaultListLimit = 50

// ListFor returns a user's notifications newest first, rendered for
// display. Sender names resolve best effort.
func (s *Service) ListFor(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]View, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.store.ForUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(rows))
	names := make(map[int64]string)
	for _, n := range rows {
		view := View{Notification: *n, Icon: IconFor(n.Kind)}
		if n.SenderID != nil && s.directory != nil {
			name, ok := names[*n.SenderID]
			if !ok {
				if sender, err := s.directory.GetAccount(ctx, *n.SenderID); err == nil {
					name = sender.Name
				}
				names[*n.SenderID] = name
			}
			view.SenderName = name
		}
		views = append(views, view)
	}
	return views, nil
}

// MarkRead marks one owned notification as read. Reading twice is a no-op.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) (*Notification, error) {
	n, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, ErrForbidden
	}
	if n.Read {
		return n, nil
	}
	now := s.now()
	n.Read = true
	n.ReadAt = &now
	if err := s.store.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the user, returning how
// many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	return s.store.MarkAllRead(ctx, userID, s.now())
}

// UnreadCount returns the user's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// SummaryFor counts the user's notifications per kind.
func (s *Service) SummaryFor(ctx context.Context, userID int64) (*Summary, error) {
	counts, err := s.store.CountByKind(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{UserID: userID, ByKind: counts, Unread: unread}
	for _, n := range counts {
		sum.Total += n
	}
	return sum, nil
}

// Delete removes one owned notification.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	n, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != userID {
		return ErrForbidden
	}
	return s.store.Delete(ctx, id)
}

// Purge deletes a user's notifications, optionally only the read ones.
func (s *Service) Purge(ctx context.Context, userID int64, readOnly bool) (int, error) {
	return s.store.Purge(ctx, userID, readOnly)
}

// Broadcast stores one notification per known account, minus the sender,
// and returns how many were delivered. An empty or unknown kind becomes
// "sistema"; individual failures are skipped.
func (s *Service) Broadcast(ctx context.Context, body, kind string, senderID *int64) (int, error) {
	if strings.TrimSpace(body) == "" {
		return 0, fmt.Errorf("%w: mensaje is required", ErrInvalidInput)
	}
	if s.directory == nil {
		return 0, fmt.Errorf("%w: no account directory configured", ErrInvalidInput)
	}
	accounts, err := s.directory.ListAccounts(ctx, "")
	if err != nil {
		return 0, err
	}
	var delivered int
	for _, account := range accounts {
		if senderID != nil && account.ID == *senderID {
			continue
		}
		msg := notify.Message{
			Kind:        kind,
			RecipientID: account.ID,
			SenderID:    senderID,
			Body:        body,
		}
		if _, err := s.Create(ctx, msg); err == nil {
			delivered++
		}
	}
	return delivered, nil
}
