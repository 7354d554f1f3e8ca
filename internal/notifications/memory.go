package notifications

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and single-process demos.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]*Notification
	nextID int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]*Notification)}
}

func (m *MemoryStore) Create(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	n.ID = m.nextID
	clone := *n
	m.rows[n.ID] = &clone
	return nil
}

func (m *MemoryStore) Find(_ context.Context, id int64) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (m *MemoryStore) ForUser(_ context.Context, userID int64, unreadOnly bool, limit int) ([]*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Notification
	for _, n := range m.rows {
		if n.RecipientID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		clone := *n
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[n.ID]; !ok {
		return ErrNotFound
	}
	clone := *n
	m.rows[n.ID] = &clone
	return nil
}

func (m *MemoryStore) MarkAllRead(_ context.Context, userID int64, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int
	for _, n := range m.rows {
		if n.RecipientID == userID && !n.Read {
			n.Read = true
			readAt := at
			n.ReadAt = &readAt
			changed++
		}
	}
	return changed, nil
}

func (m *MemoryStore) CountUnread(_ context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int
	for _, n := range m.rows {
		if n.RecipientID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountByKind(_ context.Context, userID int64) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, n := range m.rows {
		if n.RecipientID == userID {
			counts[n.Kind]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *MemoryStore) Purge(_ context.Context, userID int64, readOnly bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int
	for id, n := range m.rows {
		if n.RecipientID != userID {
			continue
		}
		if readOnly && !n.Read {
			continue
		}
		delete(m.rows, id)
		removed++
	}
	return removed, nil
}
