package appointments

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and single-process demos.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]*Appointment
	nextID int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]*Appointment)}
}

func (m *MemoryStore) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	clone := *a
	m.rows[a.ID] = &clone
	return nil
}

func (m *MemoryStore) Find(_ context.Context, id int64) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *MemoryStore) Update(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[a.ID]; !ok {
		return ErrNotFound
	}
	clone := *a
	m.rows[a.ID] = &clone
	return nil
}

func (m *MemoryStore) ForUser(_ context.Context, userID int64, state string) ([]*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Appointment
	for _, a := range m.rows {
		if a.StudentID != userID && a.TutorID != userID {
			continue
		}
		if state != "" && a.State != state {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Time > out[j].Time
	})
	return out, nil
}

func (m *MemoryStore) Confirmed(_ context.Context, tutorID int64) ([]*Appointment, error) {
	return m.byTutorState(tutorID, StateConfirmed), nil
}

func (m *MemoryStore) PendingForTutor(_ context.Context, tutorID int64) ([]*Appointment, error) {
	return m.byTutorState(tutorID, StatePending), nil
}

func (m *MemoryStore) byTutorState(tutorID int64, state string) []*Appointment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Appointment
	for _, a := range m.rows {
		if a.TutorID == tutorID && a.State == state {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func (m *MemoryStore) CountByState(_ context.Context, userID int64) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, a := range m.rows {
		if a.StudentID == userID || a.TutorID == userID {
			counts[a.State]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) SlotTaken(_ context.Context, tutorID int64, date, hour string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.rows {
		if a.TutorID == tutorID && a.Date == date && a.Time == hour &&
			(a.State == StatePending || a.State == StateConfirmed) {
			return true, nil
		}
	}
	return false, nil
}
