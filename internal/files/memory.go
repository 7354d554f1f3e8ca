package files

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and single-process demos.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]*Submission
	nextID int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]*Submission)}
}

func (m *MemoryStore) Create(_ context.Context, s *Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	clone := *s
	m.rows[s.ID] = &clone
	return nil
}

func (m *MemoryStore) Find(_ context.Context, id int64) (*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MemoryStore) ByStudent(_ context.Context, studentID int64, newestFirst bool) ([]*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Submission
	for _, s := range m.rows {
		if s.StudentID == studentID {
			clone := *s
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}

func (m *MemoryStore) ByTutor(_ context.Context, tutorID int64, state string) ([]*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Submission
	for _, s := range m.rows {
		if s.TutorID != tutorID {
			continue
		}
		if state != "" && s.State != state {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (m *MemoryStore) CountByState(_ context.Context, tutorID int64) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, s := range m.rows {
		if s.TutorID == tutorID {
			counts[s.State]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) Update(_ context.Context, s *Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.ID]; !ok {
		return ErrNotFound
	}
	clone := *s
	m.rows[s.ID] = &clone
	return nil
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
