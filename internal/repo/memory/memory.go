package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hamed0406/httpwatchdog/internal/domain"
	"github.com/hamed0406/httpwatchdog/internal/repo"
)

// Store is the in-process status table. Entries are fixed at construction
// and addressed by position; a write replaces one PageStatus under the lock,
// so readers see either the old or the new value, never a mix.
type Store struct {
	mu       sync.RWMutex
	specs    []domain.ResourceSpec
	statuses []domain.PageStatus
	closed   bool
}

// New creates a store with every entry unprobed.
func New(specs []domain.ResourceSpec) *Store {
	return &Store{
		specs:    append([]domain.ResourceSpec(nil), specs...),
		statuses: make([]domain.PageStatus, len(specs)),
	}
}

func (m *Store) Update(ctx context.Context, index int, st domain.PageStatus) (domain.Entry, error) {
	st = st.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.Entry{}, repo.ErrStoreClosed
	}
	if index < 0 || index >= len(m.statuses) {
		return domain.Entry{}, fmt.Errorf("update %d: %w", index, repo.ErrUnknownEntry)
	}
	m.statuses[index] = st
	return domain.Entry{Index: index, Spec: m.specs[index], Status: st.Clone()}, nil
}

func (m *Store) Get(ctx context.Context, index int) (domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.Entry{}, repo.ErrStoreClosed
	}
	if index < 0 || index >= len(m.statuses) {
		return domain.Entry{}, fmt.Errorf("get %d: %w", index, repo.ErrUnknownEntry)
	}
	return domain.Entry{Index: index, Spec: m.specs[index], Status: m.statuses[index].Clone()}, nil
}

func (m *Store) Snapshot(ctx context.Context) ([]domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, repo.ErrStoreClosed
	}
	out := make([]domain.Entry, len(m.statuses))
	for i := range m.statuses {
		out[i] = domain.Entry{Index: i, Spec: m.specs[i], Status: m.statuses[i].Clone()}
	}
	return out, nil
}

// Close makes every later call fail with repo.ErrStoreClosed.
func (m *Store) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

var _ repo.StatusStore = (*Store)(nil)
