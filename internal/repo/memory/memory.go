package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/statuschecker/internal/domain"
)

type Store struct {
	mu     sync.RWMutex
	runs   map[string]*domain.Run
	latest string
}

func New() *Store {
	return &Store{runs: make(map[string]*domain.Run)}
}

func (m *Store) Save(ctx context.Context, r *domain.Run) error {
	cp := clone(r)
	if cp.FinishedAt.IsZero() {
		cp.FinishedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[cp.ID] = cp
	if cur := m.runs[m.latest]; cur == nil || !cp.FinishedAt.Before(cur.FinishedAt) {
		m.latest = cp.ID
	}
	return nil
}

func (m *Store) Get(ctx context.Context, id string) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return clone(r), nil
}

func (m *Store) Latest(ctx context.Context) (*domain.Run, error) {
	m.mu.RLock()
	id := m.latest
	m.mu.RUnlock()
	if id == "" {
		return nil, nil
	}
	return m.Get(ctx, id)
}

// clone copies r and its outcomes so neither side can see the other's writes.
func clone(r *domain.Run) *domain.Run {
	cp := *r
	cp.Outcomes = append([]domain.Outcome(nil), r.Outcomes...)
	return &cp
}
