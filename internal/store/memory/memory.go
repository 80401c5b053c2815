package memory

import (
	"context"
	"sync"

	"github.com/loykin/folio/internal/store"
)

// Store is an in-process store, mostly for tests and ephemeral runs.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	cp := append([]byte(nil), value...)
	s.mu.Lock()
	s.data[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }
