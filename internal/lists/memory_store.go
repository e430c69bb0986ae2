package lists

import (
	"context"
	"sort"
	"sync"
	"time"
)

type entryKey struct {
	list  Kind
	typ   IDType
	value string
}

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[entryKey]*Entry
}

// NewMemoryStore creates an in-memory list store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[entryKey]*Entry)}
}

func (s *MemoryStore) Add(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entryKey{e.List, e.Type, e.Value}
	if _, exists := s.entries[key]; exists {
		return nil // duplicate insert is a no-op
	}
	cp := *e
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.entries[key] = &cp
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, list Kind, typ IDType, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, entryKey{list, typ, value})
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, list Kind, typ IDType, value string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[entryKey{list, typ, value}]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, list Kind) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Entry
	for _, e := range s.entries {
		if e.List == list {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
