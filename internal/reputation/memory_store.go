package reputation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryCounterStore is an in-memory CounterStore for demo/test use.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*Counters
}

// NewMemoryCounterStore creates an in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]*Counters)}
}

func (s *MemoryCounterStore) Increment(ctx context.Context, platform string, d Delta) error {
	platform = strings.ToLower(platform)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[platform]
	if !ok {
		c = &Counters{Platform: platform}
		s.counters[platform] = c
	}
	c.TotalTransactions += d.Transactions
	c.SuccessCount += d.Successes
	c.FraudCount += d.Frauds
	c.ChargebackCount += d.Chargebacks
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryCounterStore) Get(ctx context.Context, platform string) (*Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[strings.ToLower(platform)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryCounterStore) All(ctx context.Context) ([]*Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Counters, 0, len(s.counters))
	for _, c := range s.counters {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}
