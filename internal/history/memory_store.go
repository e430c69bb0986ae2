package history

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions []*Transaction
	merchants    map[string]*Merchant
}

// NewMemoryStore creates an in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{merchants: make(map[string]*Merchant)}
}

func (s *MemoryStore) Record(ctx context.Context, tx *Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tx
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if cp.Status == "" {
		cp.Status = StatusPending
	}
	s.transactions = append(s.transactions, &cp)
	return nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range s.transactions {
		if tx.ID == id {
			tx.Status = status
			return nil
		}
	}
	return fmt.Errorf("transaction %s not found", id)
}

func (s *MemoryStore) CustomerHistory(ctx context.Context, phone, email string) (*CustomerHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := &CustomerHistory{}
	for _, tx := range s.transactions {
		if !matchesIdentity(tx, phone, email) {
			continue
		}
		if h.FirstSeen.IsZero() || tx.CreatedAt.Before(h.FirstSeen) {
			h.FirstSeen = tx.CreatedAt
		}
		if tx.Status == StatusCompleted {
			h.PreviousOrders++
			h.LifetimeValue += tx.Amount
		}
	}
	return h, nil
}

func (s *MemoryStore) MerchantStats(ctx context.Context, merchantID string) (*MerchantStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &MerchantStats{}
	if _, ok := s.merchants[merchantID]; ok {
		stats.Known = true
	}
	var total float64
	for _, tx := range s.transactions {
		if tx.MerchantID == merchantID && tx.Status == StatusCompleted {
			stats.CompletedOrders++
			total += tx.Amount
		}
	}
	if stats.CompletedOrders > 0 {
		stats.AvgOrderValue = total / float64(stats.CompletedOrders)
	}
	return stats, nil
}

func (s *MemoryStore) ListByIdentity(ctx context.Context, phone, email string, since time.Time) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if tx.CreatedAt.Before(since) {
			continue
		}
		if matchesIdentity(tx, phone, email) {
			cp := *tx
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) AddMerchant(ctx context.Context, m *Merchant) error {
	if m.ID == "" {
		return fmt.Errorf("merchant id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.merchants[m.ID]; exists {
		return nil
	}
	cp := *m
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.merchants[m.ID] = &cp
	return nil
}

// matchesIdentity reports whether tx belongs to either non-empty identifier.
func matchesIdentity(tx *Transaction, phone, email string) bool {
	if phone != "" && tx.CustomerPhone == phone {
		return true
	}
	if email != "" && tx.CustomerEmail == email {
		return true
	}
	return false
}
