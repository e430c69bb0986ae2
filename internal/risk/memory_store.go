package risk

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory assessment store for demo/test use.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]*Assessment
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assessments: make(map[string]*Assessment)}
}

func (s *MemoryStore) Record(ctx context.Context, a *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.assessments[a.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assessments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) CountFraudByCustomer(ctx context.Context, phone, email string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.assessments {
		if a.IsFraud && matchesIdentity(a, phone, email) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ListHighRiskPending(ctx context.Context, limit int) ([]*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Assessment
	for _, a := range s.assessments {
		if a.RiskLevel == LevelHigh && !a.Reviewed {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Review(ctx context.Context, id, reviewedBy, action string) (*Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assessments[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := time.Now()
	a.Reviewed = true
	a.ReviewedBy = reviewedBy
	a.ReviewedAt = &now
	a.ActionTaken = action

	cp := *a
	return &cp, nil
}

func (s *MemoryStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{Since: since}
	scoreSum := 0
	for _, a := range s.assessments {
		if a.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		scoreSum += a.RiskScore
		switch a.RiskLevel {
		case LevelLow:
			stats.Low++
		case LevelMedium:
			stats.Medium++
		case LevelHigh:
			stats.High++
			if !a.Reviewed {
				stats.PendingReview++
			}
		}
	}
	if stats.Total > 0 {
		stats.AvgScore = float64(scoreSum) / float64(stats.Total)
	}
	return stats, nil
}

// matchesIdentity matches only on non-empty identifiers, mirroring the
// postgres queries.
func matchesIdentity(a *Assessment, phone, email string) bool {
	if phone != "" && a.CustomerPhone == phone {
		return true
	}
	if email != "" && a.CustomerEmail == email {
		return true
	}
	return false
}
