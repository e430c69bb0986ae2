package reputation

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agentgate/agentgate/internal/idgen"
)

// MemorySnapshotStore is an in-memory SnapshotStore for demo/test use.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	snaps []*Snapshot
}

// NewMemorySnapshotStore creates an in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (s *MemorySnapshotStore) SaveBatch(ctx context.Context, snaps []*Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		cp := *snap
		if cp.ID == "" {
			cp.ID = idgen.WithPrefix("snap_")
		}
		s.snaps = append(s.snaps, &cp)
	}
	return nil
}

func (s *MemorySnapshotStore) Query(ctx context.Context, q HistoryQuery) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	platform := strings.ToLower(q.Platform)
	var out []*Snapshot
	for _, snap := range s.snaps {
		if snap.Platform != platform {
			continue
		}
		if !q.From.IsZero() && snap.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && snap.CreatedAt.After(q.To) {
			continue
		}
		cp := *snap
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemorySnapshotStore) Latest(ctx context.Context, platform string) (*Snapshot, error) {
	snaps, err := s.Query(ctx, HistoryQuery{Platform: platform, Limit: 1})
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return snaps[0], nil
}
