package reputation

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func TestWorkerSnapshot(t *testing.T) {
	ctx := context.Background()
	counters := NewMemoryCounterStore()
	snaps := NewMemorySnapshotStore()
	table := NewBaseTable(map[string]int{"retell": 90})

	u := NewUpdater(counters)
	for i := 0; i < 4; i++ {
		if err := u.ApplyOutcome(ctx, "retell", OutcomeCompleted); err != nil {
			t.Fatalf("ApplyOutcome failed: %v", err)
		}
	}
	if err := u.ApplyOutcome(ctx, "retell", OutcomeFraud); err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}
	if err := u.ApplyOutcome(ctx, "vapi", OutcomeCompleted); err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewWorker(table, counters, snaps, time.Hour, logger)
	w.snapshot(ctx)

	latest, err := snaps.Latest(ctx, "retell")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a snapshot for retell")
	}
	if latest.TotalTransactions != 5 {
		t.Errorf("TotalTransactions = %d, want 5", latest.TotalTransactions)
	}
	if latest.FraudRate != 0.2 {
		t.Errorf("FraudRate = %f, want 0.2", latest.FraudRate)
	}
	if latest.BaseScore != 90 {
		t.Errorf("BaseScore = %d, want 90", latest.BaseScore)
	}

	// vapi is not in the base table but has counters
	latest, err = snaps.Latest(ctx, "vapi")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a snapshot for vapi")
	}
	if latest.BaseScore != UnknownPlatformScore {
		t.Errorf("BaseScore = %d, want %d", latest.BaseScore, UnknownPlatformScore)
	}
}

func TestWorkerSkipsEmptyStore(t *testing.T) {
	ctx := context.Background()
	counters := NewMemoryCounterStore()
	snaps := NewMemorySnapshotStore()

	w := NewWorker(NewBaseTable(nil), counters, snaps, time.Hour, nil)
	w.snapshot(ctx)

	got, err := snaps.Query(ctx, HistoryQuery{Platform: "retell"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no snapshots, got %d", len(got))
	}
}

// blockingSnapshotStore holds SaveBatch until released, so tests can park
// the worker inside a snapshot.
type blockingSnapshotStore struct {
	MemorySnapshotStore
	enterOnce sync.Once
	entered   chan struct{}
	release   chan struct{}
}

func (s *blockingSnapshotStore) SaveBatch(ctx context.Context, snaps []*Snapshot) error {
	s.enterOnce.Do(func() { close(s.entered) })
	<-s.release
	return s.MemorySnapshotStore.SaveBatch(ctx, snaps)
}

// Stop must take effect even when it lands while the worker is inside a
// snapshot rather than parked in its select loop.
func TestWorkerStopDuringSnapshot(t *testing.T) {
	counters := NewMemoryCounterStore()
	ctx := context.Background()

	if err := NewUpdater(counters).ApplyOutcome(ctx, "retell", OutcomeCompleted); err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	snaps := &blockingSnapshotStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	w := NewWorker(NewBaseTable(nil), counters, snaps, 10*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	<-snaps.entered
	w.Stop()
	close(snaps.release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after snapshot finished")
	}
}

func TestWorkerStartStop(t *testing.T) {
	counters := NewMemoryCounterStore()
	snaps := NewMemorySnapshotStore()
	ctx := context.Background()

	if err := NewUpdater(counters).ApplyOutcome(ctx, "retell", OutcomeCompleted); err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	w := NewWorker(NewBaseTable(nil), counters, snaps, 10*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	got, err := snaps.Query(ctx, HistoryQuery{Platform: "retell", Limit: 1000})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) == 0 {
		t.Error("expected at least one snapshot from the running worker")
	}
}
