//go:build integration

package reputation

import (
	"context"
	"sync"
	"testing"

	"github.com/agentgate/agentgate/internal/testutil"
)

func setupCounterStore(t *testing.T) *PostgresCounterStore {
	t.Helper()

	db := testutil.OpenPostgres(t)
	store := NewPostgresCounterStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	testutil.Truncate(t, db, "agent_reputation")
	return store
}

func TestPostgresCounters_IncrementAndGet(t *testing.T) {
	store := setupCounterStore(t)
	ctx := context.Background()

	if err := store.Increment(ctx, "retell", Delta{Transactions: 1, Successes: 1}); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if err := store.Increment(ctx, "retell", Delta{Transactions: 1, Frauds: 1}); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	c, err := store.Get(ctx, "retell")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c == nil {
		t.Fatal("counters not found")
	}
	if c.TotalTransactions != 2 || c.SuccessCount != 1 || c.FraudCount != 1 {
		t.Errorf("counters = %+v, want totals 2/1/1", c)
	}

	missing, err := store.Get(ctx, "never-seen")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if missing != nil {
		t.Error("Get for unseen platform should return nil")
	}
}

func TestPostgresCounters_ConcurrentIncrements(t *testing.T) {
	store := setupCounterStore(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Increment(ctx, "vapi", Delta{Transactions: 1})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}

	c, err := store.Get(ctx, "vapi")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c == nil {
		t.Fatal("counters not found")
	}
	if c.TotalTransactions != n {
		t.Errorf("TotalTransactions = %d, want %d (no lost updates)", c.TotalTransactions, n)
	}
}

func TestPostgresSnapshots_SaveAndQuery(t *testing.T) {
	db := testutil.OpenPostgres(t)
	store := NewPostgresSnapshotStore(db)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	testutil.Truncate(t, db, "reputation_snapshots")

	table := NewBaseTable(map[string]int{"retell": 90})
	snaps := []*Snapshot{
		SnapshotFromCounters(table, &Counters{Platform: "retell", TotalTransactions: 10, SuccessCount: 9, FraudCount: 1}),
		SnapshotFromCounters(table, &Counters{Platform: "vapi", TotalTransactions: 3, SuccessCount: 3}),
	}
	if err := store.SaveBatch(ctx, snaps); err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	got, err := store.Query(ctx, HistoryQuery{Platform: "retell"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query returned %d snapshots, want 1", len(got))
	}
	if got[0].FraudRate != 0.1 || got[0].BaseScore != 90 {
		t.Errorf("snapshot = %+v, want fraud rate 0.1 and base 90", got[0])
	}

	latest, err := store.Latest(ctx, "vapi")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest == nil || latest.TotalTransactions != 3 {
		t.Errorf("Latest = %+v, want 3 transactions", latest)
	}
}
