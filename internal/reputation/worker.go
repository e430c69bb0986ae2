package reputation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Worker periodically snapshots counters for all platforms that have seen
// at least one outcome.
type Worker struct {
	table    *BaseTable
	counters CounterStore
	store    SnapshotStore
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a reputation snapshot worker.
// interval is typically 1 hour in production, a few seconds in demo mode.
func NewWorker(table *BaseTable, counters CounterStore, store SnapshotStore, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		table:    table,
		counters: counters,
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins the snapshot loop. Call in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on start
	w.snapshot(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.snapshot(ctx)
		}
	}
}

// Stop signals the worker to stop. The signal is latched, so it is not
// lost when the worker is mid-snapshot rather than parked in its select.
// Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Worker) snapshot(ctx context.Context) {
	all, err := w.counters.All(ctx)
	if err != nil {
		w.logger.Warn("reputation snapshot failed to read counters", "error", err)
		return
	}
	if len(all) == 0 {
		return
	}

	snaps := make([]*Snapshot, 0, len(all))
	for _, c := range all {
		snaps = append(snaps, SnapshotFromCounters(w.table, c))
	}

	if err := w.store.SaveBatch(ctx, snaps); err != nil {
		w.logger.Warn("reputation snapshot failed to save", "error", err, "count", len(snaps))
		return
	}

	w.logger.Info("reputation snapshot completed", "platforms", len(snaps))
}
