package reputation

import (
	"context"
	"time"
)

// Snapshot is a point-in-time copy of a platform's counters and derived
// rates, stored for trend queries.
type Snapshot struct {
	ID                string    `json:"id"`
	Platform          string    `json:"platform"`
	BaseScore         int       `json:"baseScore"`
	TotalTransactions int64     `json:"totalTransactions"`
	SuccessCount      int64     `json:"successCount"`
	FraudCount        int64     `json:"fraudCount"`
	ChargebackCount   int64     `json:"chargebackCount"`
	FraudRate         float64   `json:"fraudRate"`
	ChargebackRate    float64   `json:"chargebackRate"`
	SuccessRate       float64   `json:"successRate"`
	CreatedAt         time.Time `json:"createdAt"`
}

// SnapshotFromCounters builds a Snapshot from live counters and the base table.
func SnapshotFromCounters(table *BaseTable, c *Counters) *Snapshot {
	return &Snapshot{
		Platform:          c.Platform,
		BaseScore:         table.Score(c.Platform),
		TotalTransactions: c.TotalTransactions,
		SuccessCount:      c.SuccessCount,
		FraudCount:        c.FraudCount,
		ChargebackCount:   c.ChargebackCount,
		FraudRate:         c.FraudRate(),
		ChargebackRate:    c.ChargebackRate(),
		SuccessRate:       c.SuccessRate(),
		CreatedAt:         time.Now(),
	}
}

// HistoryQuery holds query parameters for historical snapshots.
type HistoryQuery struct {
	Platform string
	From     time.Time
	To       time.Time
	Limit    int
}

// SnapshotStore persists reputation snapshots.
type SnapshotStore interface {
	SaveBatch(ctx context.Context, snaps []*Snapshot) error
	Query(ctx context.Context, q HistoryQuery) ([]*Snapshot, error)
	Latest(ctx context.Context, platform string) (*Snapshot, error)
}
