// Package reputation tracks per-platform agent reputation for Agentgate.
//
// Reputation has two parts:
//   - A base score per agent platform (operator-configured table). Unknown
//     platforms get a conservative default.
//   - Live counters accumulated from transaction outcomes: totals, successes,
//     frauds and chargebacks, from which fraud/chargeback/success rates are
//     derived at read time.
//
// The risk engine consumes both; the snapshot worker records the counters
// periodically so rate trends can be queried over time.
package reputation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UnknownPlatformScore is the base score for platforms absent from the table.
const UnknownPlatformScore = 30

// Counters holds the accumulated outcome counts for one platform.
type Counters struct {
	Platform          string    `json:"platform"`
	TotalTransactions int64     `json:"totalTransactions"`
	SuccessCount      int64     `json:"successCount"`
	FraudCount        int64     `json:"fraudCount"`
	ChargebackCount   int64     `json:"chargebackCount"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// FraudRate returns frauds per transaction, zero when no transactions.
func (c *Counters) FraudRate() float64 {
	if c.TotalTransactions == 0 {
		return 0
	}
	return float64(c.FraudCount) / float64(c.TotalTransactions)
}

// ChargebackRate returns chargebacks per transaction, zero when no transactions.
func (c *Counters) ChargebackRate() float64 {
	if c.TotalTransactions == 0 {
		return 0
	}
	return float64(c.ChargebackCount) / float64(c.TotalTransactions)
}

// SuccessRate returns completions per transaction, zero when no transactions.
func (c *Counters) SuccessRate() float64 {
	if c.TotalTransactions == 0 {
		return 0
	}
	return float64(c.SuccessCount) / float64(c.TotalTransactions)
}

// Delta is a set of counter increments applied atomically per platform.
type Delta struct {
	Transactions int64
	Successes    int64
	Frauds       int64
	Chargebacks  int64
}

// CounterStore persists per-platform counters. Increment must be atomic:
// concurrent increments for the same platform may not lose updates.
type CounterStore interface {
	Increment(ctx context.Context, platform string, d Delta) error
	Get(ctx context.Context, platform string) (*Counters, error) // nil when unseen
	All(ctx context.Context) ([]*Counters, error)
}

// BaseTable answers base reputation scores per platform.
type BaseTable struct {
	scores map[string]int
}

// NewBaseTable copies the given score table. Keys are normalized to lowercase.
func NewBaseTable(scores map[string]int) *BaseTable {
	t := &BaseTable{scores: make(map[string]int, len(scores))}
	for k, v := range scores {
		t.scores[strings.ToLower(k)] = v
	}
	return t
}

// Score returns the base score for a platform, or UnknownPlatformScore when
// the platform is not in the table (including the empty string).
func (t *BaseTable) Score(platform string) int {
	if s, ok := t.scores[strings.ToLower(platform)]; ok {
		return s
	}
	return UnknownPlatformScore
}

// Known reports whether the platform is in the table.
func (t *BaseTable) Known(platform string) bool {
	_, ok := t.scores[strings.ToLower(platform)]
	return ok
}

// Platforms returns the configured platform names.
func (t *BaseTable) Platforms() []string {
	out := make([]string, 0, len(t.scores))
	for k := range t.scores {
		out = append(out, k)
	}
	return out
}

// Outcome classifies how a transaction ended, for counter updates.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeFailed     Outcome = "failed"
	OutcomeFraud      Outcome = "fraud"
	OutcomeChargeback Outcome = "chargeback"
)

// DeltaForOutcome maps an outcome to its counter increments. Every outcome
// counts one transaction; what else it bumps depends on how it ended.
func DeltaForOutcome(o Outcome) (Delta, error) {
	switch o {
	case OutcomeCompleted:
		return Delta{Transactions: 1, Successes: 1}, nil
	case OutcomeFailed:
		return Delta{Transactions: 1}, nil
	case OutcomeFraud:
		return Delta{Transactions: 1, Frauds: 1}, nil
	case OutcomeChargeback:
		return Delta{Transactions: 1, Chargebacks: 1}, nil
	default:
		return Delta{}, fmt.Errorf("unknown outcome %q", o)
	}
}

// Updater applies transaction outcomes to the counter store.
type Updater struct {
	store CounterStore
}

// NewUpdater creates a reputation updater.
func NewUpdater(store CounterStore) *Updater {
	return &Updater{store: store}
}

// ApplyOutcome increments the platform's counters for one outcome.
func (u *Updater) ApplyOutcome(ctx context.Context, platform string, outcome Outcome) error {
	d, err := DeltaForOutcome(outcome)
	if err != nil {
		return err
	}
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		platform = "unknown"
	}
	return u.store.Increment(ctx, platform, d)
}

// View combines the base score with live counters for API responses.
type View struct {
	Platform       string  `json:"platform"`
	BaseScore      int     `json:"baseScore"`
	Known          bool    `json:"known"`
	Totals         Totals  `json:"totals"`
	FraudRate      float64 `json:"fraudRate"`
	ChargebackRate float64 `json:"chargebackRate"`
	SuccessRate    float64 `json:"successRate"`
}

// Totals is the counter portion of a View.
type Totals struct {
	Transactions int64 `json:"transactions"`
	Successes    int64 `json:"successes"`
	Frauds       int64 `json:"frauds"`
	Chargebacks  int64 `json:"chargebacks"`
}

// NewView builds a View from a base table entry and counters. Counters may be
// nil for platforms with no recorded outcomes.
func NewView(table *BaseTable, platform string, c *Counters) *View {
	v := &View{
		Platform:  strings.ToLower(platform),
		BaseScore: table.Score(platform),
		Known:     table.Known(platform),
	}
	if c != nil {
		v.Totals = Totals{
			Transactions: c.TotalTransactions,
			Successes:    c.SuccessCount,
			Frauds:       c.FraudCount,
			Chargebacks:  c.ChargebackCount,
		}
		v.FraudRate = c.FraudRate()
		v.ChargebackRate = c.ChargebackRate()
		v.SuccessRate = c.SuccessRate()
	}
	return v
}
