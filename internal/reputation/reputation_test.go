package reputation

import (
	"context"
	"testing"
)

func TestRatesZeroSafe(t *testing.T) {
	c := &Counters{Platform: "retell"}

	if r := c.FraudRate(); r != 0 {
		t.Errorf("FraudRate with no transactions should be 0, got %f", r)
	}
	if r := c.ChargebackRate(); r != 0 {
		t.Errorf("ChargebackRate with no transactions should be 0, got %f", r)
	}
	if r := c.SuccessRate(); r != 0 {
		t.Errorf("SuccessRate with no transactions should be 0, got %f", r)
	}
}

func TestRates(t *testing.T) {
	c := &Counters{
		Platform:          "retell",
		TotalTransactions: 200,
		SuccessCount:      180,
		FraudCount:        12,
		ChargebackCount:   8,
	}

	if r := c.FraudRate(); r != 0.06 {
		t.Errorf("FraudRate = %f, want 0.06", r)
	}
	if r := c.ChargebackRate(); r != 0.04 {
		t.Errorf("ChargebackRate = %f, want 0.04", r)
	}
	if r := c.SuccessRate(); r != 0.9 {
		t.Errorf("SuccessRate = %f, want 0.9", r)
	}
}

func TestBaseTable(t *testing.T) {
	table := NewBaseTable(map[string]int{
		"ChatGPT": 95,
		"retell":  90,
	})

	if s := table.Score("chatgpt"); s != 95 {
		t.Errorf("Score(chatgpt) = %d, want 95 (keys normalized to lowercase)", s)
	}
	if s := table.Score("RETELL"); s != 90 {
		t.Errorf("Score(RETELL) = %d, want 90 (lookup case-insensitive)", s)
	}
	if s := table.Score("homegrown-bot"); s != UnknownPlatformScore {
		t.Errorf("Score for unknown platform = %d, want %d", s, UnknownPlatformScore)
	}
	if s := table.Score(""); s != UnknownPlatformScore {
		t.Errorf("Score for empty platform = %d, want %d", s, UnknownPlatformScore)
	}
	if table.Known("homegrown-bot") {
		t.Error("Known should be false for unlisted platform")
	}
}

func TestDeltaForOutcome(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    Delta
	}{
		{OutcomeCompleted, Delta{Transactions: 1, Successes: 1}},
		{OutcomeFailed, Delta{Transactions: 1}},
		{OutcomeFraud, Delta{Transactions: 1, Frauds: 1}},
		{OutcomeChargeback, Delta{Transactions: 1, Chargebacks: 1}},
	}
	for _, tt := range tests {
		d, err := DeltaForOutcome(tt.outcome)
		if err != nil {
			t.Fatalf("DeltaForOutcome(%s) failed: %v", tt.outcome, err)
		}
		if d != tt.want {
			t.Errorf("DeltaForOutcome(%s) = %+v, want %+v", tt.outcome, d, tt.want)
		}
	}

	if _, err := DeltaForOutcome("exploded"); err == nil {
		t.Error("unknown outcome should return an error")
	}
}

func TestUpdaterApplyOutcome(t *testing.T) {
	store := NewMemoryCounterStore()
	u := NewUpdater(store)
	ctx := context.Background()

	outcomes := []Outcome{
		OutcomeCompleted, OutcomeCompleted, OutcomeCompleted,
		OutcomeFailed, OutcomeFraud, OutcomeChargeback,
	}
	for _, o := range outcomes {
		if err := u.ApplyOutcome(ctx, "Retell", o); err != nil {
			t.Fatalf("ApplyOutcome(%s) failed: %v", o, err)
		}
	}

	c, err := store.Get(ctx, "retell")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c == nil {
		t.Fatal("counters not found after increments")
	}
	if c.TotalTransactions != 6 {
		t.Errorf("TotalTransactions = %d, want 6", c.TotalTransactions)
	}
	if c.SuccessCount != 3 {
		t.Errorf("SuccessCount = %d, want 3", c.SuccessCount)
	}
	if c.FraudCount != 1 {
		t.Errorf("FraudCount = %d, want 1", c.FraudCount)
	}
	if c.ChargebackCount != 1 {
		t.Errorf("ChargebackCount = %d, want 1", c.ChargebackCount)
	}
}

func TestUpdaterEmptyPlatform(t *testing.T) {
	store := NewMemoryCounterStore()
	u := NewUpdater(store)
	ctx := context.Background()

	if err := u.ApplyOutcome(ctx, "  ", OutcomeCompleted); err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	c, err := store.Get(ctx, "unknown")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c == nil || c.TotalTransactions != 1 {
		t.Error("blank platform should be counted under 'unknown'")
	}
}

func TestNewView(t *testing.T) {
	table := NewBaseTable(map[string]int{"vapi": 88})

	v := NewView(table, "vapi", &Counters{
		Platform:          "vapi",
		TotalTransactions: 10,
		SuccessCount:      9,
		FraudCount:        1,
	})
	if v.BaseScore != 88 || !v.Known {
		t.Errorf("View base = (%d, %v), want (88, true)", v.BaseScore, v.Known)
	}
	if v.FraudRate != 0.1 {
		t.Errorf("View FraudRate = %f, want 0.1", v.FraudRate)
	}

	// nil counters for a platform with no outcomes yet
	v = NewView(table, "mystery", nil)
	if v.BaseScore != UnknownPlatformScore || v.Known {
		t.Errorf("View for unlisted platform = (%d, %v), want (%d, false)",
			v.BaseScore, v.Known, UnknownPlatformScore)
	}
	if v.Totals.Transactions != 0 {
		t.Errorf("View totals should be zero without counters")
	}
}
