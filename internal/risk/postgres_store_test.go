//go:build integration

package risk

import (
	"context"
	"testing"
	"time"

	"github.com/agentgate/agentgate/internal/testutil"
)

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	db := testutil.OpenPostgres(t)
	store := NewPostgresStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	testutil.Truncate(t, db, "risk_assessments")
	return store
}

func sampleAssessment(id string) *Assessment {
	return &Assessment{
		ID:            id,
		TransactionID: "txn_" + id,
		CustomerPhone: "+14155551234",
		CustomerEmail: "dana@example.com",
		MerchantID:    "merch_1",
		AgentPlatform: "retell",
		RiskScore:     30,
		RiskLevel:     LevelLow,
		Signals: Signals{
			Customer:   CustomerSignals{PhoneValid: true, PhoneType: "mobile", IsNewCustomer: true},
			Reputation: ReputationSignals{Platform: "retell", KnownPlatform: true, BaseScore: 90},
		},
		Reasons:   []string{"first-time customer"},
		CreatedAt: time.Now(),
	}
}

func TestPostgresRecordAndGet(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	a := sampleAssessment("risk_pg1")
	if err := store.Record(ctx, a); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get(ctx, "risk_pg1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TransactionID != a.TransactionID || got.RiskScore != 30 || got.RiskLevel != LevelLow {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Signals.Customer.PhoneValid || got.Signals.Reputation.BaseScore != 90 {
		t.Errorf("signals did not survive the round trip: %+v", got.Signals)
	}
	if len(got.Reasons) != 1 {
		t.Errorf("reasons = %v, want 1", got.Reasons)
	}

	if _, err := store.Get(ctx, "risk_missing"); err != ErrNotFound {
		t.Errorf("Get for missing id = %v, want ErrNotFound", err)
	}
}

func TestPostgresFraudCountAndPending(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	fraud := sampleAssessment("risk_pg2")
	fraud.RiskScore = 90
	fraud.RiskLevel = LevelHigh
	fraud.IsFraud = true
	if err := store.Record(ctx, fraud); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	clean := sampleAssessment("risk_pg3")
	if err := store.Record(ctx, clean); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	n, err := store.CountFraudByCustomer(ctx, "+14155551234", "")
	if err != nil {
		t.Fatalf("CountFraudByCustomer failed: %v", err)
	}
	if n != 1 {
		t.Errorf("fraud count = %d, want 1", n)
	}

	// Empty identifiers must not match empty columns.
	n, err = store.CountFraudByCustomer(ctx, "", "")
	if err != nil {
		t.Fatalf("CountFraudByCustomer failed: %v", err)
	}
	if n != 0 {
		t.Errorf("fraud count with empty identifiers = %d, want 0", n)
	}

	pending, err := store.ListHighRiskPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListHighRiskPending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "risk_pg2" {
		t.Errorf("pending = %+v, want just risk_pg2", pending)
	}
}

func TestPostgresReviewAndStats(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	a := sampleAssessment("risk_pg4")
	a.RiskScore = 85
	a.RiskLevel = LevelHigh
	if err := store.Record(ctx, a); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	reviewed, err := store.Review(ctx, "risk_pg4", "ops@agentgate", "cleared")
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if !reviewed.Reviewed || reviewed.ReviewedBy != "ops@agentgate" || reviewed.ReviewedAt == nil {
		t.Errorf("review fields not set: %+v", reviewed)
	}

	if _, err := store.Review(ctx, "risk_missing", "ops", "cleared"); err != ErrNotFound {
		t.Errorf("Review for missing id = %v, want ErrNotFound", err)
	}

	stats, err := store.Stats(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 1 || stats.High != 1 || stats.PendingReview != 0 {
		t.Errorf("stats = %+v, want 1 total, 1 high, 0 pending", stats)
	}
}
