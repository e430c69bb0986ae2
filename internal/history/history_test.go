package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *MemoryStore, txs ...*Transaction) {
	t.Helper()
	for _, tx := range txs {
		require.NoError(t, s.Record(context.Background(), tx))
	}
}

func TestCustomerHistoryAggregation(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seed(t, s,
		&Transaction{ID: "t1", MerchantID: "m1", CustomerPhone: "+14155551234", Amount: 20, Status: StatusCompleted, CreatedAt: now.Add(-48 * time.Hour)},
		&Transaction{ID: "t2", MerchantID: "m1", CustomerPhone: "+14155551234", Amount: 30, Status: StatusCompleted, CreatedAt: now.Add(-24 * time.Hour)},
		&Transaction{ID: "t3", MerchantID: "m1", CustomerPhone: "+14155551234", Amount: 99, Status: StatusFailed, CreatedAt: now.Add(-1 * time.Hour)},
		&Transaction{ID: "t4", MerchantID: "m1", CustomerEmail: "a@example.com", Amount: 10, Status: StatusCompleted, CreatedAt: now},
	)

	h, err := s.CustomerHistory(context.Background(), "+14155551234", "")
	require.NoError(t, err)
	assert.Equal(t, 2, h.PreviousOrders, "failed orders don't count")
	assert.InDelta(t, 50.0, h.LifetimeValue, 0.001)
	assert.False(t, h.FirstSeen.IsZero())

	// Email-only identity
	h, err = s.CustomerHistory(context.Background(), "", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, h.PreviousOrders)

	// Unknown customer
	h, err = s.CustomerHistory(context.Background(), "+19995550000", "")
	require.NoError(t, err)
	assert.Equal(t, 0, h.PreviousOrders)
	assert.Zero(t, h.LifetimeValue)
}

func TestMerchantStats(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.AddMerchant(context.Background(), &Merchant{ID: "m1", Name: "Pizza Place"}))
	seed(t, s,
		&Transaction{ID: "t1", MerchantID: "m1", CustomerPhone: "+1", Amount: 10, Status: StatusCompleted},
		&Transaction{ID: "t2", MerchantID: "m1", CustomerPhone: "+1", Amount: 30, Status: StatusCompleted},
		&Transaction{ID: "t3", MerchantID: "m1", CustomerPhone: "+1", Amount: 500, Status: StatusFailed},
	)

	stats, err := s.MerchantStats(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, stats.Known)
	assert.Equal(t, 2, stats.CompletedOrders)
	assert.InDelta(t, 20.0, stats.AvgOrderValue, 0.001)

	stats, err = s.MerchantStats(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, stats.Known)
	assert.Zero(t, stats.AvgOrderValue)
}

func TestListByIdentityWindow(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	seed(t, s,
		&Transaction{ID: "old", MerchantID: "m1", CustomerPhone: "+1415", Amount: 5, CreatedAt: now.Add(-25 * time.Hour)},
		&Transaction{ID: "recent", MerchantID: "m2", CustomerPhone: "+1415", Amount: 5, CreatedAt: now.Add(-30 * time.Minute)},
		&Transaction{ID: "other", MerchantID: "m1", CustomerPhone: "+1999", Amount: 5, CreatedAt: now},
	)

	txs, err := s.ListByIdentity(context.Background(), "+1415", "", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "recent", txs[0].ID)
}

func TestEmptyIdentifiersMatchNothing(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s,
		&Transaction{ID: "t1", MerchantID: "m1", Amount: 5, Status: StatusCompleted},
	)

	// A transaction with empty phone/email must not match an empty query
	h, err := s.CustomerHistory(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, h.PreviousOrders)

	txs, err := s.ListByIdentity(context.Background(), "", "", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSetStatus(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, &Transaction{ID: "t1", MerchantID: "m1", CustomerPhone: "+1", Amount: 5})

	require.NoError(t, s.SetStatus(context.Background(), "t1", StatusChargeback))
	txs, err := s.ListByIdentity(context.Background(), "+1", "", time.Time{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, StatusChargeback, txs[0].Status)

	assert.Error(t, s.SetStatus(context.Background(), "missing", StatusCompleted))
}

func TestAddMerchantIdempotent(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.AddMerchant(context.Background(), &Merchant{ID: "m1", Name: "First"}))
	require.NoError(t, s.AddMerchant(context.Background(), &Merchant{ID: "m1", Name: "Second"}))

	stats, err := s.MerchantStats(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, stats.Known)
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusCompleted))
	assert.True(t, ValidStatus(StatusChargeback))
	assert.False(t, ValidStatus(Status("refunded")))
}
