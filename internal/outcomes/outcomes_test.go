package outcomes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/internal/history"
	"github.com/agentgate/agentgate/internal/reputation"
)

func setup(t *testing.T) (*Service, *history.MemoryStore, *reputation.MemoryCounterStore) {
	t.Helper()
	hist := history.NewMemoryStore()
	counters := reputation.NewMemoryCounterStore()
	svc := NewService(hist, reputation.NewUpdater(counters), nil)
	return svc, hist, counters
}

func TestApplyUpdatesExistingTransaction(t *testing.T) {
	svc, hist, counters := setup(t)
	ctx := context.Background()

	require.NoError(t, hist.Record(ctx, &history.Transaction{
		ID:            "txn_1",
		MerchantID:    "merch_1",
		CustomerPhone: "+14155551234",
		AgentPlatform: "retell",
		Amount:        50,
		Currency:      "USD",
		Status:        history.StatusPending,
		CreatedAt:     time.Now(),
	}))

	err := svc.Apply(ctx, &Event{
		TransactionID: "txn_1",
		AgentPlatform: "retell",
		Outcome:       reputation.OutcomeCompleted,
	})
	require.NoError(t, err)

	txs, err := hist.ListByIdentity(ctx, "+14155551234", "", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, history.StatusCompleted, txs[0].Status)

	c, err := counters.Get(ctx, "retell")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(1), c.TotalTransactions)
	assert.Equal(t, int64(1), c.SuccessCount)
}

func TestApplyRecordsUnknownTransaction(t *testing.T) {
	svc, hist, counters := setup(t)
	ctx := context.Background()

	err := svc.Apply(ctx, &Event{
		TransactionID: "txn_new",
		MerchantID:    "merch_1",
		CustomerPhone: "+1 (415) 555-1234",
		AgentPlatform: "Vapi",
		Amount:        80,
		Currency:      "USD",
		Outcome:       reputation.OutcomeFraud,
	})
	require.NoError(t, err)

	// Phone is normalized on the recorded row
	txs, err := hist.ListByIdentity(ctx, "+14155551234", "", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, history.StatusFraud, txs[0].Status)
	assert.Equal(t, "vapi", txs[0].AgentPlatform)

	c, err := counters.Get(ctx, "vapi")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(1), c.FraudCount)
}

func TestApplyRejectsInvalidOutcome(t *testing.T) {
	svc, _, _ := setup(t)

	err := svc.Apply(context.Background(), &Event{TransactionID: "txn_1", Outcome: "exploded"})
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	err = svc.Apply(context.Background(), &Event{TransactionID: "txn_1", Outcome: "pending"})
	assert.ErrorIs(t, err, ErrInvalidOutcome, "pending is not a settlement outcome")
}

func setupRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/v1"))
	return r
}

func TestRecordEndpoint(t *testing.T) {
	svc, _, counters := setup(t)
	r := setupRouter(svc)

	body, _ := json.Marshal(gin.H{
		"transactionId": "txn_9",
		"agentPlatform": "retell",
		"outcome":       "Chargeback",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/outcomes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	c, err := counters.Get(context.Background(), "retell")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(1), c.ChargebackCount)
}

func TestRecordEndpointRejectsBadInput(t *testing.T) {
	svc, _, _ := setup(t)
	r := setupRouter(svc)

	// Missing outcome
	body, _ := json.Marshal(gin.H{"transactionId": "txn_9"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/outcomes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown outcome value
	body, _ = json.Marshal(gin.H{"transactionId": "txn_9", "outcome": "vanished"})
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/outcomes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
