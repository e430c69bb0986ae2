package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentgate/agentgate/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal in-memory config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Env:                "development",
		LogLevel:           "error",
		VerifyThreshold:    config.DefaultVerifyThreshold,
		BlockThreshold:     config.DefaultBlockThreshold,
		AssessTimeout:      config.DefaultAssessTimeout,
		SnapshotInterval:   time.Hour,
		AdminSecret:        "test-secret",
		PlatformReputation: config.DefaultPlatformReputation,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/metrics",
		"GET:/ws",
		"POST:/v1/assess",
		"GET:/v1/assessments/:id",
		"GET:/v1/assessments/high-risk",
		"GET:/v1/risk/stats",
		"GET:/v1/reputation",
		"GET:/v1/reputation/:platform",
		"GET:/v1/reputation/:platform/history",
		"POST:/v1/outcomes",
		"GET:/v1/feed/stats",
		"POST:/v1/admin/lists/:list",
		"GET:/v1/admin/lists/:list",
		"POST:/v1/admin/assessments/:id/review",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// End-to-end assessment test
// ---------------------------------------------------------------------------

func TestAssessEndToEnd(t *testing.T) {
	s := newTestServer(t)

	body := `{
		"transactionId": "txn_e2e",
		"merchantId": "merch_1",
		"customer": {"phone": "+14155551234"},
		"totals": {"total": 25},
		"payment": {"method": "link", "currency": "USD"},
		"source": {"platform": "retell", "inputType": "link"}
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/assess", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Assessment struct {
			ID        string `json:"id"`
			RiskScore int    `json:"riskScore"`
			RiskLevel string `json:"riskLevel"`
		} `json:"assessment"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Assessment.ID == "" {
		t.Error("Expected an assessment id")
	}
	if resp.Assessment.RiskScore < 0 || resp.Assessment.RiskScore > 100 {
		t.Errorf("Score out of range: %d", resp.Assessment.RiskScore)
	}

	// The audited assessment is retrievable
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/assessments/"+resp.Assessment.ID, nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 fetching assessment, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Admin guard tests
// ---------------------------------------------------------------------------

func TestAdminRoutesRequireSecret(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/lists/block", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without secret, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/admin/lists/block", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong secret, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/admin/lists/block", nil)
	req.Header.Set("X-Admin-Secret", "test-secret")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with correct secret, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminOpenInDevelopmentWithoutSecret(t *testing.T) {
	cfg := testConfig()
	cfg.AdminSecret = ""
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/lists/block", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 in development without secret, got %d", w.Code)
	}
}

func TestAdminDisabledInProductionWithoutSecret(t *testing.T) {
	cfg := testConfig()
	cfg.AdminSecret = ""
	cfg.Env = "production"
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/lists/block", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 in production without secret, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Blocked customer through the full stack
// ---------------------------------------------------------------------------

func TestBlockedCustomerEndToEnd(t *testing.T) {
	s := newTestServer(t)

	body := `{"type": "phone", "value": "+14155559999", "reason": "confirmed fraud", "addedBy": "ops"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/admin/lists/block", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "test-secret")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 adding block entry, got %d: %s", w.Code, w.Body.String())
	}

	assess := `{
		"transactionId": "txn_blocked",
		"merchantId": "merch_1",
		"customer": {"phone": "+14155559999"},
		"totals": {"total": 25},
		"source": {"platform": "retell"}
	}`
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/assess", strings.NewReader(assess))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Assessment struct {
			RiskScore int    `json:"riskScore"`
			RiskLevel string `json:"riskLevel"`
			IsFraud   bool   `json:"isFraud"`
		} `json:"assessment"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Assessment.RiskScore != 100 || resp.Assessment.RiskLevel != "high" || !resp.Assessment.IsFraud {
		t.Errorf("Blocked customer should score 100/high/fraud, got %+v", resp.Assessment)
	}
}

// ---------------------------------------------------------------------------
// 404 test
// ---------------------------------------------------------------------------

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/nonexistent", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
