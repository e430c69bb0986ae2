package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(Config{RequestsPerMinute: 60, BurstSize: 5, CleanupInterval: time.Minute})
	defer l.Stop()

	for i := 0; i < 5; i++ {
		if !l.Allow("client") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if l.Allow("client") {
		t.Fatal("request beyond burst should be denied")
	}
}

func TestRefillOverTime(t *testing.T) {
	l := New(Config{RequestsPerMinute: 6000, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("client") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("client") {
		t.Fatal("bucket should be empty")
	}

	// 100 tokens/sec refill; 50ms is plenty for one token
	time.Sleep(50 * time.Millisecond)
	if !l.Allow("client") {
		t.Fatal("bucket should have refilled")
	}
}

func TestIndependentClients(t *testing.T) {
	l := New(Config{RequestsPerMinute: 60, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("a") {
		t.Fatal("client a should be allowed")
	}
	if !l.Allow("b") {
		t.Fatal("client b has its own bucket")
	}
}

func TestMiddlewareDenies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := New(Config{RequestsPerMinute: 60, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/assess", func(c *gin.Context) { c.Status(http.StatusOK) })

	status := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/assess", nil))
		return w.Code
	}

	if got := status(); got != http.StatusOK {
		t.Fatalf("first request should pass, got %d", got)
	}
	if got := status(); got != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", got)
	}
}
