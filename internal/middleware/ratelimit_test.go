package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("k", 3, time.Minute)
		if !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, retryIn := rl.Allow("k", 3, time.Minute)
	if ok {
		t.Error("fourth request should be limited")
	}
	if retryIn <= 0 {
		t.Errorf("retryIn = %v, want positive", retryIn)
	}
}

func TestRateLimiterIndependentKeys(t *testing.T) {
	rl := NewRateLimiter()

	if ok, _ := rl.Allow("a", 1, time.Minute); !ok {
		t.Fatal("first request on a should pass")
	}
	if ok, _ := rl.Allow("a", 1, time.Minute); ok {
		t.Error("second request on a should be limited")
	}
	if ok, _ := rl.Allow("b", 1, time.Minute); !ok {
		t.Error("request on b should pass")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()

	if ok, _ := rl.Allow("k", 1, -time.Second); !ok {
		t.Fatal("first request should pass")
	}
	// Window already expired: next request starts a fresh one.
	if ok, _ := rl.Allow("k", 1, time.Minute); !ok {
		t.Error("request after window expiry should pass")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()
	rl.Allow("stale", 1, -time.Second)
	rl.Allow("fresh", 1, time.Minute)

	rl.Cleanup()

	rl.mu.Lock()
	_, staleOK := rl.buckets["stale"]
	_, freshOK := rl.buckets["fresh"]
	rl.mu.Unlock()
	if staleOK {
		t.Error("stale bucket should be removed")
	}
	if !freshOK {
		t.Error("fresh bucket should remain")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimit(rl, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/store/items/x/redeem", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/store/items/x/redeem", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// A different path from the same IP has its own bucket.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/games/other/open", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for a different route", rec.Code)
	}
}
