package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(limit int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter([]Rule{{Method: "POST", Path: "/api/link-preview", Limit: limit, Window: window}})
	l.clock = clock
	return l, clock
}

func TestAllow_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		res, ok := l.Allow("1.2.3.4", "POST", "/api/link-preview")
		if !ok {
			t.Fatalf("request %d denied", i+1)
		}
		if want := 2 - i; res.Remaining != want {
			t.Errorf("request %d Remaining = %d, want %d", i+1, res.Remaining, want)
		}
	}

	res, ok := l.Allow("1.2.3.4", "POST", "/api/link-preview")
	if ok {
		t.Fatal("expected 4th request to be denied")
	}
	if res.RetryIn != 20*time.Second {
		t.Errorf("RetryIn = %v, want 20s", res.RetryIn)
	}
}

func TestAllow_Refills(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	l.Allow("1.2.3.4", "POST", "/api/link-preview")
	l.Allow("1.2.3.4", "POST", "/api/link-preview")
	if _, ok := l.Allow("1.2.3.4", "POST", "/api/link-preview"); ok {
		t.Fatal("expected denial once the bucket is empty")
	}

	clock.Advance(30 * time.Second)
	if _, ok := l.Allow("1.2.3.4", "POST", "/api/link-preview"); !ok {
		t.Fatal("expected one token after half a window")
	}
	if _, ok := l.Allow("1.2.3.4", "POST", "/api/link-preview"); ok {
		t.Fatal("expected denial after spending the refilled token")
	}
}

func TestAllow_DeniedRequestsDoNotConsume(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	l.Allow("1.2.3.4", "POST", "/api/link-preview")
	for i := 0; i < 5; i++ {
		l.Allow("1.2.3.4", "POST", "/api/link-preview")
	}

	clock.Advance(time.Minute)
	if _, ok := l.Allow("1.2.3.4", "POST", "/api/link-preview"); !ok {
		t.Fatal("denied requests should not push the refill out")
	}
}

func TestAllow_PerIP(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	if _, ok := l.Allow("1.1.1.1", "POST", "/api/link-preview"); !ok {
		t.Fatal("first IP denied")
	}
	if _, ok := l.Allow("2.2.2.2", "POST", "/api/link-preview"); !ok {
		t.Fatal("second IP should have its own bucket")
	}
}

func TestAllow_UnmatchedRoute(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	for i := 0; i < 10; i++ {
		res, ok := l.Allow("1.2.3.4", "GET", "/api/jobs")
		if !ok {
			t.Fatal("unmatched route should never be limited")
		}
		if res.Limit != 0 {
			t.Errorf("Limit = %d, want 0 for unmatched route", res.Limit)
		}
	}
}

func TestNewLimiter_IgnoresInvalidRules(t *testing.T) {
	l := NewLimiter([]Rule{
		{Method: "POST", Path: "/a", Limit: 0, Window: time.Minute},
		{Method: "POST", Path: "/b", Limit: 5, Window: 0},
	})
	if len(l.rules) != 0 {
		t.Errorf("rules = %d, want 0", len(l.rules))
	}
}

func TestCleanup(t *testing.T) {
	l, clock := newTestLimiter(5, time.Minute)

	l.Allow("1.1.1.1", "POST", "/api/link-preview")
	clock.Advance(30 * time.Second)
	l.Allow("2.2.2.2", "POST", "/api/link-preview")

	clock.Advance(30 * time.Second)
	l.Cleanup()

	if got := l.size(); got != 1 {
		t.Fatalf("size after cleanup = %d, want 1", got)
	}
	if _, ok := l.buckets["2.2.2.2:POST:/api/link-preview"]; !ok {
		t.Error("expected recently used bucket to survive")
	}
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(l)(next)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/link-preview", nil)
		req.RemoteAddr = "9.9.9.9:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestMiddleware_NilLimiter(t *testing.T) {
	called := false
	h := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/link-preview", nil))
	if !called {
		t.Error("expected pass-through with nil limiter")
	}
}
