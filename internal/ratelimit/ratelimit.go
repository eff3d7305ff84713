package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Rule allows Limit requests per Window for a specific method+path
// combination. Bursts of up to Limit are allowed; tokens refill evenly
// across the window.
type Rule struct {
	Method string
	Path   string
	Limit  int
	Window time.Duration
}

// Result contains rate limit status for a request.
type Result struct {
	Limit     int
	Remaining int
	RetryIn   time.Duration
}

type bucket struct {
	ruleKey  string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter implements token-bucket rate limiting per IP+method+path.
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]Rule // key: "METHOD:PATH"
	buckets map[string]*bucket
	clock   Clock
}

// NewLimiter creates a Limiter with the given rules. Rules with a
// non-positive limit or window are ignored.
func NewLimiter(rules []Rule) *Limiter {
	ruleMap := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if r.Limit <= 0 || r.Window <= 0 {
			continue
		}
		ruleMap[r.Method+":"+r.Path] = r
	}
	return &Limiter{
		rules:   ruleMap,
		buckets: make(map[string]*bucket),
		clock:   realClock{},
	}
}

// Allow checks whether a request from ip to method+path is allowed.
// If no rule matches the method+path, it returns (Result{}, true).
func (l *Limiter) Allow(ip, method, path string) (Result, bool) {
	ruleKey := method + ":" + path
	rule, ok := l.rules[ruleKey]
	if !ok {
		return Result{}, true
	}

	now := l.clock.Now()
	key := ip + ":" + ruleKey

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[key]
	if !exists {
		every := rate.Every(rule.Window / time.Duration(rule.Limit))
		b = &bucket{ruleKey: ruleKey, limiter: rate.NewLimiter(every, rule.Limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Result{Limit: rule.Limit, Remaining: 0, RetryIn: delay}, false
	}

	remaining := int(math.Floor(b.limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return Result{Limit: rule.Limit, Remaining: remaining}, true
}

// Cleanup removes buckets that have been idle for a full window, since
// they have refilled completely. Call periodically to prevent unbounded
// growth.
func (l *Limiter) Cleanup() {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		rule, ok := l.rules[b.ruleKey]
		if !ok || now.Sub(b.lastSeen) >= rule.Window {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
