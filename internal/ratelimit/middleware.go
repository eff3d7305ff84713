package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
)

// Middleware enforces the limiter's rules. Clients are identified by
// RemoteAddr, so it belongs after chi's RealIP middleware. A nil limiter
// disables limiting.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := l.Allow(clientIP(r), r.Method, r.URL.Path)
			if res.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			}
			if !ok {
				retry := int(math.Ceil(res.RetryIn.Seconds()))
				if retry < 1 {
					retry = 1
				}
				slog.Warn("rate limit exceeded", "ip", clientIP(r), "method", r.Method, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
