// Per-IP rate limiting for the mutating endpoints.
package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter hands out one token-bucket limiter per client IP and drops
// buckets idle longer than an hour.
type ipLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	lastSeen map[string]time.Time
}

type clientLimiter struct {
	limiter *rate.Limiter
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	l := &ipLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		lastSeen: make(map[string]time.Time),
	}
	go func() {
		for {
			time.Sleep(time.Hour)
			l.cleanup()
		}
	}()
	return l
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	l.lastSeen[ip] = time.Now()
	return c.limiter.Allow()
}

func (l *ipLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-time.Hour)
	for ip, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			delete(l.lastSeen, ip)
			delete(l.clients, ip)
		}
	}
}

// clientIP extracts the caller address, honoring X-Forwarded-For from
// proxies.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimit wraps a handler, rejecting over-limit clients with 429.
func rateLimit(l *ipLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
