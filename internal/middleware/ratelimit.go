package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"pet-adoption/internal/platform/apperr"
	"pet-adoption/internal/platform/httpx"
	"pet-adoption/internal/platform/metrics"

	"golang.org/x/time/rate"
)

var ErrRateLimited = apperr.TooManyRequests("too many requests, try again later")

const maxLocalEntries = 10000

// Limiter decide si una clave (ip+ruta) puede pasar.
type Limiter interface {
	Allow(key string) bool
}

// LocalLimiter es un token bucket por clave, en memoria del proceso.
type LocalLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*localEntry
	rate       rate.Limit
	burst      int
	idleTTL    time.Duration
	maxEntries int
	now        func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &LocalLimiter{
		limiters:   make(map[string]*localEntry),
		rate:       rate.Limit(rps),
		burst:      burst,
		idleTTL:    10 * time.Minute,
		maxEntries: maxLocalEntries,
		now:        time.Now,
	}
}

func (l *LocalLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= l.maxEntries {
			l.sweep(now)
		}
		e = &localEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// sweep elimina buckets sin uso reciente; Allow lo llama cuando el mapa
// llega a maxEntries.
func (l *LocalLimiter) sweep(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for k, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, k)
		}
	}
}

// RateLimit corta con 429 cuando el limiter rechaza ip+route.
func RateLimit(limiter Limiter, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(route + "|" + clientIP(r)) {
				metrics.RateLimited(route)
				w.Header().Set("Retry-After", "1")
				httpx.Error(w, r, ErrRateLimited)
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
