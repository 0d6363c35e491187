package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vantagehq/vantage/internal/api/presenter"
)

// BurstGuard is a coarse per-client token bucket in front of the tiered
// limiter. It sheds floods cheaply; the tier accounting below it stays
// authoritative for the 429 body contract.
func BurstGuard(perSecond, burst int) func(http.Handler) http.Handler {
	type bucket struct {
		lim  *rate.Limiter
		seen time.Time
	}
	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)
	const ttl = 5 * time.Minute

	// drop idle buckets so the map cannot grow without bound
	ticker := time.NewTicker(time.Minute)
	go func() {
		for range ticker.C {
			mu.Lock()
			now := time.Now()
			for k, b := range buckets {
				if now.Sub(b.seen) > ttl {
					delete(buckets, k)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)

			mu.Lock()
			b, ok := buckets[key]
			if !ok {
				b = &bucket{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
				buckets[key] = b
			}
			b.seen = time.Now()
			mu.Unlock()

			if !b.lim.Allow() {
				w.Header().Set("Retry-After", "1")
				presenter.Error(w, r, "Request flood detected, slow down", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
