package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit applies a per-actor token bucket to mutating operator requests.
// rps = 0 disables limiting entirely.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiters := sync.Map{} // actor ID -> *cachedLimiter

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rps <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			actor, ok := ActorFromContext(r.Context())
			if !ok {
				unauthorized(w, "Unauthorized")
				return
			}

			limiter := getOrCreateLimiter(&limiters, actor.ID.String(), rps, burst, 5*time.Minute)
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func getOrCreateLimiter(limiters *sync.Map, key string, rps float64, burst int, ttl time.Duration) *rate.Limiter {
	if cached, ok := limiters.Load(key); ok {
		c := cached.(*cachedLimiter)
		if time.Now().Before(c.expiresAt) {
			return c.limiter
		}
		// expired, need to create new
	}

	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	limiters.Store(key, &cachedLimiter{
		limiter:   limiter,
		expiresAt: time.Now().Add(ttl),
	})
	return limiter
}
