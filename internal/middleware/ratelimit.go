package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/httpx"
	"golang.org/x/time/rate"
)

// RateLimit throttles requests per authenticated user. A limit of 0 disables it.
// Limiters are kept for ttl after creation and then rebuilt.
func RateLimit(limit float64, burst int, ttl time.Duration, onReject func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		limiters := sync.Map{} // user id -> *cachedLimiter

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, _ := auth.UserIDFromContext(r.Context())
			limiter := getOrCreateLimiter(&limiters, uid, limit, burst, ttl)
			if !limiter.Allow() {
				if onReject != nil {
					onReject()
				}
				w.Header().Set("Retry-After", "1")
				httpx.JSONError(w, http.StatusTooManyRequests, "rate_limited", nil)
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

func getOrCreateLimiter(limiters *sync.Map, uid uint, limit float64, burst int, ttl time.Duration) *rate.Limiter {
	if v, ok := limiters.Load(uid); ok {
		cached := v.(*cachedLimiter)
		if time.Now().Before(cached.expiresAt) {
			return cached.limiter
		}
	}
	limiter := rate.NewLimiter(rate.Limit(limit), burst)
	limiters.Store(uid, &cachedLimiter{limiter: limiter, expiresAt: time.Now().Add(ttl)})
	return limiter
}
