package interceptors

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/FACorreiaa/couple-finance/pkg/httpjson"
)

// RateLimit applies a process-wide token bucket; rps <= 0 disables it
func RateLimit(rps, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				httpjson.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
