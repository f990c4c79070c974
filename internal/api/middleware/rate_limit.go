package middleware

import (
	"net/http"

	apiContext "hooklens/internal/api/context"
	"hooklens/internal/metrics"
	"hooklens/internal/pkg/errors"
	"hooklens/internal/pkg/parser"
)

type Limiter interface {
	Allow(key string) bool
}

// RateLimit throttles per authenticated user, or per client IP when the
// route is public.
func RateLimit(limiter Limiter, name string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + parser.ClientIP(r)
			if claims, ok := apiContext.ClaimsFrom(r.Context()); ok {
				key = "user:" + claims.UserID
			}

			if !limiter.Allow(name + ":" + key) {
				metrics.RateLimited.WithLabelValues(name).Inc()
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}

			next(w, r)
		}
	}
}
