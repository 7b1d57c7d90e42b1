package middleware

import (
	"net"
	"net/http"

	"eden-backend/pkg/auth"
	pkgerrors "eden-backend/pkg/errors"
)

// RateLimit rejects clients that exceed their per-IP budget with 429.
// It expects chi's RealIP middleware to have normalised RemoteAddr.
func RateLimit(limiter *auth.KeyedRateLimiter, errorHandler *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				errorHandler.Handle(w, r, pkgerrors.NewRateLimitError("Rate limit exceeded"))
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
