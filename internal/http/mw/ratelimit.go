package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitByIP returns a Chi middleware limiting each client IP to
// requestsPerMinute requests. Zero or negative disables limiting.
func RateLimitByIP(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}
