package ratelimit

import (
	"net"
	"net/http"
	"strconv"
)

// RetryAfterSeconds is the Retry-After header value sent with 429s.
const RetryAfterSeconds = 1

// Middleware enforces the limiter per remote IP. Intended for the
// anonymous auth endpoints where there is no user identity to key on.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
