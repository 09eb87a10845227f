package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds each request's context by d. It writes nothing itself; the
// handler observes ctx.Err() and owns the response.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
