package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/ratelimit"
	"github.com/x1syne/ai-study-agent-sub001/internal/utils"
)

const RateLimitMessage = "Rate limit exceeded. Please try again in an hour."

// ClientIP returns the host part of RemoteAddr. Run chi's RealIP first only
// when behind a trusted proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the limiter's cap with 429. A limiter
// backend error lets the request through.
func RateLimit(limiter ratelimit.Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			d, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request", zap.String("client_ip", ip), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				retry := int(math.Ceil(d.ResetAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				logger.Info("Rate limit exceeded", zap.String("client_ip", ip))
				utils.Fail(w, http.StatusTooManyRequests, "rate_limit_exceeded", RateLimitMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
