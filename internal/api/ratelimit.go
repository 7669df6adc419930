package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/livraria/livraria-api/internal/ratelimit"
)

// rateLimit returns the operation middleware guarding the public credential
// endpoints. Clients are keyed by IP address. A nil limiter disables it.
func (s *Server) rateLimit(limiter *ratelimit.KeyedRateLimiter, retryAfter time.Duration) huma.Middlewares {
	if limiter == nil {
		return nil
	}
	seconds := max(int(retryAfter.Round(time.Second)/time.Second), 1)

	return huma.Middlewares{func(ctx huma.Context, next func(huma.Context)) {
		key := clientIP(ctx.Header, ctx.RemoteAddr(), s.cfg.TrustProxy)
		if !limiter.Allow(key) {
			s.logger.Warn("rate limit exceeded",
				"ip", key,
				"operation", ctx.Operation().OperationID,
			)
			ctx.SetHeader("Retry-After", strconv.Itoa(seconds))
			_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, msgRateLimited)
			return
		}
		next(ctx)
	}}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request, trustProxy bool) string {
	return clientIP(r.Header.Get, r.RemoteAddr, trustProxy)
}

// clientIP returns the remote address without its port. X-Forwarded-For and
// X-Real-IP are client supplied and only consulted behind a trusted proxy.
func clientIP(header func(string) string, remoteAddr string, trustProxy bool) string {
	if trustProxy {
		// First entry of the chain is the client.
		if xff := header("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if xri := strings.TrimSpace(header("X-Real-IP")); xri != "" {
			return xri
		}
	}

	if i := strings.LastIndexByte(remoteAddr, ':'); i >= 0 {
		return remoteAddr[:i]
	}
	return remoteAddr
}
