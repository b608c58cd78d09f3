package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// rateLimited is a huma middleware that limits requests per client IP.
// It guards the routes that call the paid inference API.
func (s *Server) rateLimited(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx.Header("X-Forwarded-For"), ctx.Header("X-Real-IP"), ctx.RemoteAddr())

	if !s.chatLimiter.Allow(key) {
		wait := s.chatLimiter.RetryAfter(key)
		s.logger.Warn("chat rate limit exceeded",
			"ip", key,
			"path", ctx.URL().Path,
			"retry_after", wait)
		ctx.SetHeader("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "Too many chat requests, try again shortly")
		return
	}

	next(ctx)
}

// clientIP picks the client address, preferring X-Forwarded-For and
// X-Real-IP over the connection's remote address.
func clientIP(forwardedFor, realIP, remoteAddr string) string {
	// X-Forwarded-For may contain multiple IPs, first is client.
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}

	if realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
