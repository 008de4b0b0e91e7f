// Package middleware holds the HTTP plumbing shared by the API handlers.
package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"

	"startup_valuation/pkg/core/apperr"
	"startup_valuation/pkg/core/logger"
	"startup_valuation/pkg/core/metrics"
	"startup_valuation/pkg/core/ratelimit"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// Chain wraps h so that the first middleware listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// CORS allows any origin and answers preflight requests directly.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestID reuses an incoming X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestIDFrom returns the id set by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// ClientIP is the key used for rate limiting: the connection's remote address.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// RateLimit rejects requests over the limit with 429 before the handler runs.
// If the limiter itself fails the request is let through.
func RateLimit(l ratelimit.Limiter, route string, log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			allowed, err := l.Allow(r.Context(), ip)
			if err != nil {
				log.WithError(err).Warn("rate limiter unavailable, allowing request", map[string]interface{}{"route": route})
				allowed = true
			}
			if !allowed {
				metrics.RateLimited.WithLabelValues(route).Inc()
				log.Info("rate limit exceeded", map[string]interface{}{"route": route, "client": ip})
				WriteError(w, apperr.RateLimited())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
