package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/baechuer/storefront-auth/internal/domain"
	"github.com/baechuer/storefront-auth/internal/logger"
	"github.com/baechuer/storefront-auth/internal/transport/http/response"
)

// RateLimiter is satisfied by redis.FixedWindowLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// FixedWindowConfig defines the configuration for a fixed-window rate limit.
type FixedWindowConfig struct {
	RouteKey string
	Limit    int
	Window   time.Duration

	// TrustProxy keys on the first X-Forwarded-For hop. Only set it when
	// every request arrives through a proxy that overwrites the header.
	TrustProxy bool
}

func (c FixedWindowConfig) withDefaults() FixedWindowConfig {
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.RouteKey == "" {
		c.RouteKey = "unknown"
	}
	return c
}

// RateLimitFixedWindow limits requests per client IP using a shared store.
// A limiter error lets the request through.
func RateLimitFixedWindow(limiter RateLimiter, cfg FixedWindowConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || cfg.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			bucket := windowBucket(time.Now(), cfg.Window)
			key := fmt.Sprintf("rl:%s:ip:%s:%d", cfg.RouteKey, clientIP(r, cfg.TrustProxy), bucket)

			allowed, retry, err := limiter.Allow(r.Context(), key, cfg.Limit, cfg.Window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn().
					Err(err).
					Str("route", cfg.RouteKey).
					Msg("rate_limiter_unavailable")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				writeErr(w, r, rateLimited(cfg.RouteKey, retry))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitInProcess is the single-instance fallback used when no shared
// store is configured.
func RateLimitInProcess(cfg FixedWindowConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()
	if cfg.Limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(cfg.Limit, cfg.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return clientIP(r, cfg.TrustProxy), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeErr(w, r, rateLimited(cfg.RouteKey, cfg.Window))
		}),
	)
}

func rateLimited(scope string, retry time.Duration) *domain.Error {
	err := domain.ErrRateLimited(scope)
	err.Meta["retry_after"] = response.RetryAfterMeta(int(math.Ceil(retry.Seconds())))
	return err
}

func windowBucket(now time.Time, window time.Duration) int64 {
	sec := int64(window.Seconds())
	if sec <= 0 {
		sec = 60
	}
	return now.Unix() / sec
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
		if xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
