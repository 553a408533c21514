package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/storefront-auth/internal/domain"
	"github.com/baechuer/storefront-auth/internal/transport/http/response"
)

var errBoom = errors.New("boom")

type fakeLimiter struct {
	allow bool
	retry time.Duration
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.retry, f.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitFixedWindow_Denied(t *testing.T) {
	lim := &fakeLimiter{allow: false, retry: 1500 * time.Millisecond}
	h := RateLimitFixedWindow(lim, FixedWindowConfig{RouteKey: "auth", Limit: 5}, response.WriteError)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("Retry-After"))
	require.Len(t, lim.keys, 1)
	assert.True(t, strings.HasPrefix(lim.keys[0], "rl:auth:ip:10.0.0.7:"), lim.keys[0])
}

func TestRateLimitFixedWindow_FailsOpen(t *testing.T) {
	lim := &fakeLimiter{err: errBoom}
	h := RateLimitFixedWindow(lim, FixedWindowConfig{Limit: 5}, response.WriteError)(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimitFixedWindow_UsesForwardedForBehindProxy(t *testing.T) {
	lim := &fakeLimiter{allow: true}
	h := RateLimitFixedWindow(lim, FixedWindowConfig{RouteKey: "auth", Limit: 5, TrustProxy: true}, response.WriteError)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, lim.keys, 1)
	assert.Contains(t, lim.keys[0], ":ip:203.0.113.9:")
}

func TestRateLimitFixedWindow_IgnoresForwardedForByDefault(t *testing.T) {
	lim := &fakeLimiter{allow: true}
	h := RateLimitFixedWindow(lim, FixedWindowConfig{RouteKey: "auth", Limit: 5}, response.WriteError)(okHandler())

	for _, spoofed := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		req.Header.Set("X-Forwarded-For", spoofed)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, lim.keys, 2)
	for _, k := range lim.keys {
		assert.Contains(t, k, ":ip:10.0.0.7:")
	}
}

func TestRateLimitInProcess_SpoofedForwardedForSharesBudget(t *testing.T) {
	h := RateLimitInProcess(FixedWindowConfig{RouteKey: "auth", Limit: 1, Window: time.Minute}, response.WriteError)(okHandler())

	codes := make([]int, 0, 2)
	for _, spoofed := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.8:5555"
		req.Header.Set("X-Forwarded-For", spoofed)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitInProcess_LimitsPerIP(t *testing.T) {
	var last error
	writeErr := func(w http.ResponseWriter, r *http.Request, err error) {
		last = err
		response.WriteError(w, r, err)
	}
	h := RateLimitInProcess(FixedWindowConfig{RouteKey: "auth", Limit: 2, Window: time.Minute}, writeErr)(okHandler())

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.True(t, domain.Is(last, "rate_limited"))

	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}

func TestRateLimitInProcess_ZeroLimitDisables(t *testing.T) {
	h := RateLimitInProcess(FixedWindowConfig{Limit: 0}, response.WriteError)(okHandler())
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
}
