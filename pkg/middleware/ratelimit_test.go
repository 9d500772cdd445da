package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, rps float64, burst int) (*RateLimiter, *time.Time) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(ctx, rps, burst, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rl.now = func() time.Time { return now }
	return rl, &now
}

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = ip + ":51000"
	return req
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, 2)
	h := rl.Handler(okHandler)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, requestFrom("10.0.0.1"))
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestFrom("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"status":"fail","message":"too many requests, please try again later"}`, rr.Body.String())

	// A different client has its own bucket.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, requestFrom("10.0.0.2"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl, now := newTestLimiter(t, 1, 1)
	h := rl.Handler(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestFrom("10.0.0.3"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, requestFrom("10.0.0.3"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	*now = now.Add(time.Second)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, requestFrom("10.0.0.3"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimiter_CleanupEvictsIdle(t *testing.T) {
	rl, now := newTestLimiter(t, 1, 1)
	rl.allow("10.0.0.4")

	*now = now.Add(2 * time.Minute)
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.visitors)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		xff     string
		xri     string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "forwarded ignored without trusted proxy", xff: "203.0.113.9", xri: "198.51.100.7", remote: "192.0.2.1:1", want: "192.0.2.1"},
		{name: "forwarded ignored from untrusted peer", trusted: []string{"10.0.0.0/8"}, xff: "203.0.113.9", remote: "192.0.2.1:1", want: "192.0.2.1"},
		{name: "nearest untrusted hop", trusted: []string{"10.0.0.0/8"}, xff: "1.2.3.4, 203.0.113.9, 10.0.0.7", remote: "10.0.0.1:1", want: "203.0.113.9"},
		{name: "single trusted proxy ip", trusted: []string{"10.0.0.1"}, xff: "203.0.113.9", remote: "10.0.0.1:1", want: "203.0.113.9"},
		{name: "real ip behind proxy", trusted: []string{"10.0.0.0/8"}, xri: "198.51.100.7", remote: "10.0.0.1:1", want: "198.51.100.7"},
		{name: "garbage forwarded falls through", trusted: []string{"10.0.0.0/8"}, xff: "nope", remote: "10.0.0.5:1", want: "10.0.0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl, _ := newTestLimiter(t, 1, 1)
			require.NoError(t, rl.TrustProxies(tt.trusted))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, rl.clientIP(req))
		})
	}
}

func TestRateLimiter_RotatingForwardedForSharesBucket(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, 1)
	h := rl.Handler(okHandler)

	codes := make([]int, 0, 2)
	for _, hop := range []string{"203.0.113.1", "203.0.113.2"} {
		req := requestFrom("192.0.2.9")
		req.Header.Set("X-Forwarded-For", hop)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_TrustProxiesRejectsGarbage(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, 1)
	assert.Error(t, rl.TrustProxies([]string{"not-an-ip"}))
	assert.Error(t, rl.TrustProxies([]string{"10.0.0.0/99"}))
}
