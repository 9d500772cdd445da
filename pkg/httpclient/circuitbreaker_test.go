package httpclient

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testBreaker(name string) *CircuitBreakerClient {
	return NewCircuitBreakerClient(New(fastConfig(0)), CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Second,
		FailureRatio: 0.5,
		MinRequests:  3,
	}, testLogger())
}

func TestGetJSON_DecodesBodyAndSendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer opaque-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"sub":"123","email":"a@x.com"}`))
	}))
	defer server.Close()

	cb := testBreaker("test-getjson")

	var out struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	header := http.Header{"Authorization": []string{"Bearer opaque-token"}}
	require.NoError(t, cb.GetJSON(context.Background(), server.URL, header, &out))
	assert.Equal(t, "123", out.Sub)
	assert.Equal(t, "a@x.com", out.Email)
}

func TestGetJSON_ClientErrorDoesNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer server.Close()

	cb := testBreaker("test-4xx")
	for i := 0; i < 5; i++ {
		var out map[string]any
		err := cb.GetJSON(context.Background(), server.URL, nil, &out)
		require.Error(t, err)
		assert.True(t, IsUpstreamRejection(err))

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
		assert.Contains(t, se.Body, "invalid_token")
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestGetJSON_ServerErrorsTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cb := testBreaker("test-5xx")
	for i := 0; i < 3; i++ {
		var out map[string]any
		err := cb.GetJSON(context.Background(), server.URL, nil, &out)
		require.Error(t, err)
		assert.False(t, IsUpstreamRejection(err))
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	var out map[string]any
	err := cb.GetJSON(context.Background(), server.URL, nil, &out)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestStateToFloat(t *testing.T) {
	assert.Equal(t, float64(0), stateToFloat(gobreaker.StateClosed))
	assert.Equal(t, float64(1), stateToFloat(gobreaker.StateHalfOpen))
	assert.Equal(t, float64(2), stateToFloat(gobreaker.StateOpen))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(http.StatusBadRequest))
	assert.True(t, IsClientError(http.StatusNotFound))
	assert.False(t, IsClientError(http.StatusOK))
	assert.False(t, IsClientError(http.StatusBadGateway))
}
