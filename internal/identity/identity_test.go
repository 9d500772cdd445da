package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/httpclient"
)

const jwtShaped = "eyJhbGciOiJSUzI1NiJ9.eyJzdWIiOiIxIn0.c2ln"

func testClient(t *testing.T, name string) *httpclient.CircuitBreakerClient {
	t.Helper()
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = time.Millisecond
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpclient.NewCircuitBreakerClient(httpclient.New(cfg), httpclient.DefaultCircuitBreakerConfig(name), logger)
}

type stubValidator struct {
	payload *idtoken.Payload
	err     error
	calls   int
}

func (s *stubValidator) Validate(_ context.Context, _, audience string) (*idtoken.Payload, error) {
	s.calls++
	if audience != "" {
		return nil, errors.New("audience must be checked by the caller")
	}
	return s.payload, s.err
}

// ============================================================================
// ParseGoogleToken
// ============================================================================

func TestParseGoogleToken(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want TokenKind
	}{
		{name: "three segments", raw: jwtShaped, want: TokenKindJWT},
		{name: "surrounding space", raw: "  " + jwtShaped + "\n", want: TokenKindJWT},
		{name: "access token", raw: "ya29.a0AfH6SMB", want: TokenKindOpaque},
		{name: "empty segment", raw: "a..c", want: TokenKindOpaque},
		{name: "four segments", raw: "a.b.c.d", want: TokenKindOpaque},
		{name: "empty", raw: "", want: TokenKindOpaque},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGoogleToken(tt.raw).Kind)
		})
	}
	assert.Equal(t, jwtShaped, ParseGoogleToken(" "+jwtShaped).Value)
	assert.Equal(t, "jwt", TokenKindJWT.String())
}

// ============================================================================
// GoogleProvider
// ============================================================================

func TestGoogle_IDToken(t *testing.T) {
	v := &stubValidator{payload: &idtoken.Payload{
		Audience: "ios.apps.googleusercontent.com",
		Subject:  "g-123",
		Claims: map[string]any{
			"email":          "Ann@Example.com",
			"name":           "Ann",
			"picture":        "https://lh3/photo.png",
			"email_verified": true,
		},
	}}
	p := NewGoogleProvider(v, testClient(t, "google-idtoken"), GoogleConfig{
		ClientIDs: []string{"web.apps.googleusercontent.com", "ios.apps.googleusercontent.com"},
	})

	id, err := p.Verify(context.Background(), jwtShaped)

	require.NoError(t, err)
	assert.Equal(t, &domain.Identity{
		Provider:      domain.ProviderGoogle,
		ProviderID:    "g-123",
		Email:         "ann@example.com",
		Name:          "Ann",
		PictureURL:    "https://lh3/photo.png",
		EmailVerified: true,
	}, id)
}

func TestGoogle_IDTokenWrongAudience(t *testing.T) {
	v := &stubValidator{payload: &idtoken.Payload{Audience: "someone-else", Subject: "g-1"}}
	p := NewGoogleProvider(v, testClient(t, "google-aud"), GoogleConfig{ClientIDs: []string{"web"}})

	_, err := p.Verify(context.Background(), jwtShaped)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGoogle_FailedIDTokenDoesNotFallBack(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"sub":"g-1"}`))
	}))
	defer srv.Close()

	v := &stubValidator{err: errors.New("idtoken: invalid signature")}
	p := NewGoogleProvider(v, testClient(t, "google-nofallback"), GoogleConfig{
		ClientIDs:   []string{"web"},
		UserInfoURL: srv.URL,
	})

	_, err := p.Verify(context.Background(), jwtShaped)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 1, v.calls)
	assert.Zero(t, hits.Load())
}

func TestGoogle_AccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ya29.valid" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"g-9","email":"bo@x.com","email_verified":true,"name":"Bo","picture":"https://p"}`))
	}))
	defer srv.Close()

	v := &stubValidator{}
	p := NewGoogleProvider(v, testClient(t, "google-userinfo"), GoogleConfig{UserInfoURL: srv.URL})

	id, err := p.Verify(context.Background(), "ya29.valid")
	require.NoError(t, err)
	assert.Equal(t, "g-9", id.ProviderID)
	assert.Equal(t, "bo@x.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Zero(t, v.calls)

	_, err = p.Verify(context.Background(), "ya29.revoked")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrProviderUnavailable)
}

func TestGoogle_UserInfoWithoutSub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"email":"x@y.z"}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider(&stubValidator{}, testClient(t, "google-nosub"), GoogleConfig{UserInfoURL: srv.URL})

	_, err := p.Verify(context.Background(), "opaque")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGoogle_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewGoogleProvider(&stubValidator{}, testClient(t, "google-down"), GoogleConfig{UserInfoURL: url})

	_, err := p.Verify(context.Background(), "opaque")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestGoogle_EmptyToken(t *testing.T) {
	p := NewGoogleProvider(&stubValidator{}, testClient(t, "google-empty"), GoogleConfig{})
	_, err := p.Verify(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, domain.ProviderGoogle, p.Name())
}

// ============================================================================
// FacebookProvider
// ============================================================================

func TestFacebook_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id,name,email,picture", r.URL.Query().Get("fields"))
		switch r.URL.Query().Get("access_token") {
		case "fb-good":
			_, _ = w.Write([]byte(`{"id":"fb-1","name":"Cy","email":"Cy@X.com","picture":{"data":{"url":"https://fb/p.jpg"}}}`))
		case "fb-noemail":
			_, _ = w.Write([]byte(`{"id":"fb-2","name":"Di"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token."}}`))
		}
	}))
	defer srv.Close()

	p := NewFacebookProvider(testClient(t, "facebook-test"), srv.URL)
	ctx := context.Background()

	id, err := p.Verify(ctx, "fb-good")
	require.NoError(t, err)
	assert.Equal(t, &domain.Identity{
		Provider:      domain.ProviderFacebook,
		ProviderID:    "fb-1",
		Email:         "cy@x.com",
		Name:          "Cy",
		PictureURL:    "https://fb/p.jpg",
		EmailVerified: true,
	}, id)

	id, err = p.Verify(ctx, "fb-noemail")
	require.NoError(t, err)
	assert.Empty(t, id.Email)
	assert.False(t, id.EmailVerified)

	_, err = p.Verify(ctx, "fb-bad")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFacebook_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewFacebookProvider(testClient(t, "facebook-5xx"), srv.URL)

	_, err := p.Verify(context.Background(), "fb-any")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, domain.ProviderFacebook, p.Name())
}
