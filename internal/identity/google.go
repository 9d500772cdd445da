package identity

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/httpclient"
)

// DefaultGoogleUserInfoURL is Google's OpenID userinfo endpoint.
const DefaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// TokenKind tells the two shapes of Google token apart.
type TokenKind int

const (
	// TokenKindOpaque is an OAuth access token, checked through userinfo.
	TokenKindOpaque TokenKind = iota
	// TokenKindJWT is a signed ID token, checked locally.
	TokenKindJWT
)

func (k TokenKind) String() string {
	if k == TokenKindJWT {
		return "jwt"
	}
	return "opaque"
}

// GoogleToken is a raw client token tagged with its shape.
type GoogleToken struct {
	Kind  TokenKind
	Value string
}

// ParseGoogleToken classifies raw as a JWT when it has exactly three
// non-empty dot-separated segments.
func ParseGoogleToken(raw string) GoogleToken {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ".")
	if len(parts) == 3 && !slices.Contains(parts, "") {
		return GoogleToken{Kind: TokenKindJWT, Value: raw}
	}
	return GoogleToken{Kind: TokenKindOpaque, Value: raw}
}

// IDTokenValidator checks a Google ID token signature and expiry.
// *idtoken.Validator satisfies it.
type IDTokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// GoogleConfig configures a GoogleProvider.
type GoogleConfig struct {
	// ClientIDs are the accepted ID token audiences (web, iOS, Android).
	ClientIDs   []string
	UserInfoURL string
}

// GoogleProvider verifies Google ID tokens and OAuth access tokens.
type GoogleProvider struct {
	validator IDTokenValidator
	client    *httpclient.CircuitBreakerClient
	cfg       GoogleConfig
}

// NewGoogleProvider creates a provider. The validator handles ID tokens and
// client handles userinfo lookups for access tokens.
func NewGoogleProvider(validator IDTokenValidator, client *httpclient.CircuitBreakerClient, cfg GoogleConfig) *GoogleProvider {
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = DefaultGoogleUserInfoURL
	}
	return &GoogleProvider{validator: validator, client: client, cfg: cfg}
}

// NewIDTokenValidator builds the idtoken validator on top of hc so that
// certificate fetches share the provider timeout.
func NewIDTokenValidator(ctx context.Context, hc *http.Client) (*idtoken.Validator, error) {
	v, err := idtoken.NewValidator(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("create google id token validator: %w", err)
	}
	return v, nil
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return domain.ProviderGoogle }

// Verify implements Provider. A JWT-shaped token that fails validation is
// rejected without trying userinfo.
func (p *GoogleProvider) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	gt := ParseGoogleToken(token)
	if gt.Value == "" {
		return nil, fmt.Errorf("google: %w: empty token", ErrInvalidToken)
	}
	if gt.Kind == TokenKindJWT {
		return p.verifyIDToken(ctx, gt.Value)
	}
	return p.verifyAccessToken(ctx, gt.Value)
}

func (p *GoogleProvider) verifyIDToken(ctx context.Context, token string) (*domain.Identity, error) {
	// Audience is checked below against the allow-list.
	payload, err := p.validator.Validate(ctx, token, "")
	if err != nil {
		return nil, fmt.Errorf("google: %w: %w", ErrInvalidToken, err)
	}
	if !slices.Contains(p.cfg.ClientIDs, payload.Audience) {
		return nil, fmt.Errorf("google: %w: unexpected audience %q", ErrInvalidToken, payload.Audience)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("google: %w: missing subject", ErrInvalidToken)
	}

	return &domain.Identity{
		Provider:      domain.ProviderGoogle,
		ProviderID:    payload.Subject,
		Email:         domain.NormalizeEmail(stringClaim(payload.Claims, "email")),
		Name:          stringClaim(payload.Claims, "name"),
		PictureURL:    stringClaim(payload.Claims, "picture"),
		EmailVerified: boolClaim(payload.Claims, "email_verified"),
	}, nil
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *GoogleProvider) verifyAccessToken(ctx context.Context, token string) (*domain.Identity, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	var info googleUserInfo
	if err := p.client.GetJSON(ctx, p.cfg.UserInfoURL, header, &info); err != nil {
		return nil, classify("google", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("google: %w: userinfo without sub", ErrInvalidToken)
	}

	return &domain.Identity{
		Provider:      domain.ProviderGoogle,
		ProviderID:    info.Sub,
		Email:         domain.NormalizeEmail(info.Email),
		Name:          info.Name,
		PictureURL:    info.Picture,
		EmailVerified: info.EmailVerified,
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

// boolClaim accepts both JSON booleans and the "true" strings some Google
// endpoints return.
func boolClaim(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
