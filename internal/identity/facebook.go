package identity

import (
	"context"
	"fmt"
	"net/url"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/httpclient"
)

// DefaultFacebookGraphURL is the Graph API "me" endpoint.
const DefaultFacebookGraphURL = "https://graph.facebook.com/me"

const facebookFields = "id,name,email,picture"

// FacebookProvider verifies Facebook user access tokens with the Graph API.
type FacebookProvider struct {
	client   *httpclient.CircuitBreakerClient
	graphURL string
}

// NewFacebookProvider creates a provider calling graphURL, or the public
// Graph API when graphURL is empty.
func NewFacebookProvider(client *httpclient.CircuitBreakerClient, graphURL string) *FacebookProvider {
	if graphURL == "" {
		graphURL = DefaultFacebookGraphURL
	}
	return &FacebookProvider{client: client, graphURL: graphURL}
}

// Name implements Provider.
func (p *FacebookProvider) Name() string { return domain.ProviderFacebook }

type facebookProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Verify implements Provider. Facebook only returns an email when the user
// granted the permission, so Email may be empty.
func (p *FacebookProvider) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("facebook: %w: empty token", ErrInvalidToken)
	}

	u, err := url.Parse(p.graphURL)
	if err != nil {
		return nil, fmt.Errorf("parse facebook graph url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", token)
	q.Set("fields", facebookFields)
	u.RawQuery = q.Encode()

	var profile facebookProfile
	if err := p.client.GetJSON(ctx, u.String(), nil, &profile); err != nil {
		return nil, classify("facebook", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("facebook: %w: profile without id", ErrInvalidToken)
	}

	email := domain.NormalizeEmail(profile.Email)
	return &domain.Identity{
		Provider:      domain.ProviderFacebook,
		ProviderID:    profile.ID,
		Email:         email,
		Name:          profile.Name,
		PictureURL:    profile.Picture.Data.URL,
		EmailVerified: email != "",
	}, nil
}
