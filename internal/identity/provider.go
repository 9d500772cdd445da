// Package identity verifies third-party sign-in tokens and normalizes the
// result into a domain.Identity.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/httpclient"
)

var (
	// ErrInvalidToken means the provider rejected the token.
	ErrInvalidToken = errors.New("identity token rejected")

	// ErrProviderUnavailable means the provider could not be reached or
	// its circuit breaker is open.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Provider verifies a client-supplied token with one identity provider.
type Provider interface {
	Name() string
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// classify maps an outbound call failure onto the package sentinels. An
// upstream 4xx is a rejection of the token; anything else is an outage.
func classify(provider string, err error) error {
	if httpclient.IsUpstreamRejection(err) {
		return fmt.Errorf("%s: %w: %w", provider, ErrInvalidToken, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrProviderUnavailable, err)
}
