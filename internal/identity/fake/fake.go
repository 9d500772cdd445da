// Package fake provides an in-memory identity.Provider for tests.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/domain"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/identity"
)

// Provider returns canned identities keyed by token. Unknown tokens are
// rejected with identity.ErrInvalidToken.
type Provider struct {
	name string

	mu         sync.Mutex
	identities map[string]*domain.Identity
	err        error
	calls      int
}

// New creates a fake provider reporting name.
func New(name string) *Provider {
	return &Provider{name: name, identities: make(map[string]*domain.Identity)}
}

// Add registers the identity returned for token.
func (p *Provider) Add(token string, id *domain.Identity) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id.Provider == "" {
		id.Provider = p.name
	}
	p.identities[token] = id
	return p
}

// FailWith makes every Verify return err.
func (p *Provider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Calls reports how many times Verify ran.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Name implements identity.Provider.
func (p *Provider) Name() string { return p.name }

// Verify implements identity.Provider.
func (p *Provider) Verify(_ context.Context, token string) (*domain.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	id, ok := p.identities[token]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p.name, identity.ErrInvalidToken)
	}
	out := *id
	return &out, nil
}
