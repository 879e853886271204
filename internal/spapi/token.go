package spapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Token is a bearer credential for one seller. Lost means the grant is
// gone for good and the seller must be skipped until re-authorized.
type Token struct {
	AccessToken string
	Lost        bool
}

// TokenProvider supplies valid access tokens per seller credential key.
// forceRefresh discards any cached token and refreshes before returning.
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context, credentialKey string, forceRefresh bool) (Token, error)
}

// RefreshTokenSource resolves the long-lived refresh token for a seller
// credential key. Wired from configuration or a secrets backend.
type RefreshTokenSource func(credentialKey string) (string, error)

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// LWATokenProvider exchanges Login-with-Amazon refresh tokens for access
// tokens, caching them per credential key until shortly before expiry.
type LWATokenProvider struct {
	client       *resty.Client
	clientID     string
	clientSecret string
	source       RefreshTokenSource

	mu    sync.Mutex
	cache map[string]cachedToken
	lost  map[string]bool
}

// LWAConfig holds configuration for the LWA token provider.
type LWAConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// NewLWATokenProvider creates a token provider against the LWA endpoint.
func NewLWATokenProvider(cfg *LWAConfig, source RefreshTokenSource) *LWATokenProvider {
	client := resty.New()
	client.SetBaseURL(cfg.Endpoint)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &LWATokenProvider{
		client:       client,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		source:       source,
		cache:        make(map[string]cachedToken),
		lost:         make(map[string]bool),
	}
}

type lwaResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// GetValidAccessToken returns a cached token when still fresh, otherwise
// refreshes. A seller whose grant was revoked is remembered as lost.
func (p *LWATokenProvider) GetValidAccessToken(ctx context.Context, credentialKey string, forceRefresh bool) (Token, error) {
	p.mu.Lock()
	if p.lost[credentialKey] {
		p.mu.Unlock()
		return Token{Lost: true}, ErrAuthLost
	}
	if !forceRefresh {
		if cached, ok := p.cache[credentialKey]; ok && time.Now().Before(cached.expiresAt) {
			p.mu.Unlock()
			return Token{AccessToken: cached.token}, nil
		}
	}
	p.mu.Unlock()

	refreshToken, err := p.source(credentialKey)
	if err != nil {
		return Token{}, fmt.Errorf("resolve refresh token for %s: %w", credentialKey, err)
	}

	var out lwaResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
			"client_id":     p.clientID,
			"client_secret": p.clientSecret,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/auth/o2/token")
	if err != nil {
		return Token{}, fmt.Errorf("token refresh request: %w", err)
	}

	if resp.StatusCode() != 200 {
		if out.Error == "invalid_grant" {
			p.mu.Lock()
			p.lost[credentialKey] = true
			p.mu.Unlock()
			return Token{Lost: true}, ErrAuthLost
		}
		return Token{}, fmt.Errorf("token refresh failed: status %d: %s", resp.StatusCode(), out.ErrorDesc)
	}

	expiry := time.Now().Add(time.Duration(out.ExpiresIn) * time.Second).Add(-30 * time.Second)
	p.mu.Lock()
	p.cache[credentialKey] = cachedToken{token: out.AccessToken, expiresAt: expiry}
	p.mu.Unlock()

	return Token{AccessToken: out.AccessToken}, nil
}
