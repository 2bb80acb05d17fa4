// Package auth acquires and refreshes the credential used against the
// remote administrative API. It is a thin collaborator: the orchestrator
// never sees tokens, only classified AuthExpired errors when refresh is
// impossible.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/orgforge/orgforge/pkg/orchestrator"
)

// expirySkew refreshes tokens slightly before their reported expiry so a
// token never expires mid-request.
const expirySkew = 30 * time.Second

// Config configures client-credentials authentication.
type Config struct {
	// TokenURL is the token endpoint.
	TokenURL string `yaml:"token_url" validate:"omitempty,url"`

	// ClientID identifies the application.
	ClientID string `yaml:"client_id"`

	// ClientSecret authenticates the application.
	ClientSecret string `yaml:"client_secret"`

	// Scope is the requested token scope.
	Scope string `yaml:"scope"`
}

// ClientCredentialsSource acquires bearer tokens via the OAuth2 client
// credentials grant and caches them until shortly before expiry. Safe for
// concurrent use; concurrent callers share a single refresh.
type ClientCredentialsSource struct {
	cfg    Config
	http   *resty.Client
	logger zerolog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClientCredentialsSource creates a token source.
func NewClientCredentialsSource(cfg Config, logger zerolog.Logger) *ClientCredentialsSource {
	return &ClientCredentialsSource{
		cfg:    cfg,
		http:   resty.New().SetTimeout(15 * time.Second),
		logger: logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a valid bearer token, refreshing it when the cached one
// is absent or near expiry.
func (s *ClientCredentialsSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires.Add(-expirySkew)) {
		return s.token, nil
	}

	var out tokenResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     s.cfg.ClientID,
			"client_secret": s.cfg.ClientSecret,
			"scope":         s.cfg.Scope,
		}).
		SetResult(&out).
		Post(s.cfg.TokenURL)

	if err != nil {
		return "", orchestrator.NewUnavailableError("token endpoint unreachable", err)
	}
	if resp.IsError() {
		return "", orchestrator.NewAuthExpiredError(
			fmt.Sprintf("token request rejected with status %d", resp.StatusCode()), nil)
	}
	if out.AccessToken == "" {
		return "", orchestrator.NewAuthExpiredError("token endpoint returned no access token", nil)
	}

	s.token = out.AccessToken
	s.expires = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)

	s.logger.Debug().
		Time("expires", s.expires).
		Msg("acquired access token")

	return s.token, nil
}

// Invalidate discards the cached token so the next call refreshes. Called
// by the command layer after an AuthExpired result.
func (s *ClientCredentialsSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
}

// StaticTokenSource returns a source that always yields the given token.
// Useful for development against a local API double.
func StaticTokenSource(token string) *staticSource {
	return &staticSource{token: token}
}

type staticSource struct {
	token string
}

func (s *staticSource) Token(context.Context) (string, error) {
	return s.token, nil
}
