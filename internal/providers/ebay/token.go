package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/matthewgall/epicdeals/internal/models"
)

const (
	defaultTokenEndpoint = "https://api.ebay.com/identity/v1/oauth2/token"
	apiScope             = "https://api.ebay.com/oauth/api_scope"
	tokenExpirySkew      = 60 * time.Second
)

// TokenCache holds one application access token and refreshes it on expiry.
// Only the slot is locked; two callers racing on an expired token both
// exchange and the last write wins.
type TokenCache struct {
	clientID     string
	clientSecret string
	endpoint     string
	httpClient   *http.Client
	now          func() time.Time

	mu    sync.Mutex
	token *models.AccessToken
}

type TokenOption func(*TokenCache)

func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCache) {
		c.now = now
	}
}

func WithTokenEndpoint(endpoint string) TokenOption {
	return func(c *TokenCache) {
		c.endpoint = endpoint
	}
}

func WithTokenHTTPClient(client *http.Client) TokenOption {
	return func(c *TokenCache) {
		c.httpClient = client
	}
}

func NewTokenCache(clientID, clientSecret string, opts ...TokenOption) *TokenCache {
	c := &TokenCache{
		clientID:     strings.TrimSpace(clientID),
		clientSecret: strings.TrimSpace(clientSecret),
		endpoint:     defaultTokenEndpoint,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Token returns the cached token while it is valid, otherwise exchanges the
// client credentials for a new one.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	now := c.now()

	c.mu.Lock()
	current := c.token
	c.mu.Unlock()
	if current.Valid(now) {
		return current.Token, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrMissingCredentials
	}

	fresh, err := c.exchange(ctx, now)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = fresh
	c.mu.Unlock()

	return fresh.Token, nil
}

// Invalidate drops the cached token so the next Token call refreshes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

func (c *TokenCache) exchange(ctx context.Context, now time.Time) (*models.AccessToken, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", apiScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// #nosec G704 -- request targets the configured eBay identity endpoint.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "auth", Status: resp.StatusCode, Body: string(body)}
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	lifetime := time.Duration(payload.ExpiresIn)*time.Second - tokenExpirySkew
	if lifetime < 0 {
		lifetime = 0
	}

	return &models.AccessToken{Token: payload.AccessToken, ExpiresAt: now.Add(lifetime)}, nil
}
