package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	spotifyauth "golang.org/x/oauth2/spotify"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// ErrMissingCredentials is returned when no refresh token or client id is
// configured.
var ErrMissingCredentials = errors.New("spotify adapter: missing credentials")

// Config holds what the adapter needs to authenticate and retry.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	BaseURL      string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client is an HTTP client for the Spotify adapter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retry      retryPolicy
}

// compile-time interface assertion
var _ ports.LibrarySource = (*Client)(nil)

// NewClient constructs a new Spotify client around an already authenticated
// http.Client. Retry settings come from the environment.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		retry:      policyFromEnv(),
	}
}

// NewClientFromConfig builds a client whose requests carry an access token
// refreshed from cfg.RefreshToken.
func NewClientFromConfig(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.RefreshToken == "" {
		return nil, ErrMissingCredentials
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     spotifyauth.Endpoint,
	}
	src := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	c := NewClient(oauth2.NewClient(ctx, src), cfg.BaseURL)
	if cfg.MaxRetries > 0 {
		c.retry.attempts = cfg.MaxRetries
	}
	if cfg.RetryBackoff > 0 {
		c.retry.base = cfg.RetryBackoff
	}
	return c, nil
}

// GetProfile returns the current user.
func (c *Client) GetProfile(ctx context.Context) (domain.Profile, error) {
	var u spotifyUser
	if err := c.getJSON(ctx, c.baseURL+"/me", nil, &u); err != nil {
		return domain.Profile{}, fmt.Errorf("spotify adapter: profile: %w", err)
	}
	return domain.Profile{ID: u.ID, DisplayName: u.DisplayName}, nil
}

// getJSON issues a GET with retry and decodes a 200 response into out.
// A 404 maps to domain.ErrNotFound.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	return nil
}
