package portalsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client talks to the public endpoints of a portal and creates Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register redeems an invitation code for a new account.
func (c *Client) Register(ctx context.Context, inviteCode, username, password string) (*RegisterResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/register", "", RegisterRequest{
		InviteCode: inviteCode,
		Username:   username,
		Password:   password,
	})
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a Session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/login", "", LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return c.NewSession(tok.AccessToken, tok.Scope, tok.ExpiresIn), nil
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service can serve requests. A 503 still
// decodes into the returned HealthResponse alongside the error.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if resp.StatusCode == http.StatusServiceUnavailable {
		_ = decodeJSON(resp, &health, http.StatusServiceUnavailable)
		return &health, &APIError{StatusCode: resp.StatusCode, Code: health.Status}
	}
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
