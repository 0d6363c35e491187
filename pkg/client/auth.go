package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vantagehq/vantage/internal/api"
	"github.com/vantagehq/vantage/internal/session"
	"github.com/vantagehq/vantage/internal/users"
)

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User    users.User `json:"user"`
	Message string     `json:"message"`
}

type userResponse struct {
	User users.User `json:"user"`
}

// Login authenticates with email and password. On success the session
// cookies are captured; persist them via SessionTokens.
func (c *Client) Login(ctx context.Context, email, password string) (*users.User, string, error) {
	var resp authResponse
	correlation, err := c.post(ctx, c.url().
		setPath(api.LoginRoute).
		build(), loginPayload{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, correlation, err
	}
	return &resp.User, correlation, nil
}

// Me resolves the current session to its user record.
func (c *Client) Me(ctx context.Context) (*users.User, string, error) {
	var resp userResponse
	correlation, err := c.get(ctx, c.url().
		setPath(api.MeRoute).
		build(), &resp)
	if err != nil {
		return nil, correlation, err
	}
	return &resp.User, correlation, nil
}

// Refresh rotates the refresh token into a fresh pair. The rotated pair
// replaces the cached session tokens.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.url().
		setPath(api.RefreshRoute).
		build(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.attachRefreshCookie(req)
	return c.do(req, nil)
}

// Logout unregisters the session server-side and drops the cached tokens.
func (c *Client) Logout(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.url().
		setPath(api.LogoutRoute).
		build(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.attachRefreshCookie(req)
	return c.do(req, nil)
}

// attachRefreshCookie puts the cached refresh token on the request. In a
// fresh process the cookie jar is empty, so the persisted token has to be
// re-attached by hand.
func (c *Client) attachRefreshCookie(req *http.Request) {
	if c.refreshToken == "" {
		return
	}
	req.AddCookie(&http.Cookie{Name: session.RefreshTokenCookie, Value: c.refreshToken})
}
