package apiclient

import (
	"context"
	"net/http"

	"github.com/angelmondragon/conduit-storefront/internal/auth"
	"github.com/angelmondragon/conduit-storefront/internal/users"
	"github.com/angelmondragon/conduit-storefront/pkg/clientstate"
)

// SessionFrom converts a token response into the session the clients persist.
func SessionFrom(resp *auth.TokenResponse) clientstate.Session {
	if resp == nil {
		return clientstate.Session{}
	}
	s := clientstate.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.User != nil {
		s.UserID = resp.User.ID.String()
		s.Role = string(resp.User.Role)
	}
	return s
}

func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	var out users.UserDTO
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/v1/auth/register", body: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	return c.tokens(ctx, "/api/v1/auth/login", req, "")
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/api/v1/auth/logout"}, nil)
}

// Refresh rotates the client's session. The current access token may be expired.
func (c *Client) Refresh(ctx context.Context) (*auth.TokenResponse, error) {
	return c.tokens(ctx, "/api/v1/auth/refresh", auth.RefreshRequest{RefreshToken: c.session.RefreshToken}, c.session.AccessToken)
}

func (c *Client) SendMagicLink(ctx context.Context, req auth.MagicLinkRequest) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/api/v1/auth/magic-link", body: req}, nil)
}

func (c *Client) CompleteMagicLink(ctx context.Context, req auth.MagicLinkCompleteRequest) (*auth.TokenResponse, error) {
	return c.tokens(ctx, "/api/v1/auth/magic-link/complete", req, "")
}

func (c *Client) tokens(ctx context.Context, path string, body any, bearer string) (*auth.TokenResponse, error) {
	var out auth.TokenResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: path, body: body, bearer: bearer}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
