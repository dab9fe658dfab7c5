package client

import (
	"context"
	"net/http"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
)

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*types.User, error) {
	var out struct {
		User *types.User `json:"user"`
	}
	if err := c.do(ctx, nil, http.MethodPost, "/api/register", in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var out tokenPair
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, nil, http.MethodPost, "/api/login", body, &out); err != nil {
		return Session{}, err
	}
	return Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

// Refresh exchanges the session's refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, sess Session) (Session, error) {
	var out tokenPair
	body := map[string]string{"refresh_token": sess.RefreshToken}
	if err := c.do(ctx, nil, http.MethodPost, "/api/refresh", body, &out); err != nil {
		return Session{}, err
	}
	return Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

func (c *Client) Logout(ctx context.Context, sess Session) error {
	return c.do(ctx, &sess, http.MethodPost, "/api/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context, sess Session) (*types.User, error) {
	var out struct {
		Me *types.User `json:"me"`
	}
	if err := c.do(ctx, &sess, http.MethodGet, "/api/me", nil, &out); err != nil {
		return nil, err
	}
	return out.Me, nil
}
