package api

import (
	"context"
	"net/http"
)

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the signed-in user
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// RequestPasswordReset asks the server to email a reset token
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/reset-password", nil, map[string]string{"email": email}, nil)
}

// ConfirmPasswordReset consumes a reset token
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "new_password": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/reset-password/confirm", nil, body, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/users/me", nil, update, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
