package api

import (
	"context"
	"net/http"
)

func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var out struct {
		Settings Settings `json:"settings"`
	}
	if err := c.do(ctx, http.MethodGet, "/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Settings, nil
}

func (c *Client) UpdateSettings(ctx context.Context, update SettingsUpdate) (*Settings, error) {
	var out struct {
		Settings Settings `json:"settings"`
	}
	if err := c.do(ctx, http.MethodPut, "/settings", nil, update, &out); err != nil {
		return nil, err
	}
	return &out.Settings, nil
}

func (c *Client) Consent(ctx context.Context) (*Consent, error) {
	var out struct {
		Consent Consent `json:"consent"`
	}
	if err := c.do(ctx, http.MethodGet, "/consent", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Consent, nil
}

func (c *Client) UpdateConsent(ctx context.Context, update ConsentUpdate) (*Consent, error) {
	var out struct {
		Consent Consent `json:"consent"`
	}
	if err := c.do(ctx, http.MethodPut, "/consent", nil, update, &out); err != nil {
		return nil, err
	}
	return &out.Consent, nil
}
