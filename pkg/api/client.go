// Package api is the typed client for the MacChain REST API
package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const prefix = "/api/v1"

// IdempotencyHeader lets the server collapse repeated creates
const IdempotencyHeader = "Idempotency-Key"

type idempotencyKey struct{}

// WithIdempotencyKey tags POST requests made with ctx so the server applies
// them at most once
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// Client calls the API through a preconfigured resty client
type Client struct {
	http *resty.Client
}

// New wraps a resty client built by pkg/client
func New(http *resty.Client) *Client {
	return &Client{http: http}
}

// SetToken changes the bearer token for later requests
func (c *Client) SetToken(token string) {
	if token == "" {
		c.http.Header.Del("Authorization")
		c.http.Token = ""
		return
	}
	c.http.SetAuthToken(token)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if key, ok := ctx.Value(idempotencyKey{}).(string); ok && key != "" && method == http.MethodPost {
		req.SetHeader(IdempotencyHeader, key)
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.SetHeader("Content-Type", "application/json").SetBody(data)
	}

	resp, err := req.Execute(method, prefix+path)
	if err := CheckResponse(resp, err); err != nil {
		return err
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}

// Health calls GET /health, outside the versioned prefix
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	return out, nil
}
