// Package client builds the resty HTTP client the API package uses
package client

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/macchain/backend/pkg/config"
	"github.com/macchain/backend/pkg/logger"
)

const userAgent = "MacChain-CLI/0.1.0"

// ClientIDHeader carries the installation id so realtime echoes of our
// own mutations can be recognised.
const ClientIDHeader = "X-Client-ID"

// Options configure New
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	ClientID string
	Token    string
}

// FromConfig reads base URL and timeout from the CLI config
func FromConfig(clientID, token string) Options {
	return Options{
		BaseURL:  config.GetString("api.base_url"),
		Timeout:  time.Duration(config.GetInt("api.timeout")) * time.Second,
		ClientID: clientID,
		Token:    token,
	}
}

// New returns a configured resty client with request logging
func New(opts Options) *resty.Client {
	c := resty.New()
	c.SetBaseURL(opts.BaseURL)
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	c.SetHeader("User-Agent", userAgent)
	c.SetHeader("Accept", "application/json")
	if opts.ClientID != "" {
		c.SetHeader(ClientIDHeader, opts.ClientID)
	}
	if opts.Token != "" {
		c.SetAuthToken(opts.Token)
	}

	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP request", "method", req.Method, "url", req.URL)
		return nil
	})
	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP response", "status", resp.StatusCode(), "url", resp.Request.URL, "duration", resp.Time())
		return nil
	})
	return c
}
