package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func periodQuery(period int) url.Values {
	q := url.Values{}
	if period > 0 {
		q.Set("period", strconv.Itoa(period))
	}
	return q
}

func (c *Client) Stats(ctx context.Context) (*ReadingStats, error) {
	var out ReadingStats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StatsOverview(ctx context.Context, period int) (*Overview, error) {
	var out Overview
	if err := c.do(ctx, http.MethodGet, "/stats/overview", periodQuery(period), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StatsPatterns(ctx context.Context, period int) (*Patterns, error) {
	var out Patterns
	if err := c.do(ctx, http.MethodGet, "/stats/patterns", periodQuery(period), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StatsGrowth(ctx context.Context, period int) (*Growth, error) {
	var out Growth
	if err := c.do(ctx, http.MethodGet, "/stats/growth", periodQuery(period), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
