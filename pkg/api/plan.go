package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) PlanDay(ctx context.Context, day int) (*PlanDay, error) {
	var out PlanDay
	if err := c.do(ctx, http.MethodGet, "/plan/day/"+strconv.Itoa(day), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Today(ctx context.Context) (*DailyReadings, error) {
	var out DailyReadings
	if err := c.do(ctx, http.MethodGet, "/plan/today", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PlanForDate(ctx context.Context, date string) (*DailyReadings, error) {
	var out DailyReadings
	if err := c.do(ctx, http.MethodGet, "/plan/date/"+url.PathEscape(date), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetReadingProgress marks one reading of a date complete or not
func (c *Client) SetReadingProgress(ctx context.Context, date string, readingID int, completed bool) (*ReadingProgress, error) {
	var out struct {
		Progress ReadingProgress `json:"progress"`
	}
	path := fmt.Sprintf("/progress/%s/readings/%d", url.PathEscape(date), readingID)
	if err := c.do(ctx, http.MethodPut, path, nil, map[string]bool{"completed": completed}, &out); err != nil {
		return nil, err
	}
	return &out.Progress, nil
}

// ProgressHistory returns per-date counts. Empty bounds use the server's
// default window.
func (c *Client) ProgressHistory(ctx context.Context, from, to string) (*ProgressHistory, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	var out ProgressHistory
	if err := c.do(ctx, http.MethodGet, "/progress/history", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyProgress(ctx context.Context) (*UserProgress, error) {
	var out UserProgress
	if err := c.do(ctx, http.MethodGet, "/users/me/progress", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
