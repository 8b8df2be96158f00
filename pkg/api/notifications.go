package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) Notifications(ctx context.Context, unreadOnly bool, limit, offset int) (*NotificationList, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unread", "true")
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var out NotificationList
	if err := c.do(ctx, http.MethodGet, "/notifications", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Unread int64 `json:"unread"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Unread, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) (*Notification, error) {
	var out struct {
		Notification Notification `json:"notification"`
	}
	if err := c.do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Notification, nil
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPut, "/notifications/read-all", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}
