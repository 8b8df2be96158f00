package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

type discussionEnvelope struct {
	Discussion Discussion `json:"discussion"`
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/community/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) ListDiscussions(ctx context.Context, p ListParams) (*DiscussionList, error) {
	q := pageQuery(p.Page, p.Limit)
	if p.CategoryID != "" {
		q.Set("category_id", p.CategoryID)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	var out DiscussionList
	if err := c.do(ctx, http.MethodGet, "/community/discussions", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetDiscussion(ctx context.Context, id string) (*Discussion, error) {
	var out discussionEnvelope
	if err := c.do(ctx, http.MethodGet, "/community/discussions/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Discussion, nil
}

func (c *Client) CreateDiscussion(ctx context.Context, in DiscussionInput) (*Discussion, error) {
	var out discussionEnvelope
	if err := c.do(ctx, http.MethodPost, "/community/discussions", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Discussion, nil
}

func (c *Client) UpdateDiscussion(ctx context.Context, id string, in DiscussionUpdate) (*Discussion, error) {
	var out discussionEnvelope
	if err := c.do(ctx, http.MethodPut, "/community/discussions/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Discussion, nil
}

func (c *Client) DeleteDiscussion(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/community/discussions/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ToggleDiscussionLike(ctx context.Context, id string) (*LikeResult, error) {
	var out LikeResult
	if err := c.do(ctx, http.MethodPost, "/community/discussions/"+url.PathEscape(id)+"/like", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToggleBookmark(ctx context.Context, id string) (*BookmarkResult, error) {
	var out BookmarkResult
	if err := c.do(ctx, http.MethodPost, "/community/discussions/"+url.PathEscape(id)+"/bookmark", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Bookmarks(ctx context.Context, page, limit int) (*DiscussionList, error) {
	var out DiscussionList
	if err := c.do(ctx, http.MethodGet, "/community/bookmarks", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchDiscussions(ctx context.Context, query string, page, limit int) (*DiscussionList, error) {
	q := pageQuery(page, limit)
	q.Set("q", query)
	var out DiscussionList
	if err := c.do(ctx, http.MethodGet, "/community/search", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Comments(ctx context.Context, discussionID string) ([]*Comment, error) {
	var out struct {
		Comments []*Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/community/discussions/"+url.PathEscape(discussionID)+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

type commentEnvelope struct {
	Comment Comment `json:"comment"`
}

// CreateComment adds a comment; parentID makes it a reply
func (c *Client) CreateComment(ctx context.Context, discussionID, content string, parentID *string) (*Comment, error) {
	body := map[string]interface{}{"content": content}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	var out commentEnvelope
	if err := c.do(ctx, http.MethodPost, "/community/discussions/"+url.PathEscape(discussionID)+"/comments", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *Client) UpdateComment(ctx context.Context, id, content string) (*Comment, error) {
	var out commentEnvelope
	if err := c.do(ctx, http.MethodPut, "/community/comments/"+url.PathEscape(id), nil, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/community/comments/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ToggleCommentLike(ctx context.Context, id string) (*LikeResult, error) {
	var out LikeResult
	if err := c.do(ctx, http.MethodPost, "/community/comments/"+url.PathEscape(id)+"/like", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
