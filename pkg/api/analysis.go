package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) AnalyzePassage(ctx context.Context, passage, analysisType string) (*PassageAnalysis, error) {
	body := map[string]string{"passage": passage, "analysis_type": analysisType}
	var out PassageAnalysis
	if err := c.do(ctx, http.MethodPost, "/analysis", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AnalyzeVerse(ctx context.Context, book string, chapter, verse int, hebrewText string) (*VerseAnalysis, error) {
	var body interface{}
	if hebrewText != "" {
		body = map[string]string{"hebrew_text": hebrewText}
	}
	path := fmt.Sprintf("/analysis/verse/%s/%d/%d", url.PathEscape(book), chapter, verse)
	var out VerseAnalysis
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AnalyzeChapter(ctx context.Context, book string, chapter int) (*VerseAnalysis, error) {
	path := fmt.Sprintf("/analysis/chapter/%s/%d", url.PathEscape(book), chapter)
	var out VerseAnalysis
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveAnalysis(ctx context.Context, req SaveAnalysisRequest) (*SavedAnalysis, error) {
	var out struct {
		Analysis SavedAnalysis `json:"analysis"`
	}
	if err := c.do(ctx, http.MethodPost, "/analysis/saved", nil, req, &out); err != nil {
		return nil, err
	}
	return &out.Analysis, nil
}

func (c *Client) SavedAnalyses(ctx context.Context, limit int) ([]SavedAnalysis, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Analyses []SavedAnalysis `json:"analyses"`
	}
	if err := c.do(ctx, http.MethodGet, "/analysis/saved", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Analyses, nil
}
