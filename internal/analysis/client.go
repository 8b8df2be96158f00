// Package analysis generates passage and original-language verse analyses,
// either from canned Korean templates or from a remote analysis service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"github.com/macchain/backend/internal/telemetry"
	"go.uber.org/zap"
)

// Client talks to the remote analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// HealthResponse contains the health check response.
type HealthResponse struct {
	Status        string  `json:"status"`
	Model         string  `json:"model"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type passageRequest struct {
	Passage      string `json:"passage"`
	AnalysisType string `json:"analysis_type"`
}

type passageResponse struct {
	Analysis string `json:"analysis"`
}

type verseRequest struct {
	Book       string `json:"book"`
	Chapter    int    `json:"chapter"`
	Verse      int    `json:"verse"`
	HebrewText string `json:"hebrew_text,omitempty"`
}

// NewClient creates a remote analysis client.
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 60*time.Second)
}

// NewClientWithTimeout creates a remote analysis client with a custom timeout.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{
			ServiceName: "ai-analysis",
			Timeout:     timeout,
		}),
	}
}

// Source implements Generator
func (c *Client) Source() string { return models.AnalysisSourceRemote }

// Health checks if the analysis service is healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("health check returned %d: %s", resp.StatusCode, string(body))
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &health, nil
}

// IsAvailable checks if the analysis service is available and healthy.
func (c *Client) IsAvailable(ctx context.Context) bool {
	health, err := c.Health(ctx)
	if err != nil {
		return false
	}
	return health.Status == "healthy"
}

// Passage implements Generator
func (c *Client) Passage(ctx context.Context, passage, analysisType string) (string, error) {
	var out passageResponse
	if err := c.post(ctx, "/api/v1/analyze/passage", passageRequest{Passage: passage, AnalysisType: analysisType}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Analysis) == "" {
		return "", fmt.Errorf("analysis service returned an empty analysis")
	}
	return out.Analysis, nil
}

// Verse implements Generator
func (c *Client) Verse(ctx context.Context, book string, chapter, verse int, hebrewText string) (*VerseAnalysis, error) {
	var out VerseAnalysis
	req := verseRequest{Book: book, Chapter: chapter, Verse: verse, HebrewText: hebrewText}
	if err := c.post(ctx, "/api/v1/analyze/verse", req, &out); err != nil {
		return nil, err
	}
	out.Book, out.Chapter, out.Verse = book, chapter, verse
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Log.Warn("Remote analysis failed",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)),
			zap.Duration("duration", time.Since(startTime)),
		)
		return fmt.Errorf("analysis failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode analysis result: %w", err)
	}

	logger.Log.Debug("Remote analysis completed",
		zap.String("path", path),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}
