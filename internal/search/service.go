// Package search indexes community discussions in Elasticsearch and falls
// back to a database LIKE query when the cluster is unavailable.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/macchain/backend/internal/cache"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"github.com/macchain/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Backend labels for metrics and responses
const (
	BackendElasticsearch = "elasticsearch"
	BackendDatabase      = "database"
)

// Service answers discussion searches and keeps the index in step with writes
type Service struct {
	client *Client
	db     *gorm.DB
	redis  *cache.RedisClient
	ttl    time.Duration
}

// NewService creates a search service. client and redis may be nil.
func NewService(client *Client, db *gorm.DB, redis *cache.RedisClient) *Service {
	return &Service{client: client, db: db, redis: redis, ttl: 5 * time.Minute}
}

// Enabled reports whether Elasticsearch is configured
func (s *Service) Enabled() bool {
	return s.client != nil
}

// Index writes d to the index. Failures are logged; the database stays the
// source of truth and reconciliation repairs drift.
func (s *Service) Index(ctx context.Context, d models.Discussion) {
	s.invalidate(ctx)
	if s.client == nil {
		return
	}
	if err := s.client.IndexDiscussion(ctx, DiscussionToSearchDoc(d)); err != nil {
		logger.Log.Warn("Failed to index discussion", logger.WithDiscussionID(d.ID), zap.Error(err))
	}
}

// Remove deletes a discussion from the index
func (s *Service) Remove(ctx context.Context, id string) {
	s.invalidate(ctx)
	if s.client == nil {
		return
	}
	if err := s.client.DeleteDiscussion(ctx, id); err != nil {
		logger.Log.Warn("Failed to remove discussion from index", logger.WithDiscussionID(id), zap.Error(err))
	}
}

// Search returns ranked discussion ids for q and which backend answered
func (s *Service) Search(ctx context.Context, q string, limit, offset int) (*Result, string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return &Result{Hits: []Hit{}}, BackendDatabase, nil
	}

	key := s.cacheKey(q, limit, offset)
	var cached cachedResult
	if cache.GetJSON(ctx, s.redis, key, &cached) {
		return &cached.Result, cached.Backend, nil
	}

	result, backend, err := s.search(ctx, q, limit, offset)
	if err != nil {
		return nil, "", err
	}
	metrics.Get().SearchQueriesTotal.WithLabelValues(backend).Inc()
	cache.SetJSON(ctx, s.redis, key, cachedResult{Result: *result, Backend: backend}, s.ttl)
	return result, backend, nil
}

func (s *Service) search(ctx context.Context, q string, limit, offset int) (*Result, string, error) {
	if s.client != nil {
		result, err := s.client.SearchDiscussions(ctx, q, limit, offset)
		if err == nil {
			return result, BackendElasticsearch, nil
		}
		logger.Log.Warn("Elasticsearch search failed, falling back to database", zap.Error(err))
	}

	result, err := s.searchDatabase(ctx, q, limit, offset)
	if err != nil {
		return nil, "", err
	}
	return result, BackendDatabase, nil
}

func (s *Service) searchDatabase(ctx context.Context, q string, limit, offset int) (*Result, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	base := s.db.WithContext(ctx).Model(&models.Discussion{}).
		Where("LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\' OR LOWER(passage_reference) LIKE ? ESCAPE '\\'",
			pattern, pattern, pattern)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count search results: %w", err)
	}

	var ids []string
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to search discussions: %w", err)
	}

	out := &Result{Hits: make([]Hit, 0, len(ids)), Total: int(total)}
	for _, id := range ids {
		out.Hits = append(out.Hits, Hit{ID: id})
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
