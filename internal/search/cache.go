package search

import (
	"context"
	"crypto/md5"
	"fmt"

	"github.com/macchain/backend/internal/logger"
	"go.uber.org/zap"
)

// cachedResult is what a search result looks like in Redis
type cachedResult struct {
	Result  Result `json:"result"`
	Backend string `json:"backend"`
}

// cacheKey hashes the query parameters into a search: key
func (s *Service) cacheKey(q string, limit, offset int) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%s|%d|%d", q, limit, offset)))
	return fmt.Sprintf("search:discussions:%x", hash)
}

// invalidate drops every cached search page after an index write
func (s *Service) invalidate(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if _, err := s.redis.DeletePattern(ctx, "search:discussions:*"); err != nil {
		logger.Log.Debug("Failed to invalidate search cache", zap.Error(err))
	}
}
