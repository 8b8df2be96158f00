package search

import (
	"context"
	"sync"
	"time"

	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReconciliationService periodically reindexes recently changed discussions
// so like and comment counts in the index catch up with the database, and
// drops soft-deleted discussions that a failed write left behind
type ReconciliationService struct {
	client   *Client
	db       *gorm.DB
	interval time.Duration

	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   time.Time
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(client *Client, db *gorm.DB, interval time.Duration) *ReconciliationService {
	return &ReconciliationService{
		client:   client,
		db:       db,
		interval: interval,
		stopChan: make(chan struct{}),
		lastRun:  time.Now().Add(-interval),
	}
}

// Start begins the periodic reconciliation loop
func (rs *ReconciliationService) Start() {
	rs.mu.Lock()
	if rs.isRunning {
		rs.mu.Unlock()
		return
	}
	rs.isRunning = true
	rs.mu.Unlock()

	logger.Log.Info("Starting search reconciliation service", zap.Duration("interval", rs.interval))

	rs.wg.Add(1)
	go rs.reconciliationLoop()
}

// Stop gracefully stops the reconciliation service
func (rs *ReconciliationService) Stop() {
	rs.mu.Lock()
	if !rs.isRunning {
		rs.mu.Unlock()
		return
	}
	rs.isRunning = false
	rs.mu.Unlock()

	close(rs.stopChan)
	rs.wg.Wait()
	logger.Log.Info("Search reconciliation service stopped")
}

func (rs *ReconciliationService) reconciliationLoop() {
	defer rs.wg.Done()

	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-rs.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			rs.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce reconciles everything changed since the previous run
func (rs *ReconciliationService) RunOnce(ctx context.Context) (reindexed, removed int) {
	if rs.client == nil {
		return 0, 0
	}
	rs.mu.Lock()
	since := rs.lastRun
	rs.lastRun = time.Now()
	rs.mu.Unlock()

	start := time.Now()

	var changed []models.Discussion
	if err := rs.db.WithContext(ctx).Preload("User").
		Where("updated_at >= ?", since).
		Order("updated_at").
		Limit(500).
		Find(&changed).Error; err != nil {
		logger.Log.Warn("Failed to query discussions for reconciliation", zap.Error(err))
		return 0, 0
	}
	for _, d := range changed {
		if err := rs.client.IndexDiscussion(ctx, DiscussionToSearchDoc(d)); err != nil {
			logger.Log.Warn("Failed to reconcile discussion", logger.WithDiscussionID(d.ID), zap.Error(err))
			continue
		}
		reindexed++
	}

	var deletedIDs []string
	if err := rs.db.WithContext(ctx).Unscoped().Model(&models.Discussion{}).
		Where("deleted_at IS NOT NULL AND deleted_at >= ?", since).
		Pluck("id", &deletedIDs).Error; err != nil {
		logger.Log.Warn("Failed to query deleted discussions", zap.Error(err))
	}
	for _, id := range deletedIDs {
		if err := rs.client.DeleteDiscussion(ctx, id); err == nil {
			removed++
		}
	}

	logger.Log.Info("Search reconciliation completed",
		zap.Int("reindexed", reindexed),
		zap.Int("removed", removed),
		zap.Duration("duration", time.Since(start)),
	)
	return reindexed, removed
}
