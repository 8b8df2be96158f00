// Package queue runs background notification delivery.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/metrics"
	"go.uber.org/zap"
)

// Defaults for NewNotificationQueue
const (
	DefaultWorkers     = 4
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
)

const popTimeout = time.Second

// ErrStopped is returned by Enqueue after Stop
var ErrStopped = errors.New("notification queue stopped")

// Deliverer sends one notification. Deliver is called once per attempt;
// Fail is called after the last attempt errors.
type Deliverer interface {
	Deliver(ctx context.Context, notificationID string, attempt int) error
	Fail(ctx context.Context, notificationID string, err error)
}

// Options tune the worker pool
type Options struct {
	Workers     int
	MaxAttempts int
	Backoff     time.Duration
}

// NotificationQueue delivers queued notification ids with a worker pool
type NotificationQueue struct {
	backend   Backend
	deliverer Deliverer
	opts      Options

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	startMu sync.Mutex
	started bool

	// signals finished ids (delivered or failed) to WaitFor
	done chan string
}

// NewNotificationQueue creates a queue; zero options take the defaults
func NewNotificationQueue(backend Backend, deliverer Deliverer, opts Options) *NotificationQueue {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &NotificationQueue{
		backend:   backend,
		deliverer: deliverer,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan string, 100),
	}
}

// Start launches the workers
func (q *NotificationQueue) Start() {
	q.startMu.Lock()
	defer q.startMu.Unlock()
	if q.started {
		return
	}
	q.started = true

	logger.Log.Info("Starting notification queue",
		zap.Int("workers", q.opts.Workers),
		zap.String("backend", q.backend.Name()),
	)
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop cancels the workers and waits for in-flight deliveries to return
func (q *NotificationQueue) Stop() {
	q.cancel()
	q.wg.Wait()
	logger.Log.Info("Notification queue stopped")
}

// Enqueue schedules a notification for delivery
func (q *NotificationQueue) Enqueue(ctx context.Context, notificationID string) error {
	if q.ctx.Err() != nil {
		return ErrStopped
	}
	if err := q.backend.Push(ctx, notificationID); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	q.reportDepth(ctx)
	return nil
}

// Depth returns the number of ids waiting for a worker
func (q *NotificationQueue) Depth() int64 {
	n, err := q.backend.Len(context.Background())
	if err != nil {
		logger.Log.Warn("Failed to read queue depth", zap.Error(err))
		return 0
	}
	return n
}

func (q *NotificationQueue) reportDepth(ctx context.Context) {
	if n, err := q.backend.Len(ctx); err == nil {
		metrics.Get().QueueDepth.WithLabelValues("notifications").Set(float64(n))
	}
}

// WaitFor blocks until notificationID finishes or timeout elapses
func (q *NotificationQueue) WaitFor(notificationID string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case id := <-q.done:
			if id == notificationID {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for notification %s", notificationID)
		case <-q.ctx.Done():
			return ErrStopped
		}
	}
}

func (q *NotificationQueue) worker(workerID int) {
	defer q.wg.Done()
	logger.Log.Debug("Notification worker started", zap.Int("worker_id", workerID))

	for {
		id, ok, err := q.backend.Pop(q.ctx, popTimeout)
		if q.ctx.Err() != nil {
			logger.Log.Debug("Notification worker shutting down", zap.Int("worker_id", workerID))
			return
		}
		if err != nil {
			logger.Log.Warn("Notification queue pop failed", zap.Int("worker_id", workerID), zap.Error(err))
			if !q.sleep(popTimeout) {
				return
			}
			continue
		}
		if !ok {
			continue
		}

		q.reportDepth(q.ctx)
		q.process(workerID, id)
	}
}

// process runs up to MaxAttempts deliveries with exponential backoff
func (q *NotificationQueue) process(workerID int, id string) {
	defer q.signal(id)

	var lastErr error
	for attempt := 1; attempt <= q.opts.MaxAttempts; attempt++ {
		lastErr = q.deliverer.Deliver(q.ctx, id, attempt)
		if lastErr == nil {
			return
		}
		logger.Log.Warn("Notification delivery failed",
			zap.Int("worker_id", workerID),
			logger.WithNotificationID(id),
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)
		if attempt < q.opts.MaxAttempts && !q.sleep(q.opts.Backoff<<(attempt-1)) {
			break
		}
	}

	if q.ctx.Err() != nil {
		// left pending; requeued on the next start
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.deliverer.Fail(ctx, id, lastErr)
}

func (q *NotificationQueue) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-q.ctx.Done():
		return false
	}
}

func (q *NotificationQueue) signal(id string) {
	select {
	case q.done <- id:
	default:
	}
}
