package syncer

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/macchain/backend/pkg/logger"
)

// Priority orders queued tasks. Higher runs first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// DefaultMaxConcurrent is the task queue's default concurrency
const DefaultMaxConcurrent = 3

// ErrTaskCancelled is passed to OnDone when a task is cancelled
var ErrTaskCancelled = errors.New("task cancelled")

// Task is a unit of background work
type Task struct {
	Name     string
	Priority Priority
	Run      func(ctx context.Context) error
	// OnDone is called once with the task's outcome
	OnDone func(err error)
}

// TaskStats is a snapshot of queue counters
type TaskStats struct {
	Pending   int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

type queuedTask struct {
	id    string
	seq   uint64
	task  Task
	index int
}

type taskHeap []*queuedTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x interface{}) {
	t := x.(*queuedTask)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// TaskQueue runs tasks by priority with bounded concurrency
type TaskQueue struct {
	mu        sync.Mutex
	ready     *sync.Cond
	idle      *sync.Cond
	pending   taskHeap
	byID      map[string]*queuedTask
	running   map[string]context.CancelFunc
	cancelled map[string]bool
	seq       uint64
	stats     TaskStats
	closed    bool

	sem       *semaphore.Weighted
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewTaskQueue starts a queue running at most maxConcurrent tasks at once
func NewTaskQueue(maxConcurrent int) *TaskQueue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &TaskQueue{
		byID:      make(map[string]*queuedTask),
		running:   make(map[string]context.CancelFunc),
		cancelled: make(map[string]bool),
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		ctx:       ctx,
		cancel:    cancel,
	}
	q.ready = sync.NewCond(&q.mu)
	q.idle = sync.NewCond(&q.mu)

	q.wg.Add(1)
	go q.dispatch()
	return q
}

// Add enqueues a task and returns its id. It returns "" once the queue is
// closed.
func (q *TaskQueue) Add(t Task) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ""
	}
	q.seq++
	qt := &queuedTask{id: uuid.NewString(), seq: q.seq, task: t}
	heap.Push(&q.pending, qt)
	q.byID[qt.id] = qt
	q.ready.Signal()
	return qt.id
}

// Cancel removes a pending task or cancels a running one
func (q *TaskQueue) Cancel(id string) bool {
	q.mu.Lock()
	if qt, ok := q.byID[id]; ok {
		heap.Remove(&q.pending, qt.index)
		delete(q.byID, id)
		q.stats.Cancelled++
		q.idle.Broadcast()
		q.mu.Unlock()
		notify(qt.task, ErrTaskCancelled)
		return true
	}
	cancel, ok := q.running[id]
	if ok {
		q.cancelled[id] = true
	}
	q.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Clear drops every pending task and returns how many were dropped
func (q *TaskQueue) Clear() int {
	q.mu.Lock()
	dropped := q.drainLocked()
	q.mu.Unlock()
	for _, qt := range dropped {
		notify(qt.task, ErrTaskCancelled)
	}
	return len(dropped)
}

func (q *TaskQueue) drainLocked() []*queuedTask {
	dropped := []*queuedTask(q.pending)
	q.pending = nil
	q.byID = make(map[string]*queuedTask)
	q.stats.Cancelled += len(dropped)
	q.idle.Broadcast()
	return dropped
}

// Wait blocks until nothing is pending or running
func (q *TaskQueue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) > 0 || len(q.running) > 0 {
		q.idle.Wait()
	}
}

// Stats returns the current counters
func (q *TaskQueue) Stats() TaskStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Pending = len(q.pending)
	s.Running = len(q.running)
	return s
}

// Close cancels running tasks, drops pending ones and waits for workers
func (q *TaskQueue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		dropped := q.drainLocked()
		q.ready.Broadcast()
		q.mu.Unlock()
		for _, qt := range dropped {
			notify(qt.task, ErrTaskCancelled)
		}
		q.cancel()
		q.wg.Wait()
	})
}

func (q *TaskQueue) dispatch() {
	defer q.wg.Done()
	for {
		if err := q.sem.Acquire(q.ctx, 1); err != nil {
			return
		}
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.ready.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			q.sem.Release(1)
			return
		}
		qt := heap.Pop(&q.pending).(*queuedTask)
		delete(q.byID, qt.id)
		ctx, cancel := context.WithCancel(q.ctx)
		q.running[qt.id] = cancel
		q.wg.Add(1)
		q.mu.Unlock()

		go q.run(ctx, cancel, qt)
	}
}

func (q *TaskQueue) run(ctx context.Context, cancel context.CancelFunc, qt *queuedTask) {
	defer q.wg.Done()
	defer q.sem.Release(1)
	defer cancel()

	err := safeRun(ctx, qt.task)

	q.mu.Lock()
	delete(q.running, qt.id)
	wasCancelled := q.cancelled[qt.id] || (q.closed && ctx.Err() != nil)
	delete(q.cancelled, qt.id)
	switch {
	case wasCancelled:
		q.stats.Cancelled++
		err = ErrTaskCancelled
	case err != nil:
		q.stats.Failed++
	default:
		q.stats.Completed++
	}
	q.idle.Broadcast()
	q.mu.Unlock()

	if err != nil && err != ErrTaskCancelled {
		logger.Warn("Task failed", "task", qt.task.Name, "error", err)
	}
	notify(qt.task, err)
}

func safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
	}()
	return t.Run(ctx)
}

func notify(t Task, err error) {
	if t.OnDone != nil {
		t.OnDone(err)
	}
}
