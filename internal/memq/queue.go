package memq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/job"
)

var ErrQueueClosed = errors.New("queue closed")

type JobHandler func(ctx context.Context, j *job.Job) error

// JobQueue dispatches jobs to a fixed set of consumers.
// Enqueue never blocks: a full buffer returns common.ErrQueueFull.
type JobQueue interface {
	Enqueue(ctx context.Context, j *job.Job) error
	StartConsumers(ctx context.Context, n int, handler JobHandler)
	Len() int
	Close() error
}

type memQueue struct {
	buf     chan *job.Job
	closing chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewMemoryQueue(buffer int) JobQueue {
	if buffer < 1 {
		buffer = 1
	}
	return &memQueue{
		buf:     make(chan *job.Job, buffer),
		closing: make(chan struct{}),
	}
}

func (q *memQueue) Enqueue(ctx context.Context, j *job.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-q.closing:
		return ErrQueueClosed
	default:
	}

	select {
	case q.buf <- j:
		return nil
	default:
		return common.ErrQueueFull
	}
}

func (q *memQueue) StartConsumers(ctx context.Context, n int, handler JobHandler) {
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go func(workerID int) {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.closing:
					return
				case j := <-q.buf:
					run(ctx, workerID, handler, j)
				}
			}
		}(i + 1)
	}
}

func run(ctx context.Context, workerID int, handler JobHandler, j *job.Job) {
	start := time.Now()
	err := SafeHandle(ctx, handler, j)
	if err != nil {
		slog.Error("job failed", "id", j.ID, "kind", j.Kind, "target", j.TargetID, "err", err, "worker", workerID, "elapsed", time.Since(start))
		return
	}
	slog.Info("job done", "id", j.ID, "kind", j.Kind, "target", j.TargetID, "worker", workerID, "elapsed", time.Since(start))
}

// SafeHandle runs handler, converting a panic into an error so the worker survives.
func SafeHandle(ctx context.Context, handler JobHandler, j *job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, j)
}

func (q *memQueue) Len() int {
	return len(q.buf)
}

// Close stops accepting jobs and waits for in-flight handlers to return.
// Jobs still buffered are dropped and stay in their last stored status.
func (q *memQueue) Close() error {
	q.once.Do(func() { close(q.closing) })
	q.wg.Wait()
	if n := len(q.buf); n > 0 {
		slog.Warn("queue closed with undispatched jobs", "count", n)
	}
	return nil
}
