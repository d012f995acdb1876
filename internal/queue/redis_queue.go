package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/fedutinova/vidshelf/internal/memq"
	"github.com/redis/go-redis/v9"
)

// RedisQueue implements memq.JobQueue using Redis Streams.
// Messages are acknowledged once the handler returns. Messages left pending
// by a crashed consumer are not re-run; their jobs stay in their last stored status.
type RedisQueue struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string

	wg        sync.WaitGroup
	closing   chan struct{}
	closeOnce sync.Once
}

var _ memq.JobQueue = (*RedisQueue)(nil)

// RedisQueueConfig holds configuration for RedisQueue
type RedisQueueConfig struct {
	Stream string
	Group  string
	// Consumer prefixes consumer names so several processes can share a group.
	Consumer string
}

// DefaultConfig returns default queue configuration
func DefaultConfig() RedisQueueConfig {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "vidshelf"
	}
	return RedisQueueConfig{
		Stream:   "vidshelf:jobs",
		Group:    "workers",
		Consumer: fmt.Sprintf("%s-%d", host, os.Getpid()),
	}
}

// NewRedisQueue creates a new Redis Streams based queue
func NewRedisQueue(client *redis.Client, cfg RedisQueueConfig) (*RedisQueue, error) {
	if cfg.Consumer == "" {
		cfg.Consumer = DefaultConfig().Consumer
	}
	q := &RedisQueue{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: cfg.Consumer,
		closing:  make(chan struct{}),
	}

	// Create consumer group if it doesn't exist
	ctx := context.Background()
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	slog.Info("Redis queue initialized",
		"stream", q.stream,
		"group", q.group,
		"consumer", q.consumer)

	return q, nil
}

// Enqueue adds a job to the stream
func (q *RedisQueue) Enqueue(ctx context.Context, j *job.Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{
			"id":   j.ID.String(),
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to add job to stream: %w", err)
	}

	slog.Debug("Job enqueued", "job_id", j.ID, "kind", j.Kind, "target", j.TargetID)
	return nil
}

// Len returns the number of delivered but unacknowledged jobs plus the unread backlog
func (q *RedisQueue) Len() int {
	ctx := context.Background()
	info, err := q.client.XInfoGroups(ctx, q.stream).Result()
	if err != nil {
		return 0
	}
	for _, g := range info {
		if g.Name == q.group {
			return int(g.Pending + max(g.Lag, 0))
		}
	}
	return 0
}

// StartConsumers starts n consumer goroutines
func (q *RedisQueue) StartConsumers(ctx context.Context, n int, handler memq.JobHandler) {
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go q.consume(ctx, i+1, handler)
	}

	slog.Info("Started queue consumers", "count", n)
}

// workerName is the group consumer name for one goroutine of this process.
func (q *RedisQueue) workerName(workerID int) string {
	return fmt.Sprintf("%s-worker-%d", q.consumer, workerID)
}

// consume processes jobs from the stream
func (q *RedisQueue) consume(ctx context.Context, workerID int, handler memq.JobHandler) {
	defer q.wg.Done()
	consumerName := q.workerName(workerID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer shutting down", "worker", workerID)
			return
		case <-q.closing:
			slog.Info("Consumer received close signal", "worker", workerID)
			return
		default:
		}

		// Read new messages (blocking with timeout)
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumerName,
			Streams:  []string{q.stream, ">"},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			slog.Error("Failed to read from stream", "error", err, "worker", workerID)
			time.Sleep(time.Second) // backoff on error
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.processMessage(ctx, msg, handler, workerID)
			}
		}
	}
}

// processMessage handles a single message from the stream
func (q *RedisQueue) processMessage(ctx context.Context, msg redis.XMessage, handler memq.JobHandler, workerID int) {
	// acks must land even when ctx is cancelled mid-job
	ackCtx := context.WithoutCancel(ctx)

	data, ok := msg.Values["data"].(string)
	if !ok {
		q.moveToDeadLetter(ackCtx, msg, "invalid message format")
		return
	}

	var j job.Job
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		q.moveToDeadLetter(ackCtx, msg, fmt.Sprintf("failed to unmarshal job: %v", err))
		return
	}

	slog.Info("Processing job", "job_id", j.ID, "kind", j.Kind, "target", j.TargetID, "worker", workerID)

	start := time.Now()
	if err := memq.SafeHandle(ctx, handler, &j); err != nil {
		slog.Error("Job failed", "job_id", j.ID, "kind", j.Kind, "error", err, "worker", workerID)
	} else {
		slog.Info("Job completed", "job_id", j.ID, "kind", j.Kind, "worker", workerID,
			"duration", time.Since(start))
	}

	q.ackMessage(ackCtx, msg.ID)
}

// moveToDeadLetter moves an unprocessable message to the dead letter stream
func (q *RedisQueue) moveToDeadLetter(ctx context.Context, msg redis.XMessage, reason string) {
	dlStream := q.stream + ":deadletter"

	_, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: dlStream,
		Values: map[string]any{
			"original_id": msg.ID,
			"data":        msg.Values["data"],
			"reason":      reason,
			"moved_at":    time.Now().Format(time.RFC3339),
		},
	}).Result()

	if err != nil {
		slog.Error("Failed to move to dead letter", "message_id", msg.ID, "error", err)
	} else {
		slog.Warn("Moved message to dead letter queue", "message_id", msg.ID, "reason", reason)
	}

	q.ackMessage(ctx, msg.ID)
}

// ackMessage acknowledges a message
func (q *RedisQueue) ackMessage(ctx context.Context, messageID string) {
	err := q.client.XAck(ctx, q.stream, q.group, messageID).Err()
	if err != nil {
		slog.Error("Failed to ack message", "message_id", messageID, "error", err)
	}
}

// Close gracefully shuts down the queue
func (q *RedisQueue) Close() error {
	q.closeOnce.Do(func() { close(q.closing) })
	q.wg.Wait()
	slog.Info("Queue closed gracefully")
	return nil
}

// isGroupExistsError checks if error is "BUSYGROUP Consumer Group name already exists"
func isGroupExistsError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

// GetDeadLetterCount returns count of messages in the dead letter stream
func (q *RedisQueue) GetDeadLetterCount(ctx context.Context) (int64, error) {
	dlStream := q.stream + ":deadletter"
	return q.client.XLen(ctx, dlStream).Result()
}
