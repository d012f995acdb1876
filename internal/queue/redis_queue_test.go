package queue

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func getTestRedisClient(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Skipf("Skipping Redis queue test: invalid Redis URL: %v", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping Redis queue test: Redis not available: %v", err)
	}

	return client
}

func newTestQueue(t *testing.T, client *redis.Client, prefix string) (*RedisQueue, string) {
	t.Helper()
	streamName := prefix + uuid.New().String()[:8]

	t.Cleanup(func() {
		client.Del(context.Background(), streamName, streamName+":deadletter")
		client.XGroupDestroy(context.Background(), streamName, "test-workers")
	})

	q, err := NewRedisQueue(client, RedisQueueConfig{
		Stream:   streamName,
		Group:    "test-workers",
		Consumer: "test",
	})
	if err != nil {
		t.Fatalf("Failed to create queue: %v", err)
	}
	return q, streamName
}

func testJob(target string) *job.Job {
	return &job.Job{
		ID:        uuid.New(),
		TargetID:  target,
		Kind:      job.KindTranscribe,
		Status:    job.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRedisQueue_EnqueueAndConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	client := getTestRedisClient(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q, _ := newTestQueue(t, client, "test:jobs:")
	defer q.Close()

	var processedCount int32
	processedJobs := make(chan *job.Job, 10)

	q.StartConsumers(ctx, 2, func(ctx context.Context, j *job.Job) error {
		atomic.AddInt32(&processedCount, 1)
		processedJobs <- j
		return nil
	})

	job1 := testJob("video-one")
	job2 := testJob("video-two")
	if err := q.Enqueue(ctx, job1); err != nil {
		t.Fatalf("Failed to enqueue job1: %v", err)
	}
	if err := q.Enqueue(ctx, job2); err != nil {
		t.Fatalf("Failed to enqueue job2: %v", err)
	}

	seen := map[uuid.UUID]string{}
	timeout := time.After(10 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case j := <-processedJobs:
			seen[j.ID] = j.TargetID
		case <-timeout:
			t.Fatalf("Timeout waiting for jobs to be processed, got %d", atomic.LoadInt32(&processedCount))
		}
	}

	if seen[job1.ID] != "video-one" || seen[job2.ID] != "video-two" {
		t.Errorf("Expected both jobs to round-trip with their targets, got %v", seen)
	}
}

func TestRedisQueue_HandlerPanicIsAcked(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	client := getTestRedisClient(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q, streamName := newTestQueue(t, client, "test:jobs:panic:")
	defer q.Close()

	var calls int32
	done := make(chan struct{}, 2)
	q.StartConsumers(ctx, 1, func(ctx context.Context, j *job.Job) error {
		defer func() { done <- struct{}{} }()
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
		return nil
	})

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, testJob("video")); err != nil {
			t.Fatalf("Failed to enqueue job: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("Timeout waiting for job to be processed")
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		pending, err := client.XPending(ctx, streamName, "test-workers").Result()
		if err == nil && pending.Count == 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Error("Expected all messages to be acknowledged")
}

func TestRedisQueue_MalformedMessageGoesToDeadLetter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	client := getTestRedisClient(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q, streamName := newTestQueue(t, client, "test:jobs:dl:")
	defer q.Close()

	var handled int32
	q.StartConsumers(ctx, 1, func(ctx context.Context, j *job.Job) error {
		atomic.AddInt32(&handled, 1)
		return nil
	})

	if err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]any{"id": "x", "data": "{not json"},
	}).Err(); err != nil {
		t.Fatalf("Failed to add raw message: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		n, err := q.GetDeadLetterCount(ctx)
		if err == nil && n == 1 {
			if atomic.LoadInt32(&handled) != 0 {
				t.Error("Handler should not run for malformed messages")
			}
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Error("Expected malformed message in dead letter stream")
}

func TestRedisQueue_Persistence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	client := getTestRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	q1, streamName := newTestQueue(t, client, "test:jobs:persist:")

	enqueued := testJob("persistent")
	if err := q1.Enqueue(ctx, enqueued); err != nil {
		t.Fatalf("Failed to enqueue job: %v", err)
	}

	// Close first queue instance before any consumer ran (simulating restart)
	q1.Close()

	q2, err := NewRedisQueue(client, RedisQueueConfig{
		Stream:   streamName,
		Group:    "test-workers",
		Consumer: "test-restarted",
	})
	if err != nil {
		t.Fatalf("Failed to create second queue: %v", err)
	}
	defer q2.Close()

	processed := make(chan *job.Job, 1)
	consumerCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	q2.StartConsumers(consumerCtx, 1, func(ctx context.Context, j *job.Job) error {
		processed <- j
		return nil
	})

	select {
	case j := <-processed:
		if j.ID != enqueued.ID || j.TargetID != "persistent" {
			t.Errorf("Unexpected job delivered: %+v", j)
		}
	case <-time.After(20 * time.Second):
		t.Error("Timeout waiting for persisted job to be processed")
	}
}

func TestRedisQueue_WorkerNamesKeepProcessPrefix(t *testing.T) {
	q := &RedisQueue{consumer: "host-42", closing: make(chan struct{})}

	if got := q.workerName(1); got != "host-42-worker-1" {
		t.Errorf("workerName(1) = %q, want %q", got, "host-42-worker-1")
	}
	if q.workerName(1) == q.workerName(2) {
		t.Error("workers in one process must get distinct consumer names")
	}
}

func TestRedisQueue_CloseWithoutConsumers(t *testing.T) {
	q := &RedisQueue{consumer: "idle", closing: make(chan struct{})}

	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Stream != "vidshelf:jobs" || cfg.Group != "workers" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Consumer == "" {
		t.Error("default consumer prefix must not be empty")
	}
}

func TestIsGroupExistsError(t *testing.T) {
	if !isGroupExistsError(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Error("BUSYGROUP reply should be treated as an existing group")
	}
	if isGroupExistsError(nil) {
		t.Error("nil is not a BUSYGROUP error")
	}
}
