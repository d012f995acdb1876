package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/google/uuid"
)

const startLockTTL = 15 * time.Second

// Dispatcher hands a job to the worker pool without waiting for it to run.
type Dispatcher interface {
	Enqueue(ctx context.Context, j *job.Job) error
}

// Locker serializes job starts across API instances sharing one store.
type Locker interface {
	Lock(ctx context.Context, name string, ttl time.Duration) (unlock func(), ok bool, err error)
}

type JobStore interface {
	job.Store
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
}

type JobServiceConfig struct {
	Store JobStore
	Queue Dispatcher
	// Locker is optional; without it starts are serialized within this process only.
	Locker Locker
	// Ready reports whether the providers a kind needs are configured.
	Ready func(kind job.Kind) error
}

type JobService struct {
	store  JobStore
	queue  Dispatcher
	locker Locker
	ready  func(kind job.Kind) error
	mu     sync.Mutex
}

func NewJobService(cfg JobServiceConfig) *JobService {
	ready := cfg.Ready
	if ready == nil {
		ready = func(job.Kind) error { return nil }
	}
	return &JobService{
		store:  cfg.Store,
		queue:  cfg.Queue,
		locker: cfg.Locker,
		ready:  ready,
	}
}

// StartJob creates a pending job for targetID and dispatches it. When a job of
// the same kind is already active it is returned together with ErrJobActive.
func (s *JobService) StartJob(ctx context.Context, targetID string, kind job.Kind) (*job.Job, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown job kind %q", common.ErrBadRequest, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil {
		unlock, ok, err := s.locker.Lock(ctx, fmt.Sprintf("vidshelf:start:%s:%s", kind, targetID), startLockTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: start lock: %v", common.ErrUnavailable, err)
		}
		if !ok {
			return nil, common.ErrJobActive
		}
		defer unlock()
	}

	if _, err := s.store.GetVideo(ctx, targetID); err != nil {
		return nil, err
	}

	active, err := s.store.GetActiveJob(ctx, targetID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to check active jobs: %w", err)
	}
	if active != nil {
		return active, common.ErrJobActive
	}

	if _, err := s.store.GetTranscript(ctx, targetID); err == nil {
		return nil, common.ErrTranscriptExists
	} else if !common.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check transcript: %w", err)
	}

	if err := s.ready(kind); err != nil {
		return nil, err
	}

	j, err := s.store.CreateJob(ctx, targetID, kind)
	if errors.Is(err, common.ErrJobActive) {
		// another instance won the race
		active, _ := s.store.GetActiveJob(ctx, targetID, kind)
		return active, common.ErrJobActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// the worker gets its own copy; j is returned to the caller
	dispatched := *j
	if err := s.queue.Enqueue(ctx, &dispatched); err != nil {
		slog.Error("failed to enqueue job", "job_id", j.ID, "video_id", targetID, "error", err)
		detail := "could not dispatch: " + err.Error()
		if uerr := s.store.UpdateJobStatus(context.WithoutCancel(ctx), j.ID, job.StatusFailed, detail); uerr != nil {
			slog.Error("failed to mark undispatched job failed", "job_id", j.ID, "error", uerr)
		}
		if errors.Is(err, common.ErrQueueFull) {
			return nil, common.ErrQueueFull
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	slog.Info("job enqueued", "job_id", j.ID, "video_id", targetID, "kind", kind)
	return j, nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	return s.store.GetJob(ctx, id)
}

// GetActiveJobForTarget returns nil without error when nothing is running.
func (s *JobService) GetActiveJobForTarget(ctx context.Context, targetID string, kind job.Kind) (*job.Job, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown job kind %q", common.ErrBadRequest, kind)
	}
	return s.store.GetActiveJob(ctx, targetID, kind)
}
