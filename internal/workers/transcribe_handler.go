package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/fedutinova/vidshelf/internal/models"
)

// AudioExtractor downloads sourceURL and converts it into an audio file inside dir.
type AudioExtractor interface {
	Extract(ctx context.Context, sourceURL, dir string) (string, error)
}

// Transcriber turns an audio file into text. It blocks until the provider
// reports a final result.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// ArtifactHook is notified after a transcript has been persisted.
type ArtifactHook interface {
	OnArtifactStored(ctx context.Context, videoID, text string) error
}

type TranscribeStore interface {
	job.Store
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	CreateTranscript(ctx context.Context, videoID, content string) (*models.Transcript, error)
}

type TranscribeDeps struct {
	Store       TranscribeStore
	Extractor   AudioExtractor
	Transcriber Transcriber
	Hooks       []ArtifactHook
	TempDir     string
	HookTimeout time.Duration
}

type TranscribeHandler struct {
	store       TranscribeStore
	extractor   AudioExtractor
	transcriber Transcriber
	hooks       []ArtifactHook
	tempDir     string
	hookTimeout time.Duration
}

func NewTranscribeHandler(deps TranscribeDeps) *TranscribeHandler {
	if deps.HookTimeout <= 0 {
		deps.HookTimeout = 2 * time.Minute
	}
	return &TranscribeHandler{
		store:       deps.Store,
		extractor:   deps.Extractor,
		transcriber: deps.Transcriber,
		hooks:       deps.Hooks,
		tempDir:     deps.TempDir,
		hookTimeout: deps.HookTimeout,
	}
}

// transcribeRun tracks the status a single job has reached so every write
// can be checked against job.CanTransition before it is stored.
type transcribeRun struct {
	h      *TranscribeHandler
	job    *job.Job
	status job.Status
	// storeCtx outlives worker shutdown so the final status is always written.
	storeCtx context.Context
}

// HandleTranscribeJob runs the download -> transcribe -> persist pipeline for one job.
// It is the only writer of the job's status while it runs. Any failure, including a
// panic, leaves the job failed with a readable errorDetail.
func (h *TranscribeHandler) HandleTranscribeJob(ctx context.Context, j *job.Job) (err error) {
	if j.Kind != job.KindTranscribe {
		return fmt.Errorf("unexpected job kind: %s", j.Kind)
	}

	r := &transcribeRun{
		h:        h,
		job:      j,
		status:   j.Status,
		storeCtx: context.WithoutCancel(ctx),
	}
	if r.status == "" {
		r.status = job.StatusPending
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("transcribe panic: %v", rec)
			slog.Error("transcribe job panicked", "job_id", j.ID, "video_id", j.TargetID, "panic", rec)
			r.fail(err.Error())
		}
	}()

	start := time.Now()
	if err := r.execute(ctx); err != nil {
		r.fail(err.Error())
		return err
	}

	slog.Info("transcribe job completed",
		"job_id", j.ID,
		"video_id", j.TargetID,
		"elapsed", time.Since(start),
	)
	return nil
}

func (r *transcribeRun) execute(ctx context.Context) error {
	j := r.job

	video, err := r.h.store.GetVideo(r.storeCtx, j.TargetID)
	if err != nil {
		if common.IsNotFound(err) {
			return fmt.Errorf("video %s no longer exists", j.TargetID)
		}
		return fmt.Errorf("failed to load video: %w", err)
	}

	if err := r.advance(job.StatusDownloading); err != nil {
		return err
	}

	dir, err := os.MkdirTemp(r.h.tempDir, "transcribe-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("failed to remove temp dir", "job_id", j.ID, "dir", dir, "error", err)
		}
	}()

	audioPath, err := r.h.extractor.Extract(ctx, video.SourceURL(), dir)
	if err != nil {
		slog.Error("audio extraction failed", "job_id", j.ID, "video_id", j.TargetID, "error", err)
		return err
	}
	slog.Debug("audio extracted", "job_id", j.ID, "path", audioPath)

	if err := r.advance(job.StatusTranscribing); err != nil {
		return err
	}

	text, err := r.h.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		slog.Error("transcription failed", "job_id", j.ID, "video_id", j.TargetID, "error", err)
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("transcription returned no text")
	}

	if _, err := r.h.store.CreateTranscript(r.storeCtx, j.TargetID, text); err != nil {
		if errors.Is(err, common.ErrTranscriptExists) {
			return errors.New("a transcript for this video was stored by another job")
		}
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	r.runHooks(ctx, text)

	return r.advance(job.StatusCompleted)
}

// runHooks gives each hook its own deadline. Hook errors never fail the job.
func (r *transcribeRun) runHooks(ctx context.Context, text string) {
	for _, hook := range r.h.hooks {
		func() {
			hookCtx, cancel := context.WithTimeout(ctx, r.h.hookTimeout)
			defer cancel()
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("artifact hook panicked", "job_id", r.job.ID, "hook", fmt.Sprintf("%T", hook), "panic", rec)
				}
			}()

			if err := hook.OnArtifactStored(hookCtx, r.job.TargetID, text); err != nil {
				slog.Warn("artifact hook failed",
					"job_id", r.job.ID,
					"video_id", r.job.TargetID,
					"hook", fmt.Sprintf("%T", hook),
					"error", err,
				)
			}
		}()
	}
}

func (r *transcribeRun) advance(to job.Status) error {
	if !job.CanTransition(r.status, to) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, r.status, to)
	}
	if err := r.h.store.UpdateJobStatus(r.storeCtx, r.job.ID, to, ""); err != nil {
		return fmt.Errorf("failed to set status %s: %w", to, err)
	}
	r.status = to
	slog.Debug("job status changed", "job_id", r.job.ID, "status", to)
	return nil
}

func (r *transcribeRun) fail(detail string) {
	if r.status.Terminal() {
		return
	}
	if err := r.h.store.UpdateJobStatus(r.storeCtx, r.job.ID, job.StatusFailed, detail); err != nil {
		slog.Error("failed to mark job failed", "job_id", r.job.ID, "error", err)
		return
	}
	r.status = job.StatusFailed
}
