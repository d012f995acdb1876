package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/gpt"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/fedutinova/vidshelf/internal/repository"
	"github.com/fedutinova/vidshelf/internal/validation"
)

type LibraryStore interface {
	repository.VideoStore
	repository.TranscriptStore
}

// Archive removes stored copies of a transcript outside the database.
type Archive interface {
	Remove(ctx context.Context, videoID string) error
}

type Summarizer interface {
	Summarize(ctx context.Context, title, transcript, style string) (*gpt.ProcessResult, error)
}

// Library covers video and transcript operations that touch more than one store.
type Library struct {
	store      LibraryStore
	archive    Archive
	summarizer Summarizer
}

// NewLibrary accepts nil archive and summarizer; summaries then report a configuration error.
func NewLibrary(store LibraryStore, archive Archive, summarizer Summarizer) *Library {
	return &Library{store: store, archive: archive, summarizer: summarizer}
}

// AddVideo validates in and stores it. A duplicate returns the existing video
// along with ErrVideoExists.
func (l *Library) AddVideo(ctx context.Context, in validation.VideoInput) (*models.Video, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if existing, err := l.store.GetVideo(ctx, in.VideoID); err == nil {
		return existing, common.ErrVideoExists
	} else if !common.IsNotFound(err) {
		return nil, err
	}

	v := &models.Video{
		VideoID:         in.VideoID,
		VideoTitle:      strings.TrimSpace(in.VideoTitle),
		VideoURL:        in.VideoURL,
		ChannelID:       in.ChannelID,
		ChannelIDSource: in.ChannelIDSource,
		ChannelName:     in.ChannelName,
		ChannelURL:      in.ChannelURL,
		ScrapedAt:       in.ScrapedAt,
	}
	if v.VideoURL == "" {
		v.VideoURL = models.WatchURL(v.VideoID)
	}

	if err := l.store.CreateVideo(ctx, v); err != nil {
		if errors.Is(err, common.ErrVideoExists) {
			existing, gerr := l.store.GetVideo(ctx, in.VideoID)
			if gerr == nil {
				return existing, err
			}
		}
		return nil, err
	}
	slog.Info("video added", "video_id", v.VideoID, "source", v.ChannelIDSource)
	return v, nil
}

// DeleteVideo removes the video with everything derived from it.
func (l *Library) DeleteVideo(ctx context.Context, videoID string) error {
	if err := l.store.DeleteVideo(ctx, videoID); err != nil {
		return err
	}
	l.removeArchived(ctx, videoID)
	slog.Info("video deleted", "video_id", videoID)
	return nil
}

// ResetTranscript deletes the transcript, its chunks and the archived copy so
// a new transcription job may be started.
func (l *Library) ResetTranscript(ctx context.Context, videoID string) error {
	if err := l.store.DeleteTranscript(ctx, videoID); err != nil {
		return err
	}
	l.removeArchived(ctx, videoID)
	slog.Info("transcript deleted", "video_id", videoID)
	return nil
}

func (l *Library) removeArchived(ctx context.Context, videoID string) {
	if l.archive == nil {
		return
	}
	if err := l.archive.Remove(ctx, videoID); err != nil {
		slog.Warn("failed to remove archived transcript", "video_id", videoID, "error", err)
	}
}

// Summarize generates a summary with the LLM and stores it on the transcript.
func (l *Library) Summarize(ctx context.Context, videoID, style string) (*models.Transcript, error) {
	if style == "" {
		style = models.SummaryStructured
	}
	if err := validation.Struct(validation.SummaryInput{Type: style}); err != nil {
		return nil, err
	}
	if l.summarizer == nil {
		return nil, fmt.Errorf("%w: LLM_API_KEY is not set", common.ErrConfiguration)
	}

	tr, err := l.store.GetTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}

	title := ""
	if v, err := l.store.GetVideo(ctx, videoID); err == nil {
		title = v.VideoTitle
	}

	res, err := l.summarizer.Summarize(ctx, title, tr.Content, style)
	if err != nil {
		return nil, fmt.Errorf("summary generation failed: %w", err)
	}
	if err := l.store.UpdateSummary(ctx, videoID, res.Content); err != nil {
		return nil, err
	}

	slog.Info("summary generated",
		"video_id", videoID,
		"style", style,
		"model", res.Model,
		"tokens_used", res.TokensUsed,
		"processing_time_ms", res.ProcessingTimeMs,
	)

	summary := res.Content
	tr.Summary = &summary
	return tr, nil
}

type ImportError struct {
	VideoID string `json:"videoId"`
	Error   string `json:"error"`
}

type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
	Total    int           `json:"total"`
}

// ImportVideos creates every video that does not exist yet.
func (l *Library) ImportVideos(ctx context.Context, videos []models.Video) *ImportResult {
	res := &ImportResult{Total: len(videos), Errors: []ImportError{}}
	for i := range videos {
		v := videos[i]
		if v.VideoURL == "" {
			v.VideoURL = models.WatchURL(v.VideoID)
		}
		err := l.store.CreateVideo(ctx, &v)
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, common.ErrVideoExists):
			res.Skipped++
		default:
			res.Errors = append(res.Errors, ImportError{VideoID: v.VideoID, Error: err.Error()})
		}
	}
	slog.Info("videos imported", "imported", res.Imported, "skipped", res.Skipped, "errors", len(res.Errors), "total", res.Total)
	return res
}
