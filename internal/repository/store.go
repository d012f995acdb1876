package repository

import (
	"context"

	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/fedutinova/vidshelf/internal/models"
)

type VideoStore interface {
	// CreateVideo fills in ID and CreatedAt. Duplicates return ErrVideoExists.
	CreateVideo(ctx context.Context, v *models.Video) error
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	// ListVideos returns newest first with transcript and job flags populated.
	ListVideos(ctx context.Context, limit, offset int) ([]models.Video, error)
	CountVideos(ctx context.Context) (int, error)
	// DeleteVideo removes the video with its transcript, chunks and jobs.
	DeleteVideo(ctx context.Context, videoID string) error
}

type TranscriptStore interface {
	// CreateTranscript returns ErrTranscriptExists when the video already has one.
	CreateTranscript(ctx context.Context, videoID, content string) (*models.Transcript, error)
	GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
	UpdateSummary(ctx context.Context, videoID, summary string) error
	// DeleteTranscript removes the transcript and its chunks.
	DeleteTranscript(ctx context.Context, videoID string) error
	SearchTranscripts(ctx context.Context, query string, limit int) ([]models.Transcript, error)
	// ListSummaries returns every transcript that has a summary, newest first.
	ListSummaries(ctx context.Context) ([]models.VideoSummary, error)
}

type ChunkStore interface {
	// ReplaceChunks swaps all chunks of a video in one step.
	ReplaceChunks(ctx context.Context, videoID string, chunks []models.TranscriptChunk) error
	ListChunkVectors(ctx context.Context) ([]models.ChunkVector, error)
	// VideosWithoutChunks lists videos that have a transcript but no chunks.
	VideosWithoutChunks(ctx context.Context) ([]string, error)
	EmbeddingStatus(ctx context.Context) (*models.EmbeddingStatus, error)
}

// Store is everything the application persists.
type Store interface {
	job.Store
	VideoStore
	TranscriptStore
	ChunkStore
	Ping(ctx context.Context) error
}
