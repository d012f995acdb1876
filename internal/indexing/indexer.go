// Package indexing turns stored transcripts into embedded chunks and searches them.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/fedutinova/vidshelf/internal/repository"
	"github.com/patrickmn/go-cache"
)

var ErrBackfillRunning = errors.New("embedding backfill already running")

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Store interface {
	repository.ChunkStore
	GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
}

type Indexer struct {
	store     Store
	embedder  Embedder
	queries   *cache.Cache
	chunkSize int
	overlap   int

	backfill sync.Mutex
}

type BackfillError struct {
	VideoID string `json:"videoId"`
	Error   string `json:"error"`
}

type BackfillResult struct {
	Embedded int             `json:"embedded"`
	Total    int             `json:"total"`
	Errors   []BackfillError `json:"errors"`
}

// NewIndexer returns an indexer; a nil embedder disables indexing and search.
func NewIndexer(store Store, embedder Embedder) *Indexer {
	return &Indexer{
		store:     store,
		embedder:  embedder,
		queries:   cache.New(30*time.Minute, time.Hour),
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
}

func (i *Indexer) Enabled() bool {
	return i != nil && i.embedder != nil
}

// OnArtifactStored indexes a freshly stored transcript.
func (i *Indexer) OnArtifactStored(ctx context.Context, videoID, text string) error {
	if !i.Enabled() {
		slog.Debug("embeddings disabled, skipping indexing", "video_id", videoID)
		return nil
	}
	n, err := i.IndexText(ctx, videoID, text)
	if err != nil {
		return err
	}
	slog.Info("transcript indexed", "video_id", videoID, "chunks", n)
	return nil
}

// IndexText replaces the chunks of a video with freshly embedded ones.
func (i *Indexer) IndexText(ctx context.Context, videoID, text string) (int, error) {
	if !i.Enabled() {
		return 0, common.ErrNoEmbedder
	}

	texts := Chunk(text, i.chunkSize, i.overlap)
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	chunks := make([]models.TranscriptChunk, len(texts))
	for n := range texts {
		chunks[n] = models.TranscriptChunk{
			VideoID:    videoID,
			ChunkIndex: n,
			Content:    texts[n],
			Embedding:  vectors[n],
		}
	}
	if err := i.store.ReplaceChunks(ctx, videoID, chunks); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}
	return len(chunks), nil
}

func (i *Indexer) IndexVideo(ctx context.Context, videoID string) (int, error) {
	t, err := i.store.GetTranscript(ctx, videoID)
	if err != nil {
		return 0, err
	}
	return i.IndexText(ctx, videoID, t.Content)
}

// Backfill indexes every transcript that has no chunks yet.
// Only one backfill runs at a time.
func (i *Indexer) Backfill(ctx context.Context) (*BackfillResult, error) {
	if !i.Enabled() {
		return nil, common.ErrNoEmbedder
	}
	if !i.backfill.TryLock() {
		return nil, ErrBackfillRunning
	}
	defer i.backfill.Unlock()

	ids, err := i.store.VideosWithoutChunks(ctx)
	if err != nil {
		return nil, err
	}

	res := &BackfillResult{Total: len(ids), Errors: []BackfillError{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := i.IndexVideo(ctx, id)
		if err != nil {
			slog.Error("failed to embed video", "video_id", id, "error", err)
			res.Errors = append(res.Errors, BackfillError{VideoID: id, Error: err.Error()})
			continue
		}
		if n > 0 {
			res.Embedded++
		}
	}
	return res, nil
}

func (i *Indexer) Status(ctx context.Context) (*models.EmbeddingStatus, error) {
	return i.store.EmbeddingStatus(ctx)
}

// Search returns the k chunks most similar to query. With grouped set,
// each video contributes only its best chunk.
func (i *Indexer) Search(ctx context.Context, query string, k int, grouped bool) ([]models.ChunkMatch, error) {
	if !i.Enabled() {
		return nil, common.ErrNoEmbedder
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", common.ErrBadRequest)
	}

	vectors, err := i.store.ListChunkVectors(ctx)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return []models.ChunkMatch{}, nil
	}

	qvec, err := i.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}

	matches := make([]models.ChunkMatch, 0, len(vectors))
	for _, v := range vectors {
		matches = append(matches, models.ChunkMatch{
			VideoID:     v.VideoID,
			VideoTitle:  v.VideoTitle,
			ChannelName: v.ChannelName,
			ChunkIndex:  v.ChunkIndex,
			Content:     v.Content,
			Score:       cosine(qvec, v.Embedding),
		})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	results := make([]models.ChunkMatch, 0, k)
	seen := make(map[string]bool)
	for _, m := range matches {
		if len(results) == k {
			break
		}
		if grouped {
			if seen[m.VideoID] {
				continue
			}
			seen[m.VideoID] = true
		}
		results = append(results, m)
	}
	return results, nil
}

func (i *Indexer) queryVector(ctx context.Context, query string) ([]float32, error) {
	if v, ok := i.queries.Get(query); ok {
		return v.([]float32), nil
	}
	vecs, err := i.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, errors.New("embedder returned no query vector")
	}
	i.queries.Set(query, vecs[0], cache.DefaultExpiration)
	return vecs[0], nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for n := range a {
		x, y := float64(a[n]), float64(b[n])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
