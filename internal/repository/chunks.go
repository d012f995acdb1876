package repository

import (
	"context"
	"fmt"

	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) ReplaceChunks(ctx context.Context, videoID string, chunks []models.TranscriptChunk) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM transcript_chunks WHERE video_id = $1`, videoID); err != nil {
			return fmt.Errorf("failed to clear chunks: %w", err)
		}

		batch := &pgx.Batch{}
		for _, c := range chunks {
			batch.Queue(`
				INSERT INTO transcript_chunks (video_id, chunk_index, content, embedding)
				VALUES ($1, $2, $3, $4)
			`, videoID, c.ChunkIndex, c.Content, c.Embedding)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
		return nil
	})
}

func (r *Repository) ListChunkVectors(ctx context.Context) ([]models.ChunkVector, error) {
	query := `
		SELECT c.video_id, c.chunk_index, c.content, c.embedding, v.video_title, v.channel_name
		FROM transcript_chunks c
		JOIN videos v ON v.video_id = c.video_id
		ORDER BY c.video_id, c.chunk_index
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var vectors []models.ChunkVector
	for rows.Next() {
		var cv models.ChunkVector
		if err := rows.Scan(&cv.VideoID, &cv.ChunkIndex, &cv.Content, &cv.Embedding, &cv.VideoTitle, &cv.ChannelName); err != nil {
			return nil, err
		}
		vectors = append(vectors, cv)
	}
	return vectors, rows.Err()
}

func (r *Repository) VideosWithoutChunks(ctx context.Context) ([]string, error) {
	query := `
		SELECT t.video_id
		FROM transcripts t
		WHERE NOT EXISTS (SELECT 1 FROM transcript_chunks c WHERE c.video_id = t.video_id)
		ORDER BY t.indexed_at
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unembedded videos: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) EmbeddingStatus(ctx context.Context) (*models.EmbeddingStatus, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM transcripts),
			(SELECT COUNT(DISTINCT video_id) FROM transcript_chunks),
			(SELECT COUNT(*) FROM transcript_chunks)
	`

	var s models.EmbeddingStatus
	if err := r.db.Pool().QueryRow(ctx, query).Scan(&s.TotalTranscripts, &s.EmbeddedVideos, &s.TotalChunks); err != nil {
		return nil, fmt.Errorf("failed to get embedding status: %w", err)
	}
	s.PendingVideos = max(s.TotalTranscripts-s.EmbeddedVideos, 0)
	return &s, nil
}
