package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) CreateTranscript(ctx context.Context, videoID, content string) (*models.Transcript, error) {
	query := `
		INSERT INTO transcripts (video_id, content, indexed_at)
		VALUES ($1, $2, NOW())
		RETURNING id, video_id, content, summary, indexed_at
	`

	var t models.Transcript
	err := r.db.Pool().QueryRow(ctx, query, videoID, content).Scan(
		&t.ID, &t.VideoID, &t.Content, &t.Summary, &t.IndexedAt,
	)
	if err != nil {
		switch pgCode(err) {
		case pgUniqueViolation:
			return nil, common.ErrTranscriptExists
		case pgForeignKeyViolation:
			return nil, common.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}
	return &t, nil
}

func (r *Repository) GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	query := `
		SELECT id, video_id, content, summary, indexed_at
		FROM transcripts
		WHERE video_id = $1
	`

	var t models.Transcript
	err := r.db.Pool().QueryRow(ctx, query, videoID).Scan(
		&t.ID, &t.VideoID, &t.Content, &t.Summary, &t.IndexedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, common.ErrTranscriptNotFound
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return &t, nil
}

func (r *Repository) UpdateSummary(ctx context.Context, videoID, summary string) error {
	tag, err := r.db.Pool().Exec(ctx, `UPDATE transcripts SET summary = $2 WHERE video_id = $1`, videoID, summary)
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrTranscriptNotFound
	}
	return nil
}

func (r *Repository) DeleteTranscript(ctx context.Context, videoID string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM transcript_chunks WHERE video_id = $1`, videoID); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM transcripts WHERE video_id = $1`, videoID)
		if err != nil {
			return fmt.Errorf("failed to delete transcript: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return common.ErrTranscriptNotFound
		}
		return nil
	})
}

func (r *Repository) SearchTranscripts(ctx context.Context, query string, limit int) ([]models.Transcript, error) {
	sql := `
		SELECT t.id, t.video_id, t.content, t.summary, t.indexed_at, v.video_title, v.video_url
		FROM transcripts t
		JOIN videos v ON v.video_id = t.video_id
		WHERE t.content ILIKE $1 ESCAPE '\'
		ORDER BY t.indexed_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, sql, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search transcripts: %w", err)
	}
	defer rows.Close()

	var results []models.Transcript
	for rows.Next() {
		var t models.Transcript
		if err := rows.Scan(&t.ID, &t.VideoID, &t.Content, &t.Summary, &t.IndexedAt, &t.VideoTitle, &t.VideoURL); err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

func (r *Repository) ListSummaries(ctx context.Context) ([]models.VideoSummary, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT t.video_id, v.video_title, v.channel_name, t.summary
		FROM transcripts t
		JOIN videos v ON v.video_id = t.video_id
		WHERE t.summary IS NOT NULL AND t.summary <> ''
		ORDER BY t.indexed_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var out []models.VideoSummary
	for rows.Next() {
		var s models.VideoSummary
		if err := rows.Scan(&s.VideoID, &s.VideoTitle, &s.ChannelName, &s.Summary); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
