package repository

import (
	"context"
	"fmt"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/models"
)

const videoColumns = `id, video_id, video_title, video_url, channel_id, channel_id_source, channel_name, channel_url, scraped_at, created_at`

func (r *Repository) CreateVideo(ctx context.Context, v *models.Video) error {
	query := `
		INSERT INTO videos (video_id, video_title, video_url, channel_id, channel_id_source, channel_name, channel_url, scraped_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		v.VideoID,
		v.VideoTitle,
		v.VideoURL,
		v.ChannelID,
		v.ChannelIDSource,
		v.ChannelName,
		v.ChannelURL,
		v.ScrapedAt,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return common.ErrVideoExists
		}
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *Repository) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE video_id = $1`

	var v models.Video
	err := r.db.Pool().QueryRow(ctx, query, videoID).Scan(
		&v.ID,
		&v.VideoID,
		&v.VideoTitle,
		&v.VideoURL,
		&v.ChannelID,
		&v.ChannelIDSource,
		&v.ChannelName,
		&v.ChannelURL,
		&v.ScrapedAt,
		&v.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, common.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &v, nil
}

func (r *Repository) ListVideos(ctx context.Context, limit, offset int) ([]models.Video, error) {
	query := `
		SELECT v.id, v.video_id, v.video_title, v.video_url, v.channel_id, v.channel_id_source,
		       v.channel_name, v.channel_url, v.scraped_at, v.created_at,
		       t.id IS NOT NULL,
		       t.summary IS NOT NULL,
		       (SELECT j.status FROM jobs j
		         WHERE j.video_id = v.video_id AND j.job_type = 'transcribe'
		           AND j.status NOT IN ('completed', 'failed')
		         ORDER BY j.created_at DESC LIMIT 1)
		FROM videos v
		LEFT JOIN transcripts t ON t.video_id = v.video_id
		ORDER BY v.scraped_at DESC, v.created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0, limit)
	for rows.Next() {
		var (
			v                         models.Video
			hasTranscript, hasSummary bool
		)
		err := rows.Scan(
			&v.ID,
			&v.VideoID,
			&v.VideoTitle,
			&v.VideoURL,
			&v.ChannelID,
			&v.ChannelIDSource,
			&v.ChannelName,
			&v.ChannelURL,
			&v.ScrapedAt,
			&v.CreatedAt,
			&hasTranscript,
			&hasSummary,
			&v.TranscriptJobStatus,
		)
		if err != nil {
			return nil, err
		}
		v.HasTranscript = &hasTranscript
		v.HasSummary = &hasSummary
		videos = append(videos, v)
	}

	return videos, rows.Err()
}

func (r *Repository) CountVideos(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM videos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return n, nil
}

func (r *Repository) DeleteVideo(ctx context.Context, videoID string) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM videos WHERE video_id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrVideoNotFound
	}
	return nil
}
