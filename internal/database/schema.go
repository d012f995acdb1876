package database

import (
	"context"
	"fmt"
	"log/slog"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	id                BIGSERIAL PRIMARY KEY,
	video_id          TEXT NOT NULL UNIQUE,
	video_title       TEXT NOT NULL,
	video_url         TEXT NOT NULL DEFAULT '',
	channel_id        TEXT NOT NULL DEFAULT '',
	channel_id_source TEXT NOT NULL DEFAULT '',
	channel_name      TEXT NOT NULL DEFAULT '',
	channel_url       TEXT NOT NULL DEFAULT '',
	scraped_at        TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transcripts (
	id         BIGSERIAL PRIMARY KEY,
	video_id   TEXT NOT NULL UNIQUE REFERENCES videos(video_id) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	summary    TEXT,
	indexed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transcript_chunks (
	id          BIGSERIAL PRIMARY KEY,
	video_id    TEXT NOT NULL REFERENCES videos(video_id) ON DELETE CASCADE,
	chunk_index INT NOT NULL,
	content     TEXT NOT NULL,
	embedding   REAL[] NOT NULL,
	UNIQUE (video_id, chunk_index)
);

CREATE TABLE IF NOT EXISTS jobs (
	id            UUID PRIMARY KEY,
	video_id      TEXT NOT NULL REFERENCES videos(video_id) ON DELETE CASCADE,
	job_type      TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at  TIMESTAMPTZ,
	CONSTRAINT jobs_error_iff_failed CHECK ((status = 'failed') = (error_message IS NOT NULL)),
	CONSTRAINT jobs_completed_iff_terminal CHECK ((status IN ('completed', 'failed')) = (completed_at IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_jobs_video_type_created ON jobs (video_id, job_type, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_one_active ON jobs (video_id, job_type)
	WHERE status NOT IN ('completed', 'failed');
CREATE INDEX IF NOT EXISTS idx_videos_scraped ON videos (scraped_at DESC, created_at DESC);
`

// Migrate creates the tables if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	slog.Info("database schema ready")
	return nil
}
