package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
)

// TranscriptArchive keeps a plain-text copy of every stored transcript in
// object storage. It is registered as a post-transcription hook.
type TranscriptArchive struct {
	store Storage
}

func NewTranscriptArchive(store Storage) *TranscriptArchive {
	return &TranscriptArchive{store: store}
}

func archiveKey(videoID string) string {
	return fmt.Sprintf("transcripts/%s.txt", videoID)
}

func (a *TranscriptArchive) OnArtifactStored(ctx context.Context, videoID, text string) error {
	_, err := a.store.PutObject(ctx, archiveKey(videoID), strings.NewReader(text), "text/plain; charset=utf-8")
	if err != nil {
		return fmt.Errorf("archive transcript %s: %w", videoID, err)
	}
	return nil
}

// Read returns the archived text, or ErrFileNotFound.
func (a *TranscriptArchive) Read(ctx context.Context, videoID string) (string, error) {
	rc, _, err := a.store.GetObject(ctx, archiveKey(videoID))
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read archived transcript %s: %w", videoID, err)
	}
	return string(b), nil
}

func (a *TranscriptArchive) URL(ctx context.Context, videoID string, ttl time.Duration) (string, error) {
	return a.store.GetPresignedURL(ctx, archiveKey(videoID), ttl)
}

// Remove deletes the archived copy. A missing copy is not an error.
func (a *TranscriptArchive) Remove(ctx context.Context, videoID string) error {
	err := a.store.DeleteObject(ctx, archiveKey(videoID))
	if err != nil && !common.IsNotFound(err) {
		return err
	}
	return nil
}
