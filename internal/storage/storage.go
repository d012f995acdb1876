package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Storage is a flat key/value object store. Keys use forward slashes.
type Storage interface {
	PutObject(ctx context.Context, key string, content io.Reader, contentType string) (*UploadResult, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, string, error)
	GetPresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type UploadResult struct {
	Key  string
	URL  string
	Size int64
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	k := path.Clean(strings.TrimPrefix(key, "/"))
	if k == "." || k == "" || k == ".." || strings.HasPrefix(k, "../") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return k, nil
}
