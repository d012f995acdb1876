package bookmarks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBookmarks = `{
  "checksum": "abc",
  "roots": {
    "bookmark_bar": {
      "type": "folder",
      "name": "Bookmarks bar",
      "children": [
        {"type": "url", "name": "Go Concurrency Patterns", "url": "https://www.youtube.com/watch?v=f6kdp27TYZs", "date_added": "13350000000000000"},
        {"type": "url", "name": "Go blog", "url": "https://go.dev/blog"},
        {"type": "folder", "name": "talks", "children": [
          {"type": "url", "name": "", "url": "https://youtu.be/oV9rvDllKEg?t=42"},
          {"type": "url", "name": "Duplicate", "url": "https://www.youtube.com/watch?list=PL1&v=f6kdp27TYZs"}
        ]}
      ]
    },
    "other": {
      "type": "folder",
      "children": [
        {"type": "url", "name": "Channel page", "url": "https://www.youtube.com/@golang"},
        {"type": "url", "name": "Short", "url": "https://www.youtube.com/shorts/aaaaaaaaaaa"}
      ]
    },
    "sync_transaction_version": "1"
  },
  "version": 1
}`

func TestParse(t *testing.T) {
	videos, err := Parse([]byte(sampleBookmarks))
	require.NoError(t, err)
	require.Len(t, videos, 3)

	assert.Equal(t, "f6kdp27TYZs", videos[0].VideoID)
	assert.Equal(t, "Go Concurrency Patterns", videos[0].VideoTitle)
	assert.Equal(t, SourceChromeBookmark, videos[0].ChannelIDSource)
	assert.Equal(t, "2024-01-17T21:20:00Z", videos[0].ScrapedAt)

	assert.Equal(t, "oV9rvDllKEg", videos[1].VideoID)
	assert.Equal(t, "Unknown Title", videos[1].VideoTitle)
	assert.Empty(t, videos[1].ScrapedAt)

	assert.Equal(t, "aaaaaaaaaaa", videos[2].VideoID)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	assert.Error(t, err)
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct{ url, want string }{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ?start=10", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=x&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=short", ""},
		{"https://vimeo.com/12345", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractVideoID(tt.url), tt.url)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bookmarks")
	require.NoError(t, os.WriteFile(path, []byte(sampleBookmarks), 0o644))

	videos, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, videos, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, common.IsNotFound(err))
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Skipf("unsupported platform: %v", err)
	}
	assert.Equal(t, "Bookmarks", filepath.Base(p))
}
