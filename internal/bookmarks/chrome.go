// Package bookmarks reads YouTube links out of a Chrome "Bookmarks" file.
package bookmarks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/models"
)

const SourceChromeBookmark = "chrome_bookmark"

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
}

// chromeEpochOffset converts Chrome's date_added (microseconds since
// 1601-01-01 UTC) to Unix microseconds.
const chromeEpochOffset = 11644473600 * 1000 * 1000

type node struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	DateAdded string `json:"date_added"`
	Children  []node `json:"children"`
}

type file struct {
	Roots map[string]json.RawMessage `json:"roots"`
}

// DefaultPath returns where Chrome keeps the default profile's bookmarks on this OS.
func DefaultPath() (string, error) {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Google", "Chrome", "User Data", "Default", "Bookmarks"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Bookmarks"), nil
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "google-chrome", "Default", "Bookmarks"), nil
	default:
		return "", fmt.Errorf("%w: chrome bookmarks unsupported on %s", common.ErrConfiguration, runtime.GOOS)
	}
}

// ExtractVideoID returns the 11-character YouTube id in rawURL, or "".
func ExtractVideoID(rawURL string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// Load parses the bookmarks file at path and returns one video per distinct
// YouTube id, in file order.
func Load(path string) ([]models.Video, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: chrome bookmarks file not found at %s", common.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]models.Video, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks file: %w", err)
	}

	// map iteration order is random; walk roots in a stable order
	names := make([]string, 0, len(f.Roots))
	for name := range f.Roots {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]struct{})
	var out []models.Video
	for _, name := range names {
		var root node
		if err := json.Unmarshal(f.Roots[name], &root); err != nil {
			// "sync_transaction_version" and friends are not folders
			continue
		}
		walk(root, func(n node) {
			id := ExtractVideoID(n.URL)
			if id == "" {
				return
			}
			if _, dup := seen[id]; dup {
				return
			}
			seen[id] = struct{}{}
			out = append(out, toVideo(id, n))
		})
	}
	return out, nil
}

func walk(n node, visit func(node)) {
	switch n.Type {
	case "url":
		if strings.Contains(n.URL, "youtube.com") || strings.Contains(n.URL, "youtu.be") {
			visit(n)
		}
	case "folder":
		for _, c := range n.Children {
			walk(c, visit)
		}
	}
}

func toVideo(id string, n node) models.Video {
	title := strings.TrimSpace(n.Name)
	if title == "" {
		title = "Unknown Title"
	}
	return models.Video{
		VideoID:         id,
		VideoTitle:      title,
		VideoURL:        n.URL,
		ChannelIDSource: SourceChromeBookmark,
		ScrapedAt:       chromeTime(n.DateAdded),
	}
}

func chromeTime(raw string) string {
	us, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || us <= 0 {
		return ""
	}
	return time.UnixMicro(us - chromeEpochOffset).UTC().Format(time.RFC3339)
}
