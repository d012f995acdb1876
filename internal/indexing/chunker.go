package indexing

import "strings"

const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
)

var sentenceBreaks = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// Chunk splits text into overlapping windows of at most size runes.
// A window ends on a sentence boundary when one falls in its last 20%.
func Chunk(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	n := len(runes)

	var chunks []string
	start := 0
	for start < n {
		end := min(start+size, n)

		if end < n {
			searchStart := start + size*8/10
			window := string(runes[searchStart:end])
			best := -1
			for _, sep := range sentenceBreaks {
				if pos := strings.LastIndex(window, sep); pos >= 0 {
					// convert the byte offset back to runes
					brk := searchStart + len([]rune(window[:pos])) + len([]rune(sep))
					best = max(best, brk)
				}
			}
			if best > searchStart {
				end = best
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= n {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}
