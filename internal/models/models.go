package models

import (
	"time"
)

type Video struct {
	ID              int64     `json:"id"`
	VideoID         string    `json:"videoId"`
	VideoTitle      string    `json:"videoTitle"`
	VideoURL        string    `json:"videoUrl"`
	ChannelID       string    `json:"channelId,omitempty"`
	ChannelIDSource string    `json:"channelIdSource,omitempty"`
	ChannelName     string    `json:"channelName,omitempty"`
	ChannelURL      string    `json:"channelUrl,omitempty"`
	ScrapedAt       string    `json:"scrapedAt,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`

	// populated by list queries only
	HasTranscript       *bool   `json:"hasTranscript,omitempty"`
	HasSummary          *bool   `json:"hasSummary,omitempty"`
	TranscriptJobStatus *string `json:"transcriptJobStatus,omitempty"`
}

// SourceURL is the address handed to the audio extractor.
func (v *Video) SourceURL() string {
	if v.VideoURL != "" {
		return v.VideoURL
	}
	if v.VideoID == "" {
		return ""
	}
	return WatchURL(v.VideoID)
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

type Transcript struct {
	ID        int64     `json:"id"`
	VideoID   string    `json:"videoId"`
	Content   string    `json:"content"`
	Summary   *string   `json:"summary"`
	IndexedAt time.Time `json:"indexedAt"`

	// populated by search queries
	VideoTitle string `json:"videoTitle,omitempty"`
	VideoURL   string `json:"videoUrl,omitempty"`
}

type TranscriptChunk struct {
	VideoID    string    `json:"videoId"`
	ChunkIndex int       `json:"chunkIndex"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
}

// ChunkVector is a stored chunk joined with its video metadata.
type ChunkVector struct {
	TranscriptChunk
	VideoTitle  string
	ChannelName string
}

type ChunkMatch struct {
	VideoID     string  `json:"videoId"`
	VideoTitle  string  `json:"videoTitle"`
	ChannelName string  `json:"channelName,omitempty"`
	ChunkIndex  int     `json:"chunkIndex"`
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
}

type EmbeddingStatus struct {
	TotalTranscripts int `json:"totalTranscripts"`
	EmbeddedVideos   int `json:"embeddedVideos"`
	PendingVideos    int `json:"pendingVideos"`
	TotalChunks      int `json:"totalChunks"`
}

type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"perPage"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}

func NewPagination(page, perPage, total int) Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}

const (
	SummaryStructured = "structured"
	SummaryNarrative  = "narrative"
)

// VideoSummary is a stored summary with the video it belongs to.
type VideoSummary struct {
	VideoID     string `json:"videoId"`
	VideoTitle  string `json:"videoTitle"`
	ChannelName string `json:"channelName,omitempty"`
	Summary     string `json:"summary"`
}

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=8000"`
}

// Context sources of a chat answer.
const (
	ChatContextChunks    = "chunks"
	ChatContextSummaries = "summaries"
	ChatContextNone      = "none"
)

type ChatSource struct {
	VideoID    string `json:"videoId"`
	VideoTitle string `json:"videoTitle"`
}

type ChatAnswer struct {
	Answer        string       `json:"answer"`
	Model         string       `json:"model"`
	ContextSource string       `json:"contextSource"`
	Sources       []ChatSource `json:"sources"`
}
