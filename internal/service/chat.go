package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/gpt"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/fedutinova/vidshelf/internal/validation"
)

// chatContextChunks is how many transcript chunks back one answer.
const chatContextChunks = 8

const emptyKnowledge = "No transcripts are available in the knowledge base yet."

type ChunkSearcher interface {
	Search(ctx context.Context, query string, k int, grouped bool) ([]models.ChunkMatch, error)
}

type SummaryLister interface {
	ListSummaries(ctx context.Context) ([]models.VideoSummary, error)
}

type Chatter interface {
	Chat(ctx context.Context, knowledge string, history []models.ChatMessage, message string) (*gpt.ProcessResult, error)
}

// Assistant answers questions over the transcript library. Context comes from
// semantic search; stored summaries are used when search is unavailable or empty.
type Assistant struct {
	search    ChunkSearcher
	summaries SummaryLister
	chat      Chatter
}

// NewAssistant accepts a nil search and chat. Without chat every question
// reports a configuration error.
func NewAssistant(search ChunkSearcher, summaries SummaryLister, chat Chatter) *Assistant {
	return &Assistant{search: search, summaries: summaries, chat: chat}
}

func (a *Assistant) Ask(ctx context.Context, in validation.ChatInput) (*models.ChatAnswer, error) {
	in.Message = strings.TrimSpace(in.Message)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if a.chat == nil {
		return nil, fmt.Errorf("%w: LLM_API_KEY is not set", common.ErrConfiguration)
	}

	knowledge, source, sources, err := a.knowledge(ctx, in.Message)
	if err != nil {
		return nil, err
	}

	res, err := a.chat.Chat(ctx, knowledge, in.History, in.Message)
	if err != nil {
		return nil, err
	}

	slog.Info("chat answered", "context", source, "sources", len(sources), "tokens_used", res.TokensUsed)
	return &models.ChatAnswer{
		Answer:        res.Content,
		Model:         res.Model,
		ContextSource: source,
		Sources:       sources,
	}, nil
}

func (a *Assistant) knowledge(ctx context.Context, question string) (string, string, []models.ChatSource, error) {
	if a.search != nil {
		matches, err := a.search.Search(ctx, question, chatContextChunks, false)
		switch {
		case err != nil:
			slog.Debug("chat falls back to summaries", "error", err)
		case len(matches) > 0:
			parts := make([]string, 0, len(matches))
			for _, m := range matches {
				parts = append(parts, fmt.Sprintf("=== Video: %s ===\n%s", titleOr(m.VideoTitle), m.Content))
			}
			return strings.Join(parts, "\n\n"), models.ChatContextChunks, sourcesOf(matches), nil
		}
	}

	summaries, err := a.summaries.ListSummaries(ctx)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to load summaries: %w", err)
	}
	if len(summaries) == 0 {
		return emptyKnowledge, models.ChatContextNone, []models.ChatSource{}, nil
	}

	parts := make([]string, 0, len(summaries))
	sources := make([]models.ChatSource, 0, len(summaries))
	for _, s := range summaries {
		parts = append(parts, fmt.Sprintf("Video: %s (by %s)\nSummary: %s", titleOr(s.VideoTitle), channelOr(s.ChannelName), s.Summary))
		sources = append(sources, models.ChatSource{VideoID: s.VideoID, VideoTitle: s.VideoTitle})
	}
	return strings.Join(parts, "\n\n"), models.ChatContextSummaries, sources, nil
}

// sourcesOf lists each matched video once, in rank order.
func sourcesOf(matches []models.ChunkMatch) []models.ChatSource {
	seen := make(map[string]bool, len(matches))
	out := make([]models.ChatSource, 0, len(matches))
	for _, m := range matches {
		if seen[m.VideoID] {
			continue
		}
		seen[m.VideoID] = true
		out = append(out, models.ChatSource{VideoID: m.VideoID, VideoTitle: m.VideoTitle})
	}
	return out
}

func titleOr(title string) string {
	if title == "" {
		return "Unknown"
	}
	return title
}

func channelOr(name string) string {
	if name == "" {
		return "unknown channel"
	}
	return name
}
