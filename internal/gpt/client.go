package gpt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// embedBatchSize is the largest input list sent in one embeddings call.
const embedBatchSize = 100

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	EmbeddingDim   int
}

// Client talks to any OpenAI-compatible endpoint (Gemini by default).
type Client struct {
	openAI         *openai.Client
	model          string
	embeddingModel string
	embeddingDim   int
}

type ProcessResult struct {
	Content          string
	Model            string
	TokensUsed       int
	ProcessingTimeMs int
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		openAI:         openai.NewClientWithConfig(oc),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		embeddingDim:   cfg.EmbeddingDim,
	}
}

// Summarize asks the chat model for a summary of a transcript.
// style is "structured" or "narrative".
func (c *Client) Summarize(ctx context.Context, title, transcript, style string) (*ProcessResult, error) {
	start := time.Now()

	resp, err := c.openAI.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(style)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(title, transcript)},
		},
	})
	if err != nil {
		slog.Error("LLM API error", "error", err, "model", c.model)
		return nil, fmt.Errorf("LLM API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from LLM")
	}

	content := resp.Choices[0].Message.Content
	slog.Info("received summary from LLM",
		"model", resp.Model,
		"style", style,
		"tokens_used", resp.Usage.TotalTokens,
		"response_length", len(content))

	return &ProcessResult{
		Content:          content,
		Model:            resp.Model,
		TokensUsed:       resp.Usage.TotalTokens,
		ProcessingTimeMs: int(time.Since(start).Milliseconds()),
	}, nil
}

// Embed returns one vector per input, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += embedBatchSize {
		batch := texts[start:min(start+embedBatchSize, len(texts))]

		resp, err := c.openAI.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      batch,
			Model:      openai.EmbeddingModel(c.embeddingModel),
			Dimensions: c.embeddingDim,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding API error: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(resp.Data), len(batch))
		}

		ordered := make([][]float32, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("embedding API returned out-of-range index %d", d.Index)
			}
			ordered[d.Index] = d.Embedding
		}
		vectors = append(vectors, ordered...)
	}

	return vectors, nil
}
