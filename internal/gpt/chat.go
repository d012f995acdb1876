package gpt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/sashabaranov/go-openai"
)

// Chat answers message from knowledge, continuing history. Assistant turns in
// history are sent back with the assistant role.
func (c *Client) Chat(ctx context.Context, knowledge string, history []models.ChatMessage, message string) (*ProcessResult, error) {
	start := time.Now()

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt(knowledge)})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == models.ChatRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	resp, err := c.openAI.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		slog.Error("LLM API error", "error", err, "model", c.model)
		return nil, fmt.Errorf("LLM API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from LLM")
	}

	content := resp.Choices[0].Message.Content
	slog.Info("received chat answer from LLM",
		"model", resp.Model,
		"history", len(history),
		"tokens_used", resp.Usage.TotalTokens)

	return &ProcessResult{
		Content:          content,
		Model:            resp.Model,
		TokensUsed:       resp.Usage.TotalTokens,
		ProcessingTimeMs: int(time.Since(start).Milliseconds()),
	}, nil
}
