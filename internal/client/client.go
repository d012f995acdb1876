// Package client is a small HTTP client for the vidshelf job API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/google/uuid"
	"resty.dev/v3"
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	http *resty.Client
}

// APIError is a non-2xx response. It matches the common sentinel for its
// status code under errors.Is.
type APIError struct {
	StatusCode int
	Message    string
	// Job is set when the server reports an already active job.
	Job *job.Job
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return common.ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return common.ErrUnauthorized
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusConflict:
		return common.ErrConflict
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return common.ErrUnavailable
	default:
		return common.ErrInternal
	}
}

type envelope struct {
	Success    bool               `json:"success"`
	Error      string             `json:"error"`
	Job        *job.Job           `json:"job"`
	Transcript *models.Transcript `json:"transcript"`
	Chat       *models.ChatAnswer `json:"chat"`
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := resty.New()
	c.SetBaseURL(cfg.BaseURL)
	c.SetTimeout(cfg.Timeout)
	c.SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		c.SetHeader("Authorization", "Bearer "+cfg.Token)
	}
	return &Client{http: c}
}

func (c *Client) Close() {
	c.http.Close()
}

// StartTranscription starts a transcribe job. When one is already running the
// returned error is an *APIError carrying that job.
func (c *Client) StartTranscription(ctx context.Context, videoID string) (*job.Job, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Post("/v1/transcribe/" + url.PathEscape(videoID))
	if err != nil {
		return nil, fmt.Errorf("start transcription: %w", err)
	}
	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	return env.Job, nil
}

func (c *Client) GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/v1/jobs/" + id.String())
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	if env.Job == nil {
		return nil, fmt.Errorf("get job %s: empty response", id)
	}
	return env.Job, nil
}

// GetActiveJob returns nil when the video has no running transcription.
func (c *Client) GetActiveJob(ctx context.Context, videoID string) (*job.Job, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/v1/jobs/by-target/" + url.PathEscape(videoID))
	if err != nil {
		return nil, fmt.Errorf("get active job: %w", err)
	}
	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	return env.Job, nil
}

func (c *Client) GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/v1/transcripts/" + url.PathEscape(videoID))
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	if env.Transcript == nil {
		return nil, fmt.Errorf("get transcript %s: empty response", videoID)
	}
	return env.Transcript, nil
}

// Ask sends a question about the transcript library, continuing history.
func (c *Client) Ask(ctx context.Context, message string, history []models.ChatMessage) (*models.ChatAnswer, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"message": message, "history": history}).
		Post("/v1/chat")
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	env, err := decode(resp)
	if err != nil {
		return nil, err
	}
	if env.Chat == nil {
		return nil, errors.New("chat: empty response")
	}
	return env.Chat, nil
}

func decode(resp *resty.Response) (*envelope, error) {
	var env envelope
	body := resp.String()
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		if resp.StatusCode() >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode(), Message: body}
		}
		return nil, fmt.Errorf("invalid response (%d): %w", resp.StatusCode(), err)
	}
	if resp.StatusCode() >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: msg, Job: env.Job}
	}
	return &env, nil
}
