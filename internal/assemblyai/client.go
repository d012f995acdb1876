// Package assemblyai submits audio to the AssemblyAI speech-to-text API and waits for the text.
package assemblyai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"resty.dev/v3"
)

const (
	statusQueued     = "queued"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusError      = "error"
)

type Config struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	// RequestTimeout bounds each HTTP call; uploads of long recordings need minutes.
	RequestTimeout time.Duration
}

type Client struct {
	http         *resty.Client
	pollInterval time.Duration
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL          string `json:"audio_url"`
	LanguageDetection bool   `json:"language_detection"`
	Punctuate         bool   `json:"punctuate"`
	FormatText        bool   `json:"format_text"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

type apiError struct {
	Error string `json:"error"`
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("assemblyai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.assemblyai.com"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Minute
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Authorization", cfg.APIKey)
	client.SetTimeout(cfg.RequestTimeout)

	return &Client{http: client, pollInterval: cfg.PollInterval}, nil
}

func (c *Client) Close() {
	c.http.Close()
}

// Transcribe uploads the audio file, submits it and blocks until AssemblyAI
// reports a final status or ctx is done.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	uploadURL, err := c.upload(ctx, audioPath)
	if err != nil {
		return "", err
	}

	id, err := c.submit(ctx, uploadURL)
	if err != nil {
		return "", err
	}
	slog.Debug("assemblyai transcript submitted", "transcript_id", id)

	return c.wait(ctx, id)
}

func (c *Client) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	var result uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(f).
		Post("/v2/upload")
	if err != nil {
		return "", fmt.Errorf("assemblyai upload failed: %w", err)
	}
	if err := decode(resp, "upload", &result); err != nil {
		return "", err
	}
	if result.UploadURL == "" {
		return "", errors.New("assemblyai upload returned no URL")
	}
	return result.UploadURL, nil
}

func (c *Client) submit(ctx context.Context, uploadURL string) (string, error) {
	var result transcriptResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(transcriptRequest{
			AudioURL:          uploadURL,
			LanguageDetection: true,
			Punctuate:         true,
			FormatText:        true,
		}).
		Post("/v2/transcript")
	if err != nil {
		return "", fmt.Errorf("assemblyai submit failed: %w", err)
	}
	if err := decode(resp, "submit", &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("assemblyai submit returned no transcript id")
	}
	return result.ID, nil
}

func (c *Client) wait(ctx context.Context, id string) (string, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("assemblyai transcript %s: %w", id, ctx.Err())
		case <-timer.C:
		}

		var result transcriptResponse
		resp, err := c.http.R().
			SetContext(ctx).
			Get("/v2/transcript/" + id)
		if err != nil {
			return "", fmt.Errorf("assemblyai poll failed: %w", err)
		}
		if err := decode(resp, "poll", &result); err != nil {
			return "", err
		}

		switch result.Status {
		case statusCompleted:
			return result.Text, nil
		case statusError:
			return "", fmt.Errorf("assemblyai transcription failed: %s", result.Error)
		case statusQueued, statusProcessing:
			timer.Reset(c.pollInterval)
		default:
			return "", fmt.Errorf("assemblyai returned unknown status %q", result.Status)
		}
	}
}

// decode checks the status code and parses the JSON body into out.
func decode(resp *resty.Response, op string, out any) error {
	if resp.StatusCode() != 200 {
		return responseError(op, resp)
	}
	if err := json.Unmarshal([]byte(resp.String()), out); err != nil {
		return fmt.Errorf("assemblyai %s: invalid response: %w", op, err)
	}
	return nil
}

func responseError(op string, resp *resty.Response) error {
	var body apiError
	if err := json.Unmarshal([]byte(resp.String()), &body); err == nil && body.Error != "" {
		return fmt.Errorf("assemblyai %s failed (%d): %s", op, resp.StatusCode(), body.Error)
	}
	return fmt.Errorf("assemblyai %s failed (%d): %s", op, resp.StatusCode(), resp.String())
}
