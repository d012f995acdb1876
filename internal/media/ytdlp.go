// Package media extracts an audio track from a video page URL with yt-dlp.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ExtractError carries the yt-dlp diagnostic that explains a failed download.
type ExtractError struct {
	Message  string
	ExitCode int
	Err      error
}

func (e *ExtractError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("yt-dlp exited with code %d", e.ExitCode)
}

func (e *ExtractError) Unwrap() error { return e.Err }

type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// YTDLP downloads the best audio stream and converts it to 192 kbps mp3.
type YTDLP struct {
	binary         string
	ffmpegLocation string
	runner         commandRunner
	glob           func(pattern string) ([]string, error)
	stat           func(name string) (os.FileInfo, error)
}

func NewYTDLP(binary, ffmpegLocation string) *YTDLP {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLP{
		binary:         binary,
		ffmpegLocation: ffmpegLocation,
		runner:         &execRunner{},
		glob:           filepath.Glob,
		stat:           os.Stat,
	}
}

// Extract writes the audio file into dir and returns its path.
func (y *YTDLP) Extract(ctx context.Context, sourceURL, dir string) (string, error) {
	if sourceURL == "" {
		return "", errors.New("no source URL to download")
	}

	args := []string{
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--print", "after_move:filepath",
		"--no-simulate",
	}
	if y.ffmpegLocation != "" {
		args = append(args, "--ffmpeg-location", y.ffmpegLocation)
	}
	args = append(args, sourceURL)

	res, err := y.runner.Run(ctx, y.binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("audio extraction interrupted: %w", ctxErr)
		}
		return "", &ExtractError{Message: diagnostic(res.Stderr), ExitCode: res.ExitCode, Err: err}
	}

	path, err := y.locateOutput(res.Stdout, dir)
	if err != nil {
		return "", err
	}
	if err := checkAudio(path); err != nil {
		return "", err
	}
	return path, nil
}

func (y *YTDLP) locateOutput(stdout, dir string) (string, error) {
	if path := lastLine(stdout); path != "" {
		if _, err := y.stat(path); err == nil {
			return path, nil
		}
	}

	matches, err := y.glob(filepath.Join(dir, "*.mp3"))
	if err != nil {
		return "", fmt.Errorf("failed to look for extracted audio: %w", err)
	}
	if len(matches) == 0 {
		return "", errors.New("audio file not found after download")
	}
	return matches[0], nil
}

func checkAudio(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to inspect extracted audio: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "audio/") && !strings.HasPrefix(mtype.String(), "video/") {
		return fmt.Errorf("extracted file is not audio (%s)", mtype.String())
	}
	return nil
}

// diagnostic picks the most useful stderr line, preferring yt-dlp's ERROR lines.
func diagnostic(stderr string) string {
	var last string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
		last = line
	}
	return last
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
