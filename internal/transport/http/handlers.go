package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fedutinova/vidshelf/internal/auth"
	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/config"
	"github.com/fedutinova/vidshelf/internal/indexing"
	"github.com/fedutinova/vidshelf/internal/memq"
	"github.com/fedutinova/vidshelf/internal/redis"
	"github.com/fedutinova/vidshelf/internal/repository"
	"github.com/fedutinova/vidshelf/internal/service"
	"github.com/fedutinova/vidshelf/internal/storage"
	"github.com/fedutinova/vidshelf/internal/validation"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	Jobs    *service.JobService
	Library *service.Library
	Chat    *service.Assistant
	Store   repository.Store
	Indexer *indexing.Indexer
	// Archive and Redis are nil when not configured.
	Archive *storage.TranscriptArchive
	Q       memq.JobQueue
	Redis   *redis.Service
	Config  config.Config
}

func (h *Handlers) Routers(r chi.Router) {
	// for static file serving for local storage
	if h.Config.StorageMode == "local" || h.Config.StorageMode == "filesystem" {
		r.Get("/files/*", h.serveFiles)
	}

	r.Group(func(r chi.Router) {
		read, write, jobs := passthrough, passthrough, passthrough
		if h.Config.AuthEnabled() {
			r.Use(auth.JWTMiddleware(h.Config.AuthSecret, h.Config.AuthIssuer))
			read = auth.RequirePerm(auth.PermLibraryRead)
			write = auth.RequirePerm(auth.PermLibraryWrite)
			jobs = auth.RequirePerm(auth.PermJobsWrite)
		}

		r.With(jobs).Post("/v1/transcribe/{videoId}", h.startTranscription)
		r.With(jobs).Post("/v1/jobs", h.startJob)
		r.With(read).Get("/v1/jobs/{id}", h.getJob)
		r.With(read).Get("/v1/jobs/by-target/{videoId}", h.getActiveJob)
		r.With(read).Get("/v1/jobs/video/{videoId}", h.getActiveJob)

		r.With(read).Get("/v1/videos", h.listVideos)
		r.With(write).Post("/v1/videos", h.createVideo)
		r.With(read).Get("/v1/videos/{videoId}", h.getVideo)
		r.With(write).Delete("/v1/videos/{videoId}", h.deleteVideo)

		r.With(read).Get("/v1/bookmarks/chrome", h.listChromeBookmarks)
		r.With(write).Post("/v1/bookmarks/chrome/import", h.importChromeBookmarks)

		r.With(read).Get("/v1/transcripts/search", h.searchTranscripts)
		r.With(read).Get("/v1/transcripts/{videoId}", h.getTranscript)
		r.With(read).Get("/v1/transcripts/{videoId}/status", h.getTranscriptStatus)
		r.With(read).Get("/v1/transcripts/{videoId}/archive", h.getTranscriptArchive)
		r.With(write).Delete("/v1/transcripts/{videoId}", h.deleteTranscript)
		r.With(write).Post("/v1/transcripts/{videoId}/summary", h.generateSummary)

		r.With(read).Get("/v1/search/semantic", h.semanticSearch)
		r.With(read).Post("/v1/chat", h.chat)
		r.With(read).Get("/v1/embeddings/status", h.embeddingStatus)
		r.With(write).Post("/v1/embeddings/backfill", h.backfillEmbeddings)
		r.With(write).Post("/v1/embeddings/videos/{videoId}", h.embedVideo)
	})
}

func passthrough(next http.Handler) http.Handler { return next }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

func writeOK(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeFail(w http.ResponseWriter, status int, msg string, extra map[string]any) {
	body := map[string]any{"success": false, "error": msg}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeFail(w, http.StatusBadRequest, "validation failed", map[string]any{"details": verrs})
	case common.IsValidation(err), common.IsBadRequest(err):
		writeFail(w, http.StatusBadRequest, err.Error(), nil)
	case common.IsNotFound(err):
		writeFail(w, http.StatusNotFound, err.Error(), nil)
	case common.IsConflict(err), errors.Is(err, indexing.ErrBackfillRunning):
		writeFail(w, http.StatusConflict, err.Error(), nil)
	case common.IsUnauthorized(err):
		writeFail(w, http.StatusUnauthorized, err.Error(), nil)
	case common.IsUnavailable(err):
		writeFail(w, http.StatusServiceUnavailable, err.Error(), nil)
	case common.IsConfiguration(err):
		slog.Error("configuration error", "path", r.URL.Path, "error", err)
		writeFail(w, http.StatusInternalServerError, err.Error(), nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeFail(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", common.ErrBadRequest)
	}
	return nil
}

func (h *Handlers) serveFiles(w http.ResponseWriter, r *http.Request) {
	filePath := strings.TrimPrefix(r.URL.Path, "/files/")
	if filePath == "" {
		writeFail(w, http.StatusBadRequest, "file path required", nil)
		return
	}

	if strings.Contains(filePath, "..") {
		writeFail(w, http.StatusBadRequest, "invalid file path", nil)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.Config.LocalStorageDir, filepath.FromSlash(filePath)))
}
