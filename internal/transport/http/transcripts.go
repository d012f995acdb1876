package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/fedutinova/vidshelf/internal/validation"
	"github.com/go-chi/chi/v5"
)

const (
	maxSearchResults = 20
	archiveURLTTL    = 15 * time.Minute
)

func (h *Handlers) getTranscript(w http.ResponseWriter, r *http.Request) {
	tr, err := h.Store.GetTranscript(r.Context(), chi.URLParam(r, "videoId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"transcript": tr})
}

func (h *Handlers) getTranscriptStatus(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	tr, err := h.Store.GetTranscript(r.Context(), videoID)
	if err != nil && !common.IsNotFound(err) {
		writeError(w, r, err)
		return
	}

	var indexedAt *time.Time
	if tr != nil {
		indexedAt = &tr.IndexedAt
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"videoId":   videoID,
		"indexed":   tr != nil,
		"indexedAt": indexedAt,
	})
}

func (h *Handlers) getTranscriptArchive(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeError(w, r, fmt.Errorf("%w: transcript archive is disabled", common.ErrConfiguration))
		return
	}
	videoID := chi.URLParam(r, "videoId")
	if _, err := h.Store.GetTranscript(r.Context(), videoID); err != nil {
		writeError(w, r, err)
		return
	}
	url, err := h.Archive.URL(r.Context(), videoID, archiveURLTTL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"url": url, "expiresIn": int(archiveURLTTL.Seconds())})
}

func (h *Handlers) deleteTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	if err := h.Library.ResetTranscript(r.Context(), videoID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "transcript for " + videoID + " deleted"})
}

func (h *Handlers) searchTranscripts(w http.ResponseWriter, r *http.Request) {
	q, err := validation.ValidateSearchQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.Store.SearchTranscripts(r.Context(), q, maxSearchResults)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if results == nil {
		results = []models.Transcript{}
	}
	writeOK(w, http.StatusOK, map[string]any{"query": q, "results": results, "count": len(results)})
}

func (h *Handlers) generateSummary(w http.ResponseWriter, r *http.Request) {
	var req validation.SummaryInput
	// an empty body means the default style
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	tr, err := h.Library.Summarize(r.Context(), chi.URLParam(r, "videoId"), req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"transcript": tr})
}
