package http

import (
	"net/http"
	"strconv"

	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/fedutinova/vidshelf/internal/validation"
	"github.com/go-chi/chi/v5"
)

const (
	defaultSemanticK = 10
	maxSemanticK     = 50
)

func (h *Handlers) semanticSearch(w http.ResponseWriter, r *http.Request) {
	q, err := validation.ValidateSearchQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	k := min(max(queryInt(r, "k", defaultSemanticK), 1), maxSemanticK)
	grouped, _ := strconv.ParseBool(r.URL.Query().Get("group"))

	results, err := h.Indexer.Search(r.Context(), q, k, grouped)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if results == nil {
		results = []models.ChunkMatch{}
	}
	writeOK(w, http.StatusOK, map[string]any{"query": q, "results": results, "count": len(results)})
}

func (h *Handlers) embeddingStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Indexer.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"status": st, "enabled": h.Indexer.Enabled()})
}

func (h *Handlers) backfillEmbeddings(w http.ResponseWriter, r *http.Request) {
	res, err := h.Indexer.Backfill(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"embedded": res.Embedded,
		"total":    res.Total,
		"errors":   res.Errors,
	})
}

func (h *Handlers) embedVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	n, err := h.Indexer.IndexVideo(r.Context(), videoID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"videoId": videoID, "chunks": n})
}
