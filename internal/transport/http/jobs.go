package http

import (
	"errors"
	"net/http"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/job"
	"github.com/fedutinova/vidshelf/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handlers) startTranscription(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, chi.URLParam(r, "videoId"), job.KindTranscribe)
}

func (h *Handlers) startJob(w http.ResponseWriter, r *http.Request) {
	var req validation.StartJobInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}
	h.start(w, r, req.TargetID, job.Kind(req.Kind))
}

func (h *Handlers) start(w http.ResponseWriter, r *http.Request, targetID string, kind job.Kind) {
	j, err := h.Jobs.StartJob(r.Context(), targetID, kind)
	if err != nil {
		if errors.Is(err, common.ErrJobActive) && j != nil {
			writeFail(w, http.StatusConflict, err.Error(), map[string]any{"job": j})
			return
		}
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusAccepted, map[string]any{"job": j})
}

func (h *Handlers) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "bad id", nil)
		return
	}
	j, err := h.Jobs.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"job": j})
}

func (h *Handlers) getActiveJob(w http.ResponseWriter, r *http.Request) {
	kind := job.KindTranscribe
	if k := r.URL.Query().Get("kind"); k != "" {
		kind = job.Kind(k)
	}
	j, err := h.Jobs.GetActiveJobForTarget(r.Context(), chi.URLParam(r, "videoId"), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// j may be nil; the client sees "job": null
	writeOK(w, http.StatusOK, map[string]any{"job": j})
}
