package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fedutinova/vidshelf/internal/bookmarks"
	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/fedutinova/vidshelf/internal/validation"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func (h *Handlers) listVideos(w http.ResponseWriter, r *http.Request) {
	page := max(queryInt(r, "page", 1), 1)
	perPage := min(max(queryInt(r, "per_page", defaultPerPage), 1), maxPerPage)

	total, err := h.Store.CountVideos(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	videos, err := h.Store.ListVideos(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	writeOK(w, http.StatusOK, map[string]any{
		"videos":     videos,
		"pagination": models.NewPagination(page, perPage, total),
	})
}

func (h *Handlers) createVideo(w http.ResponseWriter, r *http.Request) {
	var req validation.VideoInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.Library.AddVideo(r.Context(), req)
	if err != nil {
		if errors.Is(err, common.ErrVideoExists) && v != nil {
			writeFail(w, http.StatusConflict, "video already exists", map[string]any{"video": v})
			return
		}
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"video": v})
}

func (h *Handlers) getVideo(w http.ResponseWriter, r *http.Request) {
	v, err := h.Store.GetVideo(r.Context(), chi.URLParam(r, "videoId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"video": v})
}

func (h *Handlers) deleteVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	if err := h.Library.DeleteVideo(r.Context(), videoID); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "video " + videoID + " deleted"})
}

func (h *Handlers) chromeBookmarks() ([]models.Video, error) {
	path := h.Config.ChromeBookmarks
	if path == "" {
		var err error
		if path, err = bookmarks.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return bookmarks.Load(path)
}

func (h *Handlers) listChromeBookmarks(w http.ResponseWriter, r *http.Request) {
	videos, err := h.chromeBookmarks()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	writeOK(w, http.StatusOK, map[string]any{"bookmarks": videos, "count": len(videos)})
}

func (h *Handlers) importChromeBookmarks(w http.ResponseWriter, r *http.Request) {
	videos, err := h.chromeBookmarks()
	if err != nil {
		writeError(w, r, err)
		return
	}
	res := h.Library.ImportVideos(r.Context(), videos)
	writeOK(w, http.StatusOK, map[string]any{
		"imported": res.Imported,
		"skipped":  res.Skipped,
		"errors":   res.Errors,
		"total":    res.Total,
	})
}
