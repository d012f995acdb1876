package http

import (
	"fmt"
	"net/http"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/validation"
)

func (h *Handlers) chat(w http.ResponseWriter, r *http.Request) {
	if h.Chat == nil {
		writeError(w, r, fmt.Errorf("%w: chat is not configured", common.ErrConfiguration))
		return
	}

	var in validation.ChatInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	ans, err := h.Chat.Ask(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"chat": ans})
}
