package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/promptfolio/api/internal/linkpreview"
)

const maxPreviewRequestBody = 16 << 10

type linkPreviewRequest struct {
	URL string `json:"url"`
}

// LinkPreview handles POST /api/link-preview.
func (h *Handler) LinkPreview(w http.ResponseWriter, r *http.Request) {
	var req linkPreviewRequest
	body := http.MaxBytesReader(w, r.Body, maxPreviewRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	record, err := h.previews.Get(r.Context(), url)
	if err != nil {
		attrs := []any{"url", url, "error", err}
		if errors.Is(err, linkpreview.ErrTimeout) {
			attrs = append(attrs, "timeout", true)
		}
		slog.WarnContext(r.Context(), "link preview failed", attrs...)
		writeError(w, http.StatusInternalServerError, msgPreviewFailed)
		return
	}

	writeJSON(w, http.StatusOK, record)
}
