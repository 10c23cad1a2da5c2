package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leca/photex/internal/imageproc"
)

// GetObject handles GET /objects/*, serving the stored bytes behind an image
// URL.
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	data, err := h.Catalog.OpenObject(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", imageproc.ContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write object", "key", key, "error", err)
	}
}
