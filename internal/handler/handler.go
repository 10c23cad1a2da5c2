package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leca/photex/internal/api"
	"github.com/leca/photex/internal/catalog"
	"github.com/leca/photex/internal/config"
	"github.com/leca/photex/internal/imageproc"
	"github.com/leca/photex/internal/metadata"
	"github.com/leca/photex/internal/storage"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Catalog *catalog.Service
	Config  *config.Config
}

// pathID parses a positive integer URL parameter, writing a 400 when it is
// malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(w, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeError maps service errors to API error responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, imageproc.ErrWrongFormat),
		errors.Is(err, metadata.ErrUnsupportedTag),
		errors.Is(err, metadata.ErrInvalidValue),
		errors.Is(err, catalog.ErrArgumentInvalid),
		errors.Is(err, storage.ErrInvalidKey):
		api.BadRequest(w, err.Error())
	case errors.Is(err, metadata.ErrMetadataTooLarge),
		errors.Is(err, metadata.ErrCorruptMetadata),
		errors.Is(err, metadata.ErrCorruptJPEG):
		api.UnprocessableEntity(w, err.Error())
	case errors.As(err, &tooBig):
		api.TooLarge(w, "request body exceeds "+strconv.FormatInt(tooBig.Limit, 10)+" bytes")
	case errors.Is(err, storage.ErrObjectTooLarge):
		api.TooLarge(w, err.Error())
	case errors.Is(err, storage.ErrObjectNotFound):
		api.NotFound(w, "object not found")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		api.InternalError(w)
	}
}

func ok(w http.ResponseWriter, result any) {
	api.WriteJSON(w, http.StatusOK, api.SuccessResponse(result))
}

func done(w http.ResponseWriter) {
	ok(w, struct{}{})
}
