package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/leca/photex/internal/api"
	"github.com/leca/photex/internal/imageproc"
	"github.com/leca/photex/internal/model"
)

const (
	// multipartMemory bounds the part of an upload form held in memory.
	multipartMemory = 8 << 20
	// formOverhead is allowed on top of the file limit for the other fields
	// and the multipart framing.
	formOverhead = 64 << 10
)

// ListImages handles GET /images. Images are grouped by catalogue.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.GetImages(r.Context(), api.GetOwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, cats)
}

// UploadImage handles POST /images, a multipart form with the fields file,
// description and either catalogueId or catalogue.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	limit := int64(h.Config.MaxUploadBytes)
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, err)
			return
		}
		api.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		api.BadRequest(w, "missing required field: file")
		return
	}
	defer file.Close()

	src, err := imageproc.ValidateReader(file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > limit {
		api.TooLarge(w, fmt.Sprintf("image exceeds %d bytes", limit))
		return
	}

	ref, valid := catalogueRef(w, r)
	if !valid {
		return
	}

	img, err := h.Catalog.Upload(r.Context(), api.GetOwnerID(r.Context()), model.UploadRequest{
		Catalogue:   ref,
		Description: r.FormValue("description"),
		Data:        data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, api.SuccessResponse(img))
}

// catalogueRef reads the upload target. An id wins over a name.
func catalogueRef(w http.ResponseWriter, r *http.Request) (model.CatalogueRef, bool) {
	if raw := r.FormValue("catalogueId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			api.BadRequest(w, "catalogueId must be a positive integer")
			return model.CatalogueRef{}, false
		}
		return model.ByID(id), true
	}
	name := r.FormValue("catalogue")
	if name == "" {
		api.BadRequest(w, "missing required field: catalogue or catalogueId")
		return model.CatalogueRef{}, false
	}
	return model.ByName(name), true
}

// GetImage handles GET /images/{image_id}.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r, "image_id")
	if !valid {
		return
	}

	img, err := h.Catalog.GetImage(r.Context(), api.GetOwnerID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if img == nil {
		api.NotFound(w, "image not found")
		return
	}
	ok(w, img)
}

// UpdateImage handles PUT /images/{image_id}. Only the keys present in the
// body are applied; an empty body changes nothing.
func (h *Handler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r, "image_id")
	if !valid {
		return
	}

	var body model.UpdateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		api.BadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if err := h.Catalog.UpdateImage(r.Context(), api.GetOwnerID(r.Context()), id, body); err != nil {
		writeError(w, r, err)
		return
	}
	done(w)
}

// DeleteImage handles DELETE /images/{image_id}.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r, "image_id")
	if !valid {
		return
	}

	if err := h.Catalog.DeleteImage(r.Context(), api.GetOwnerID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	done(w)
}

// GetThumbnail handles GET /images/{image_id}/thumbnail?width=&height=.
func (h *Handler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r, "image_id")
	if !valid {
		return
	}
	width, err := queryInt(r, "width")
	if err != nil {
		api.BadRequest(w, err.Error())
		return
	}
	height, err := queryInt(r, "height")
	if err != nil {
		api.BadRequest(w, err.Error())
		return
	}

	thumb, err := h.Catalog.Thumbnail(r.Context(), api.GetOwnerID(r.Context()), id, width, height)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if thumb == nil {
		api.NotFound(w, "image not found")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(thumb)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(thumb); err != nil {
		slog.Warn("failed to write thumbnail", "image", id, "error", err)
	}
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}
