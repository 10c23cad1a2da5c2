package handler

import (
	"encoding/json"
	"net/http"

	"github.com/leca/photex/internal/api"
	"github.com/leca/photex/internal/model"
)

// EditableTags handles GET /metadata/editable.
func (h *Handler) EditableTags(w http.ResponseWriter, r *http.Request) {
	ok(w, h.Catalog.EditableTags())
}

// UpdateMetadata handles PATCH /images/{image_id}/metadata with a body of
// the form {"newMetadata": [{"name": 271, "newValue": "Acme"}]}.
func (h *Handler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r, "image_id")
	if !valid {
		return
	}

	var body struct {
		NewMetadata []model.MetadataEdit `json:"newMetadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.BadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if err := h.Catalog.UpdateMetadata(r.Context(), api.GetOwnerID(r.Context()), id, body.NewMetadata); err != nil {
		writeError(w, r, err)
		return
	}
	done(w)
}
