package handler

import (
	"encoding/json"
	"net/http"

	"github.com/leca/photex/internal/api"
	"github.com/leca/photex/internal/model"
)

// ListCatalogues handles GET /catalogues.
func (h *Handler) ListCatalogues(w http.ResponseWriter, r *http.Request) {
	list, err := h.Catalog.ListCatalogues(r.Context(), api.GetOwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, list)
}

// AddCatalogue handles POST /catalogues. Adding an existing name returns the
// existing catalogue.
func (h *Handler) AddCatalogue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.BadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	cat, err := h.Catalog.AddCatalogue(r.Context(), api.GetOwnerID(r.Context()), body.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, model.CatalogueSummary{ID: cat.ID, Name: cat.Name})
}

// GetCatalogue handles GET /catalogues/{catalogue_id}.
func (h *Handler) GetCatalogue(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r, "catalogue_id")
	if !valid {
		return
	}

	cat, err := h.Catalog.GetCatalogue(r.Context(), api.GetOwnerID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cat == nil {
		api.NotFound(w, "catalogue not found")
		return
	}
	ok(w, cat)
}

// DeleteCatalogue handles DELETE /catalogues/{catalogue_id}.
func (h *Handler) DeleteCatalogue(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(w, r, "catalogue_id")
	if !valid {
		return
	}

	if err := h.Catalog.DeleteCatalogue(r.Context(), api.GetOwnerID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	done(w)
}
