package model

import (
	"fmt"
	"time"
)

// Catalogue is a named, per-owner group of images.
type Catalogue struct {
	ID      int64    `json:"id"`
	OwnerID int64    `json:"-"`
	Name    string   `json:"name"`
	Images  []*Image `json:"images"`
}

// CatalogueSummary is the list projection of a catalogue.
type CatalogueSummary struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	CoverImageURL string     `json:"coverImageUrl,omitempty"`
	LastModified  *time.Time `json:"lastModified,omitempty"`
}

// CatalogueRef addresses the target catalogue of an upload, either by id or
// by name.
type CatalogueRef struct {
	ID   int64
	Name string
	byID bool
}

// ByID addresses an existing catalogue by its id.
func ByID(id int64) CatalogueRef {
	return CatalogueRef{ID: id, byID: true}
}

// ByName addresses a catalogue by name, creating it when missing.
func ByName(name string) CatalogueRef {
	return CatalogueRef{Name: name}
}

// IsID reports whether the reference addresses a catalogue by id.
func (r CatalogueRef) IsID() bool {
	return r.byID
}

func (r CatalogueRef) String() string {
	if r.byID {
		return fmt.Sprintf("catalogue #%d", r.ID)
	}
	return fmt.Sprintf("catalogue %q", r.Name)
}
