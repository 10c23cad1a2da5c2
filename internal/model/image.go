package model

import "time"

// Image is a catalogued image. The bytes live in the object store under the
// key derived from URL; the row only references them.
type Image struct {
	ID           int64     `json:"id"`
	CatalogueID  int64     `json:"catalogueId"`
	URL          string    `json:"url"`
	Description  string    `json:"description"`
	DateCreated  time.Time `json:"dateCreated"`
	DateModified time.Time `json:"dateModified"`
}

// Metadata maps a metadata directory name to its tag name/value pairs.
type Metadata map[string]map[string]string

// Summary holds the well-known values decoded from an image's EXIF block.
type Summary struct {
	TakenAt   *time.Time `json:"takenAt,omitempty"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	Make      string     `json:"make,omitempty"`
	Model     string     `json:"model,omitempty"`
}

// ImageDetail is the single-image read projection including the metadata
// decoded from the stored object.
type ImageDetail struct {
	Image
	Metadata Metadata `json:"metadata"`
	Summary  *Summary `json:"summary,omitempty"`
}

// MetadataEdit sets one tag of the fixed tag table to a new value.
type MetadataEdit struct {
	Code  int    `json:"name"`
	Value string `json:"newValue"`
}

// UpdateImageRequest is a partial image update. Only fields marked as set
// are applied.
type UpdateImageRequest struct {
	Description Optional[string] `json:"description"`
	Catalogue   Optional[string] `json:"catalogue"`
}

// Empty reports whether no field of the request is set.
func (r UpdateImageRequest) Empty() bool {
	return !r.Description.Set && !r.Catalogue.Set
}

// UploadRequest carries a new image and the catalogue it goes to.
type UploadRequest struct {
	Catalogue   CatalogueRef
	Description string
	Data        []byte
}
