package database

import (
	"context"
	"errors"
	"time"

	"github.com/leca/photex/internal/model"
)

// ErrNotFound is returned when a row is absent or not owned by the caller.
var ErrNotFound = errors.New("not found")

// Database defines the relational persistence of catalogues and images.
// Every lookup is scoped to an owner; a row owned by someone else is reported
// as ErrNotFound.
type Database interface {
	// Catalogues

	// EnsureCatalogue returns the owner's catalogue whose name matches name
	// case-insensitively, creating it inside a transaction when missing. The
	// boolean reports whether it was created.
	EnsureCatalogue(ctx context.Context, ownerID int64, name string) (*model.Catalogue, bool, error)
	GetCatalogue(ctx context.Context, ownerID, catalogueID int64) (*model.Catalogue, error)
	ListCatalogues(ctx context.Context, ownerID int64) ([]*model.CatalogueSummary, error)
	// DeleteCatalogue removes the catalogue and all of its images and
	// returns the URLs of the removed images.
	DeleteCatalogue(ctx context.Context, ownerID, catalogueID int64) ([]string, error)

	// Images
	CreateImage(ctx context.Context, img *model.Image) error
	GetImage(ctx context.Context, ownerID, imageID int64) (*model.Image, error)
	ListImages(ctx context.Context, ownerID, catalogueID int64) ([]*model.Image, error)
	ListOwnerImages(ctx context.Context, ownerID int64) ([]*model.Image, error)
	// UpdateImage writes the description, catalogue and modification time.
	UpdateImage(ctx context.Context, ownerID int64, img *model.Image) error
	// TouchImage only sets the modification time.
	TouchImage(ctx context.Context, ownerID, imageID int64, modified time.Time) error
	// DeleteImage removes the row and returns its URL.
	DeleteImage(ctx context.Context, ownerID, imageID int64) (string, error)

	Close() error
}
