// Package catalog orchestrates the catalog store, the object store and the
// embedded metadata codec.
//
// None of the three stores share a transaction, so every mutation follows a
// fixed step order:
//
//   - Upload writes the object before the row that references it. A failed
//     row insert leaves an orphaned object.
//   - Metadata edits read the row, then rewrite the whole object, then touch
//     the row. Concurrent edits of one image are last writer wins.
//   - Deletes remove rows first. Objects are only reclaimed when
//     Options.PurgeObjects is set, and then on a best-effort basis.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/leca/photex/internal/database"
	"github.com/leca/photex/internal/imageproc"
	"github.com/leca/photex/internal/metadata"
	"github.com/leca/photex/internal/model"
	"github.com/leca/photex/internal/storage"
)

// ErrArgumentInvalid is returned for requests that address a missing
// catalogue by id or carry out-of-range fields.
var ErrArgumentInvalid = errors.New("invalid argument")

const (
	MaxCatalogueNameLength = 255
	MaxDescriptionLength   = 1024
)

// Options configures a Service.
type Options struct {
	// BaseURL prefixes object keys to form public image URLs.
	BaseURL string
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// PurgeObjects deletes the objects of deleted images and of uploads
	// whose row could not be written.
	PurgeObjects bool
}

// Service implements the catalogue operations.
type Service struct {
	db      database.Database
	store   storage.ObjectStore
	baseURL string
	log     *slog.Logger
	now     func() time.Time
	purge   bool

	// creating collapses concurrent resolve-or-create calls per owner and
	// folded name.
	creating singleflight.Group
}

// New creates a Service over the given stores.
func New(db database.Database, store storage.ObjectStore, opts Options) *Service {
	s := &Service{
		db:      db,
		store:   store,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		log:     opts.Logger,
		now:     opts.Now,
		purge:   opts.PurgeObjects,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// Upload validates and stores a new image. The content check runs before any
// store is touched.
func (s *Service) Upload(ctx context.Context, ownerID int64, req model.UploadRequest) (*model.Image, error) {
	if err := imageproc.Validate(req.Data); err != nil {
		return nil, err
	}
	if err := checkDescription(req.Description); err != nil {
		return nil, err
	}

	cat, err := s.resolve(ctx, ownerID, req.Catalogue)
	if err != nil {
		return nil, err
	}

	key := newObjectKey(ownerID)
	if err := s.store.Put(ctx, key, req.Data, false); err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}

	now := s.tick(time.Time{})
	img := &model.Image{
		CatalogueID:  cat.ID,
		URL:          s.URL(key),
		Description:  req.Description,
		DateCreated:  now,
		DateModified: now,
	}
	if err := s.db.CreateImage(ctx, img); err != nil {
		s.orphaned(ctx, key, err)
		return nil, fmt.Errorf("insert image: %w", err)
	}

	s.log.Info("image uploaded", "owner", ownerID, "image", img.ID, "catalogue", cat.ID, "bytes", len(req.Data))
	return img, nil
}

// AddCatalogue returns the owner's catalogue with the given name, creating it
// when no catalogue matches case-insensitively.
func (s *Service) AddCatalogue(ctx context.Context, ownerID int64, name string) (*model.Catalogue, error) {
	return s.resolveName(ctx, ownerID, name)
}

// UpdateImage applies the fields set in req. A missing image or an empty
// request is a silent no-op.
func (s *Service) UpdateImage(ctx context.Context, ownerID, imageID int64, req model.UpdateImageRequest) error {
	if req.Empty() {
		return nil
	}
	if desc, ok := req.Description.Get(); ok {
		if err := checkDescription(desc); err != nil {
			return err
		}
	}
	if name, ok := req.Catalogue.Get(); ok {
		if err := checkName(name); err != nil {
			return err
		}
	}

	img, err := s.db.GetImage(ctx, ownerID, imageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get image: %w", err)
	}

	if desc, ok := req.Description.Get(); ok {
		img.Description = desc
	}
	if name, ok := req.Catalogue.Get(); ok {
		cat, err := s.resolveName(ctx, ownerID, name)
		if err != nil {
			return err
		}
		img.CatalogueID = cat.ID
	}
	img.DateModified = s.tick(img.DateModified)

	err = s.db.UpdateImage(ctx, ownerID, img)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	return nil
}

// UpdateMetadata rewrites the embedded metadata of an image. Edit codes are
// checked before any store is read.
func (s *Service) UpdateMetadata(ctx context.Context, ownerID, imageID int64, edits []model.MetadataEdit) error {
	if len(edits) == 0 {
		return nil
	}
	if _, err := metadata.ValidateEdits(edits); err != nil {
		return err
	}

	img, err := s.db.GetImage(ctx, ownerID, imageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get image: %w", err)
	}

	key, err := s.KeyForURL(img.URL)
	if err != nil {
		return err
	}
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load object: %w", err)
	}
	out, err := metadata.Rewrite(data, edits)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, key, out, true); err != nil {
		return fmt.Errorf("store object: %w", err)
	}

	err = s.db.TouchImage(ctx, ownerID, imageID, s.tick(img.DateModified))
	if errors.Is(err, database.ErrNotFound) {
		s.log.Warn("image removed during metadata edit", "owner", ownerID, "image", imageID, "key", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("touch image: %w", err)
	}
	return nil
}

// DeleteImage removes the image row. Missing images are ignored.
func (s *Service) DeleteImage(ctx context.Context, ownerID, imageID int64) error {
	url, err := s.db.DeleteImage(ctx, ownerID, imageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	s.purgeURLs(ctx, url)
	return nil
}

// DeleteCatalogue removes the catalogue and all of its images.
func (s *Service) DeleteCatalogue(ctx context.Context, ownerID, catalogueID int64) error {
	urls, err := s.db.DeleteCatalogue(ctx, ownerID, catalogueID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete catalogue: %w", err)
	}
	s.log.Info("catalogue deleted", "owner", ownerID, "catalogue", catalogueID, "images", len(urls))
	s.purgeURLs(ctx, urls...)
	return nil
}

// ---------------------------------------------------------------------------
// Reads. Absent or foreign entities read as nil without an error.
// ---------------------------------------------------------------------------

// GetImage returns the image with the metadata decoded from its object.
func (s *Service) GetImage(ctx context.Context, ownerID, imageID int64) (*model.ImageDetail, error) {
	img, data, err := s.loadImage(ctx, ownerID, imageID)
	if err != nil || img == nil {
		return nil, err
	}

	detail := &model.ImageDetail{Image: *img, Summary: metadata.Summarize(data)}
	detail.Metadata, err = metadata.Decode(data)
	if err != nil {
		s.log.Warn("undecodable metadata", "owner", ownerID, "image", imageID, "error", err)
		detail.Metadata = model.Metadata{}
	}
	return detail, nil
}

// GetCatalogue returns a catalogue with its images.
func (s *Service) GetCatalogue(ctx context.Context, ownerID, catalogueID int64) (*model.Catalogue, error) {
	cat, err := s.db.GetCatalogue(ctx, ownerID, catalogueID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get catalogue: %w", err)
	}
	images, err := s.db.ListImages(ctx, ownerID, catalogueID)
	if err != nil {
		return nil, err
	}
	cat.Images = nonNil(images)
	return cat, nil
}

// GetImages returns every catalogue of the owner with its images.
func (s *Service) GetImages(ctx context.Context, ownerID int64) ([]*model.Catalogue, error) {
	summaries, err := s.db.ListCatalogues(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	images, err := s.db.ListOwnerImages(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	byCatalogue := make(map[int64][]*model.Image)
	for _, img := range images {
		byCatalogue[img.CatalogueID] = append(byCatalogue[img.CatalogueID], img)
	}
	out := make([]*model.Catalogue, 0, len(summaries))
	for _, cs := range summaries {
		out = append(out, &model.Catalogue{
			ID:      cs.ID,
			OwnerID: ownerID,
			Name:    cs.Name,
			Images:  nonNil(byCatalogue[cs.ID]),
		})
	}
	return out, nil
}

// ListCatalogues returns the owner's catalogues with cover image and last
// modification time.
func (s *Service) ListCatalogues(ctx context.Context, ownerID int64) ([]*model.CatalogueSummary, error) {
	list, err := s.db.ListCatalogues(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*model.CatalogueSummary{}
	}
	return list, nil
}

// EditableTags returns the table of tags UpdateMetadata accepts.
func (s *Service) EditableTags() []metadata.TagInfo {
	return metadata.Tags()
}

// Thumbnail renders a scaled down copy of the image.
func (s *Service) Thumbnail(ctx context.Context, ownerID, imageID int64, width, height int) ([]byte, error) {
	img, data, err := s.loadImage(ctx, ownerID, imageID)
	if err != nil || img == nil {
		return nil, err
	}
	return imageproc.Thumbnail(data, width, height)
}

// OpenObject returns the bytes stored under a public object key.
func (s *Service) OpenObject(ctx context.Context, key string) ([]byte, error) {
	return s.store.Get(ctx, key)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Service) loadImage(ctx context.Context, ownerID, imageID int64) (*model.Image, []byte, error) {
	img, err := s.db.GetImage(ctx, ownerID, imageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get image: %w", err)
	}
	key, err := s.KeyForURL(img.URL)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("load object: %w", err)
	}
	return img, data, nil
}

func (s *Service) resolve(ctx context.Context, ownerID int64, ref model.CatalogueRef) (*model.Catalogue, error) {
	if !ref.IsID() {
		return s.resolveName(ctx, ownerID, ref.Name)
	}
	cat, err := s.db.GetCatalogue(ctx, ownerID, ref.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrArgumentInvalid, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("get catalogue: %w", err)
	}
	return cat, nil
}

func (s *Service) resolveName(ctx context.Context, ownerID int64, name string) (*model.Catalogue, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d/%s", ownerID, database.FoldName(name))
	// One caller's cancellation must not fail the others sharing the flight.
	flight := context.WithoutCancel(ctx)
	ch := s.creating.DoChan(key, func() (any, error) {
		cat, created, err := s.db.EnsureCatalogue(flight, ownerID, name)
		if err != nil {
			return nil, fmt.Errorf("ensure catalogue: %w", err)
		}
		if created {
			s.log.Info("catalogue created", "owner", ownerID, "catalogue", cat.ID, "name", cat.Name)
		}
		return cat, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	// Callers sharing a flight get the same pointer.
	cat := *res.Val.(*model.Catalogue)
	return &cat, nil
}

// tick returns the current time, moved past prev when the clock has not
// advanced beyond it.
func (s *Service) tick(prev time.Time) time.Time {
	now := s.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond).UTC()
	}
	return now
}

func (s *Service) orphaned(ctx context.Context, key string, cause error) {
	if !s.purge {
		s.log.Warn("object orphaned", "key", key, "error", cause)
		return
	}
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn("object orphaned", "key", key, "error", cause, "purge_error", err)
	}
}

func (s *Service) purgeURLs(ctx context.Context, urls ...string) {
	if !s.purge {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, url := range urls {
		key, err := s.KeyForURL(url)
		if err != nil {
			s.log.Warn("skipping purge", "url", url, "error", err)
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn("purge failed", "key", key, "error", err)
		}
	}
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: catalogue name is empty", ErrArgumentInvalid)
	}
	if n := utf8.RuneCountInString(name); n > MaxCatalogueNameLength {
		return fmt.Errorf("%w: catalogue name has %d characters, limit is %d", ErrArgumentInvalid, n, MaxCatalogueNameLength)
	}
	return nil
}

func checkDescription(desc string) error {
	if n := utf8.RuneCountInString(desc); n > MaxDescriptionLength {
		return fmt.Errorf("%w: description has %d characters, limit is %d", ErrArgumentInvalid, n, MaxDescriptionLength)
	}
	return nil
}

func nonNil(images []*model.Image) []*model.Image {
	if images == nil {
		return []*model.Image{}
	}
	return images
}
