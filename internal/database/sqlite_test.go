package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leca/photex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOwner  int64 = 42
	otherOwner int64 = 7
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "photex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func addImage(t *testing.T, db *SQLiteDB, catalogueID int64, url string, at time.Time) *model.Image {
	t.Helper()
	img := &model.Image{CatalogueID: catalogueID, URL: url, Description: "d", DateCreated: at, DateModified: at}
	require.NoError(t, db.CreateImage(context.Background(), img))
	return img
}

func TestEnsureCatalogue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, created, err := db.EnsureCatalogue(ctx, testOwner, "Trip")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Trip", c.Name)
	assert.NotZero(t, c.ID)

	again, created, err := db.EnsureCatalogue(ctx, testOwner, "TRIP")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c.ID, again.ID)
	assert.Equal(t, "Trip", again.Name)

	// Names are scoped to the owner.
	other, created, err := db.EnsureCatalogue(ctx, otherOwner, "trip")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, c.ID, other.ID)
}

func TestEnsureCatalogue_Concurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	ids := make([]int64, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, _, err := db.EnsureCatalogue(ctx, testOwner, "Race")
			errs[i] = err
			if err == nil {
				ids[i] = c.ID
			}
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	list, err := db.ListCatalogues(ctx, testOwner)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetCatalogue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, _, err := db.EnsureCatalogue(ctx, testOwner, "Trip")
	require.NoError(t, err)

	got, err := db.GetCatalogue(ctx, testOwner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)

	_, err = db.GetCatalogue(ctx, otherOwner, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetCatalogue(ctx, testOwner, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCatalogues_Summary(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trip, _, err := db.EnsureCatalogue(ctx, testOwner, "Trip")
	require.NoError(t, err)
	_, _, err = db.EnsureCatalogue(ctx, testOwner, "Empty")
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	addImage(t, db, trip.ID, "http://x/42/a.jpg", base)
	addImage(t, db, trip.ID, "http://x/42/b.jpg", base.Add(time.Second+500*time.Millisecond))
	addImage(t, db, trip.ID, "http://x/42/c.jpg", base.Add(time.Second))

	list, err := db.ListCatalogues(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "Trip", list[0].Name)
	assert.Equal(t, "http://x/42/a.jpg", list[0].CoverImageURL)
	require.NotNil(t, list[0].LastModified)
	assert.True(t, base.Add(time.Second+500*time.Millisecond).Equal(*list[0].LastModified))

	assert.Equal(t, "Empty", list[1].Name)
	assert.Empty(t, list[1].CoverImageURL)
	assert.Nil(t, list[1].LastModified)

	none, err := db.ListCatalogues(ctx, otherOwner)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateAndGetImage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, _, err := db.EnsureCatalogue(ctx, testOwner, "Trip")
	require.NoError(t, err)

	now := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	img := addImage(t, db, c.ID, "http://x/42/a.jpg", now)
	assert.NotZero(t, img.ID)

	got, err := db.GetImage(ctx, testOwner, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.URL, got.URL)
	assert.Equal(t, c.ID, got.CatalogueID)
	assert.True(t, now.Equal(got.DateCreated))
	assert.True(t, now.Equal(got.DateModified))

	// wrong owner
	_, err = db.GetImage(ctx, otherOwner, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// not found
	_, err = db.GetImage(ctx, testOwner, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListImages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, _, _ := db.EnsureCatalogue(ctx, testOwner, "A")
	b, _, _ := db.EnsureCatalogue(ctx, testOwner, "B")
	now := time.Now()
	addImage(t, db, a.ID, "u1", now)
	addImage(t, db, b.ID, "u2", now)
	addImage(t, db, a.ID, "u3", now)

	imgs, err := db.ListImages(ctx, testOwner, a.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "u1", imgs[0].URL)
	assert.Equal(t, "u3", imgs[1].URL)

	imgs, err = db.ListImages(ctx, otherOwner, a.ID)
	require.NoError(t, err)
	assert.Empty(t, imgs)

	all, err := db.ListOwnerImages(ctx, testOwner)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateImage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, _, _ := db.EnsureCatalogue(ctx, testOwner, "A")
	b, _, _ := db.EnsureCatalogue(ctx, testOwner, "B")
	foreign, _, _ := db.EnsureCatalogue(ctx, otherOwner, "F")
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	img := addImage(t, db, a.ID, "u1", created)

	img.Description = "moved"
	img.CatalogueID = b.ID
	img.DateModified = created.Add(time.Hour)
	require.NoError(t, db.UpdateImage(ctx, testOwner, img))

	got, err := db.GetImage(ctx, testOwner, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "moved", got.Description)
	assert.Equal(t, b.ID, got.CatalogueID)
	assert.True(t, created.Equal(got.DateCreated))
	assert.True(t, created.Add(time.Hour).Equal(got.DateModified))

	// Cannot be moved into another owner's catalogue.
	img.CatalogueID = foreign.ID
	assert.ErrorIs(t, db.UpdateImage(ctx, testOwner, img), ErrNotFound)

	// Cannot be updated by another owner.
	img.CatalogueID = b.ID
	assert.ErrorIs(t, db.UpdateImage(ctx, otherOwner, img), ErrNotFound)
}

func TestTouchImage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, _, _ := db.EnsureCatalogue(ctx, testOwner, "A")
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	img := addImage(t, db, c.ID, "u1", created)

	later := created.Add(time.Minute)
	require.NoError(t, db.TouchImage(ctx, testOwner, img.ID, later))
	assert.ErrorIs(t, db.TouchImage(ctx, otherOwner, img.ID, later), ErrNotFound)

	got, err := db.GetImage(ctx, testOwner, img.ID)
	require.NoError(t, err)
	assert.True(t, later.Equal(got.DateModified))
	assert.True(t, created.Equal(got.DateCreated))
	assert.Equal(t, "d", got.Description)
}

func TestDeleteImage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, _, _ := db.EnsureCatalogue(ctx, testOwner, "A")
	img := addImage(t, db, c.ID, "http://x/42/a.jpg", time.Now())

	_, err := db.DeleteImage(ctx, otherOwner, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	url, err := db.DeleteImage(ctx, testOwner, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://x/42/a.jpg", url)

	_, err = db.GetImage(ctx, testOwner, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.DeleteImage(ctx, testOwner, img.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCatalogue_Cascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, _, _ := db.EnsureCatalogue(ctx, testOwner, "A")
	keep, _, _ := db.EnsureCatalogue(ctx, testOwner, "B")
	i1 := addImage(t, db, c.ID, "u1", time.Now())
	i2 := addImage(t, db, c.ID, "u2", time.Now())
	i3 := addImage(t, db, keep.ID, "u3", time.Now())

	_, err := db.DeleteCatalogue(ctx, otherOwner, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	urls, err := db.DeleteCatalogue(ctx, testOwner, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, urls)

	for _, id := range []int64{i1.ID, i2.ID} {
		_, err := db.GetImage(ctx, testOwner, id)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	_, err = db.GetImage(ctx, testOwner, i3.ID)
	assert.NoError(t, err)

	_, err = db.GetCatalogue(ctx, testOwner, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCatalogue_Empty(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, _, _ := db.EnsureCatalogue(ctx, testOwner, "Empty")
	urls, err := db.DeleteCatalogue(ctx, testOwner, c.ID)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestInMemoryDSN(t *testing.T) {
	db, err := NewSQLiteDB("file::memory:")
	require.NoError(t, err)
	defer db.Close()

	c, _, err := db.EnsureCatalogue(context.Background(), testOwner, "Trip")
	require.NoError(t, err)
	_, err = db.GetCatalogue(context.Background(), testOwner, c.ID)
	assert.NoError(t, err)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, FoldName("Trip"), FoldName("tRIP"))
	assert.Equal(t, FoldName("ŻÓŁW"), FoldName("żółw"))
}
