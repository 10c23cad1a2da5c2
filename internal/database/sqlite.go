package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leca/photex/internal/model"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Compile-time check that SQLiteDB implements Database.
var _ Database = (*SQLiteDB)(nil)

// SQLiteDB implements Database backed by SQLite.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) an SQLite database at dsn and runs migrations.
// An in-memory dsn is pinned to a single connection so every query sees the
// same database.
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	pragmas := "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	if !strings.Contains(dsn, "?") {
		dsn += "?" + pragmas
	} else if !strings.Contains(dsn, "_pragma") {
		dsn += "&" + pragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Catalogues
// ---------------------------------------------------------------------------

func (s *SQLiteDB) EnsureCatalogue(ctx context.Context, ownerID int64, name string) (*model.Catalogue, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx, "EnsureCatalogue")

	folded := FoldName(name)
	c := &model.Catalogue{OwnerID: ownerID}
	err = tx.QueryRowContext(ctx, `
		SELECT id, name FROM catalogues
		WHERE owner_id = ? AND name_folded = ?
		ORDER BY id ASC LIMIT 1`,
		ownerID, folded,
	).Scan(&c.ID, &c.Name)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("find catalogue: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO catalogues (owner_id, name, name_folded) VALUES (?, ?, ?)`,
		ownerID, name, folded,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert catalogue: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return nil, false, fmt.Errorf("catalogue id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	c.Name = name
	return c, true, nil
}

func (s *SQLiteDB) GetCatalogue(ctx context.Context, ownerID, catalogueID int64) (*model.Catalogue, error) {
	c := &model.Catalogue{OwnerID: ownerID}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM catalogues WHERE owner_id = ? AND id = ?`,
		ownerID, catalogueID,
	).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalogue %d: %w", catalogueID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get catalogue: %w", err)
	}
	return c, nil
}

func (s *SQLiteDB) ListCatalogues(ctx context.Context, ownerID int64) ([]*model.CatalogueSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name,
			(SELECT i.url FROM images i WHERE i.catalogue_id = c.id ORDER BY i.id ASC LIMIT 1),
			(SELECT MAX(i.date_modified) FROM images i WHERE i.catalogue_id = c.id)
		FROM catalogues c
		WHERE c.owner_id = ?
		ORDER BY c.id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list catalogues: %w", err)
	}
	defer rows.Close()

	var out []*model.CatalogueSummary
	for rows.Next() {
		cs := &model.CatalogueSummary{}
		var cover, modified sql.NullString
		if err := rows.Scan(&cs.ID, &cs.Name, &cover, &modified); err != nil {
			return nil, fmt.Errorf("scan catalogue: %w", err)
		}
		cs.CoverImageURL = cover.String
		if modified.Valid {
			t, err := parseTime(modified.String)
			if err != nil {
				return nil, err
			}
			cs.LastModified = &t
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) DeleteCatalogue(ctx context.Context, ownerID, catalogueID int64) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx, "DeleteCatalogue")

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM catalogues WHERE owner_id = ? AND id = ?`,
		ownerID, catalogueID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalogue %d: %w", catalogueID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find catalogue: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT url FROM images WHERE catalogue_id = ? ORDER BY id ASC`, catalogueID)
	if err != nil {
		return nil, fmt.Errorf("list catalogue images: %w", err)
	}
	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls = append(urls, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE catalogue_id = ?`, catalogueID); err != nil {
		return nil, fmt.Errorf("delete catalogue images: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalogues WHERE id = ?`, catalogueID); err != nil {
		return nil, fmt.Errorf("delete catalogue: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return urls, nil
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

const imageColumns = `i.id, i.catalogue_id, i.url, i.description, i.date_created, i.date_modified`

func (s *SQLiteDB) CreateImage(ctx context.Context, img *model.Image) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO images (catalogue_id, url, description, date_created, date_modified)
		VALUES (?, ?, ?, ?, ?)`,
		img.CatalogueID, img.URL, img.Description,
		formatTime(img.DateCreated), formatTime(img.DateModified),
	)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	if img.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("image id: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetImage(ctx context.Context, ownerID, imageID int64) (*model.Image, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+imageColumns+`
		FROM images i JOIN catalogues c ON c.id = i.catalogue_id
		WHERE c.owner_id = ? AND i.id = ?`,
		ownerID, imageID,
	)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %d: %w", imageID, ErrNotFound)
	}
	return img, err
}

func (s *SQLiteDB) ListImages(ctx context.Context, ownerID, catalogueID int64) ([]*model.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+`
		FROM images i JOIN catalogues c ON c.id = i.catalogue_id
		WHERE c.owner_id = ? AND c.id = ?
		ORDER BY i.id ASC`,
		ownerID, catalogueID,
	)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()
	return scanImages(rows)
}

func (s *SQLiteDB) ListOwnerImages(ctx context.Context, ownerID int64) ([]*model.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+imageColumns+`
		FROM images i JOIN catalogues c ON c.id = i.catalogue_id
		WHERE c.owner_id = ?
		ORDER BY i.id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()
	return scanImages(rows)
}

func (s *SQLiteDB) UpdateImage(ctx context.Context, ownerID int64, img *model.Image) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images SET catalogue_id = ?, description = ?, date_modified = ?
		WHERE id = ?
		AND catalogue_id IN (SELECT id FROM catalogues WHERE owner_id = ?)
		AND ? IN (SELECT id FROM catalogues WHERE owner_id = ?)`,
		img.CatalogueID, img.Description, formatTime(img.DateModified),
		img.ID, ownerID, img.CatalogueID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	return checkRowsAffected(res, "image")
}

func (s *SQLiteDB) TouchImage(ctx context.Context, ownerID, imageID int64, modified time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images SET date_modified = ?
		WHERE id = ?
		AND catalogue_id IN (SELECT id FROM catalogues WHERE owner_id = ?)`,
		formatTime(modified), imageID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("touch image: %w", err)
	}
	return checkRowsAffected(res, "image")
}

func (s *SQLiteDB) DeleteImage(ctx context.Context, ownerID, imageID int64) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(tx, "DeleteImage")

	var url string
	err = tx.QueryRowContext(ctx, `
		SELECT i.url FROM images i JOIN catalogues c ON c.id = i.catalogue_id
		WHERE c.owner_id = ? AND i.id = ?`,
		ownerID, imageID,
	).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("image %d: %w", imageID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find image: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, imageID); err != nil {
		return "", fmt.Errorf("delete image: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return url, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// FoldName is the case-insensitive form catalogue names are compared by.
func FoldName(name string) string {
	return strings.ToLower(name)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanImage(row scannable) (*model.Image, error) {
	img := &model.Image{}
	var created, modified string

	err := row.Scan(&img.ID, &img.CatalogueID, &img.URL, &img.Description, &created, &modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan image: %w", err)
	}

	if img.DateCreated, err = parseTime(created); err != nil {
		return nil, err
	}
	if img.DateModified, err = parseTime(modified); err != nil {
		return nil, err
	}
	return img, nil
}

func scanImages(rows *sql.Rows) ([]*model.Image, error) {
	var images []*model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func rollback(tx *sql.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Warn("rollback failed", "op", op, "error", err)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func checkRowsAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
