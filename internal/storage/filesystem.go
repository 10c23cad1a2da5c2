package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Compile-time check that FileSystem implements ObjectStore.
var _ ObjectStore = (*FileSystem)(nil)

// FileSystem implements ObjectStore using the local filesystem.
// Objects are stored at <basePath>/<key>.
type FileSystem struct {
	basePath string
}

// NewFileSystem creates a new FileSystem storage rooted at basePath.
func NewFileSystem(basePath string) *FileSystem {
	return &FileSystem{basePath: basePath}
}

func (fs *FileSystem) objectPath(key string) (string, error) {
	if err := CheckKey(key); err != nil {
		return "", err
	}
	return filepath.Join(fs.basePath, filepath.FromSlash(key)), nil
}

// Put writes data through a temp file in the destination directory. An
// overwrite renames the temp file into place; a create-only put hard links it
// so that an existing object is never replaced.
func (fs *FileSystem) Put(ctx context.Context, key string, data []byte, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := fs.objectPath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if overwrite {
		if err := os.Rename(tmpPath, dst); err != nil {
			return fmt.Errorf("renaming temp file to %s: %w", dst, err)
		}
		return nil
	}
	if err := os.Link(tmpPath, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrObjectExists, key)
		}
		return fmt.Errorf("linking temp file to %s: %w", dst, err)
	}
	return nil
}

// Get reads the whole object.
func (fs *FileSystem) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := fs.objectPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}

// Delete removes the object file.
// It is idempotent: deleting a non-existent object returns no error.
func (fs *FileSystem) Delete(ctx context.Context, key string) error {
	path, err := fs.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file %s: %w", path, err)
	}
	return nil
}

// Exists checks whether the object file exists on disk.
func (fs *FileSystem) Exists(ctx context.Context, key string) (bool, error) {
	path, err := fs.objectPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking file %s: %w", path, err)
}

// Close is a no-op for the filesystem backend.
func (fs *FileSystem) Close() error {
	return nil
}
