// Package storage holds the object store backends. Objects are whole byte
// blobs addressed by a slash separated key such as "42/<uuid>.jpg".
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrObjectNotFound is returned by Get for a key that holds no object.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectExists is returned by a create-only Put when the key is taken.
	ErrObjectExists = errors.New("object already exists")
	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("invalid object key")
	// ErrObjectTooLarge is returned by Put when the backend cannot hold an
	// object of that size.
	ErrObjectTooLarge = errors.New("object too large for store")
)

// ObjectStore is a durable key/blob store with no transactional semantics.
type ObjectStore interface {
	// Put stores data under key. With overwrite false the call fails with
	// ErrObjectExists if the key already holds an object.
	Put(ctx context.Context, key string, data []byte, overwrite bool) error

	// Get returns the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds an object.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend.
	Close() error
}

// CheckKey validates an object key.
func CheckKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case strings.HasPrefix(key, "/") || strings.HasPrefix(key, "\\"):
		return fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}
	for _, part := range strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("%w: %q escapes the store", ErrInvalidKey, key)
		}
	}
	return nil
}
