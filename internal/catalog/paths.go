package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/leca/photex/internal/storage"
)

// ErrForeignURL is returned for an image URL that does not live under the
// configured object base URL.
var ErrForeignURL = errors.New("url is not served by this object store")

// newObjectKey returns a fresh key of the form {ownerId}/{uuid}.jpg.
func newObjectKey(ownerID int64) string {
	return fmt.Sprintf("%d/%s.jpg", ownerID, uuid.NewString())
}

// URL returns the public URL of an object key.
func (s *Service) URL(key string) string {
	return s.baseURL + "/" + key
}

// KeyForURL inverts URL.
func (s *Service) KeyForURL(url string) (string, error) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	key := strings.TrimPrefix(url, prefix)
	if err := storage.CheckKey(key); err != nil {
		return "", err
	}
	return key, nil
}
