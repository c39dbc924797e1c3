package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulfillment-platform/portal/pkg/errors"
	"github.com/fulfillment-platform/portal/pkg/logging"
)

// FilesystemStorage deletes QC photo objects from a local volume. Paths are
// confined to the configured root; a missing file counts as deleted.
type FilesystemStorage struct {
	root   string
	logger *logging.Logger
}

// NewFilesystemStorage creates a FilesystemStorage rooted at dir
func NewFilesystemStorage(dir string, logger *logging.Logger) *FilesystemStorage {
	return &FilesystemStorage{
		root:   dir,
		logger: logger,
	}
}

// Delete removes one photo object
func (s *FilesystemStorage) Delete(_ context.Context, filePath string) error {
	full, err := s.resolve(filePath)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return nil
}

// resolve joins the path under the root and rejects traversal outside it
func (s *FilesystemStorage) resolve(filePath string) (string, error) {
	full := filepath.Join(s.root, filepath.Clean("/"+filePath))
	if !strings.HasPrefix(full, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", errors.ErrValidation("photo path escapes storage root: " + filePath)
	}
	return full, nil
}
