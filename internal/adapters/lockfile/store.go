package lockfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
)

// Store implements ports.LockStore on the local filesystem.
type Store struct {
	codec ports.LockCodec
}

var _ ports.LockStore = (*Store)(nil)

// NewStore creates a Store that serializes with codec.
func NewStore(codec ports.LockCodec) *Store {
	return &Store{codec: codec}
}

// Load reads the lock document at path. A missing file yields nil, nil.
func (s *Store) Load(path string) (*domain.LockDocument, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.FilesystemError(err, "read lock document", path)
	}
	doc, err := s.codec.Decode(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return doc, nil
}

// Save replaces the document at path. Readers see the old or the new
// document, never a partial one.
func (s *Store) Save(path string, doc *domain.LockDocument) error {
	data, err := s.codec.Encode(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.FilesystemError(err, "create temp lock document", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return domain.FilesystemError(err, "write lock document", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return domain.FilesystemError(err, "sync lock document", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return domain.FilesystemError(err, "close lock document", tmpName)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return domain.FilesystemError(err, "chmod lock document", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return domain.FilesystemError(err, "rename lock document", path)
	}
	return nil
}
