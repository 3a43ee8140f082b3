package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Verifier checks that recorded files are still present.
type Verifier struct{}

// NewVerifier creates a new Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// MissingFiles returns the entries of files, slash-separated and relative to
// root, that no longer exist.
func (v *Verifier) MissingFiles(root string, files []string) ([]string, error) {
	var missing []string
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Lstat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				missing = append(missing, rel)
				continue
			}
			return nil, zerr.With(zerr.Wrap(err, "failed to stat installed file"), "path", path)
		}
	}
	return missing, nil
}
