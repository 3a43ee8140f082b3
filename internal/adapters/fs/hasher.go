package fs

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/opencontainers/go-digest"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/zerr"
)

// Hasher computes content hashes of files.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return hasher.Sum64(), nil
}

// ComputeDigest computes the content digest of a file with alg.
func (h *Hasher) ComputeDigest(path string, alg digest.Algorithm) (domain.Digest, error) {
	if !alg.Available() {
		return "", zerr.With(zerr.Wrap(domain.ErrInvalidDigest, "algorithm unavailable"), "algorithm", alg.String())
	}
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	d, err := alg.FromReader(f)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to digest file content"), "path", path)
	}
	return d, nil
}

// SameContent reports whether two regular files hold identical bytes.
func (h *Hasher) SameContent(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to stat file"), "path", a)
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to stat file"), "path", b)
	}
	if !ai.Mode().IsRegular() || !bi.Mode().IsRegular() || ai.Size() != bi.Size() {
		return false, nil
	}
	if os.SameFile(ai, bi) {
		return true, nil
	}

	ha, err := h.ComputeFileHash(a)
	if err != nil {
		return false, err
	}
	hb, err := h.ComputeFileHash(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}
