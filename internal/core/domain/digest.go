package domain

import (
	// Registers the hash used by digest.Canonical.
	_ "crypto/sha256"
	"strings"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/zerr"
)

// Digest is an algorithm-tagged content hash, e.g. "sha256:<hex>".
type Digest = digest.Digest

// ParseDigest parses and validates an algorithm-tagged digest. Only
// sha256 is accepted since it is the only algorithm every index serves.
func ParseDigest(s string) (Digest, error) {
	d, err := digest.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", zerr.With(zerr.Wrap(ErrInvalidDigest, err.Error()), "digest", s)
	}
	if d.Algorithm() != digest.SHA256 {
		return "", zerr.With(zerr.Wrap(ErrInvalidDigest, "unsupported algorithm"), "digest", s)
	}
	return d, nil
}

// DigestFromHashes picks the sha256 entry from an index "hashes" map.
func DigestFromHashes(hashes map[string]string) (Digest, bool) {
	hex, ok := hashes[string(digest.SHA256)]
	if !ok {
		return "", false
	}
	d := digest.NewDigestFromEncoded(digest.SHA256, strings.ToLower(hex))
	if d.Validate() != nil {
		return "", false
	}
	return d, true
}
