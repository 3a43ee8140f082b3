package domain

import (
	"regexp"
	"strings"
	"unique"

	"go.trai.ch/zerr"
)

var (
	validNamePattern = regexp.MustCompile(`(?i)^([a-z0-9]|[a-z0-9][a-z0-9._-]*[a-z0-9])$`)
	nameSeparators   = regexp.MustCompile(`[-_.]+`)
)

// PackageName is a PEP 503 normalized distribution name.
// It wraps a unique.Handle so that equality is a pointer comparison and
// repeated names across metadata responses share storage.
type PackageName struct {
	h unique.Handle[string]
}

// NormalizeName applies PEP 503 normalization without validating s.
func NormalizeName(s string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

// ParsePackageName validates and normalizes a distribution name.
func ParsePackageName(s string) (PackageName, error) {
	trimmed := strings.TrimSpace(s)
	if !validNamePattern.MatchString(trimmed) {
		return PackageName{}, zerr.With(zerr.Wrap(ErrInvalidPackageName, "parsing name"), "name", s)
	}
	return NewPackageName(trimmed), nil
}

// NewPackageName normalizes s and interns it. Callers that accept user
// input should use ParsePackageName.
func NewPackageName(s string) PackageName {
	return PackageName{h: unique.Make(NormalizeName(s))}
}

// IsZero reports whether n is the zero PackageName.
func (n PackageName) IsZero() bool {
	return n == PackageName{}
}

// String returns the normalized name.
func (n PackageName) String() string {
	if n.IsZero() {
		return ""
	}
	return n.h.Value()
}

// ComparePackageNames orders names lexically by normalized form.
func ComparePackageNames(a, b PackageName) int {
	return strings.Compare(a.String(), b.String())
}

// MarshalText implements encoding.TextMarshaler.
func (n PackageName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *PackageName) UnmarshalText(text []byte) error {
	parsed, err := ParsePackageName(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
