// Package advisory loads vulnerability advisory databases from a local file
// or an HTTP(S) URL.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
)

// Fetcher retrieves a remote document.
type Fetcher interface {
	Get(ctx context.Context, rawURL, accept string) ([]byte, error)
}

// record is the on-disk form of one advisory.
type record struct {
	ID           string `json:"id"`
	Package      string `json:"package"`
	VersionRange string `json:"version_range"`
	Severity     string `json:"severity"`
	Description  string `json:"description"`
	FixedVersion string `json:"fixed_version"`
}

// Source implements ports.AdvisorySource.
type Source struct {
	fetcher Fetcher
}

var _ ports.AdvisorySource = (*Source)(nil)

// NewSource creates a Source that fetches URLs through fetcher.
func NewSource(fetcher Fetcher) *Source {
	return &Source{fetcher: fetcher}
}

// Load reads the database at location: a JSON array of advisories.
// Entries are returned in file order.
func (s *Source) Load(ctx context.Context, location string) ([]domain.Advisory, error) {
	data, err := s.read(ctx, location)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var records []record
	if err := dec.Decode(&records); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrAdvisoryDBInvalid, err.Error()), "location", location)
	}

	out := make([]domain.Advisory, 0, len(records))
	for i, rec := range records {
		adv, err := convert(rec)
		if err != nil {
			return nil, zerr.With(zerr.With(err, "location", location), "entry", i)
		}
		out = append(out, adv)
	}
	return out, nil
}

func (s *Source) read(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		data, err := s.fetcher.Get(ctx, location, "application/json")
		if err != nil {
			return nil, errors.Join(domain.ErrAdvisoryDBInvalid, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, zerr.With(zerr.Wrap(domain.ErrAdvisoryDBInvalid, "database not found"), "location", location)
	}
	if err != nil {
		return nil, domain.FilesystemError(err, "read advisory database", location)
	}
	return data, nil
}

func convert(rec record) (domain.Advisory, error) {
	invalid := func(reason string) error {
		return zerr.With(zerr.Wrap(domain.ErrAdvisoryDBInvalid, reason), "id", rec.ID)
	}

	if rec.ID == "" {
		return domain.Advisory{}, invalid("advisory without id")
	}
	name, err := domain.ParsePackageName(rec.Package)
	if err != nil {
		return domain.Advisory{}, invalid("invalid package name")
	}

	var affected domain.SpecifierSet
	if r := strings.TrimSpace(rec.VersionRange); r != "" && r != "*" {
		affected, err = domain.ParseSpecifierSet(r)
		if err != nil {
			return domain.Advisory{}, invalid("invalid version range")
		}
	}

	adv := domain.Advisory{
		ID:       rec.ID,
		Package:  name,
		Affected: affected,
		Summary:  rec.Description,
		Severity: strings.ToLower(rec.Severity),
	}
	if rec.FixedVersion != "" {
		v, err := domain.ParseVersion(rec.FixedVersion)
		if err != nil {
			return domain.Advisory{}, invalid("invalid fixed version")
		}
		adv.FixedIn = []domain.Version{v}
	}
	if adv.Severity == "" {
		adv.Severity = "unknown"
	}
	return adv, nil
}
