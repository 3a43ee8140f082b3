// Package lockfile encodes lock documents as deterministic TOML and
// persists them atomically.
package lockfile

import (
	"bytes"
	"errors"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
)

// wireDocument fixes the field order of the encoded file.
type wireDocument struct {
	Version      int           `toml:"version"`
	Resolver     string        `toml:"resolver"`
	GeneratedAt  string        `toml:"generated-at"`
	Requirements []string      `toml:"requirements"`
	Target       wireTarget    `toml:"target"`
	Packages     []wirePackage `toml:"package"`
}

type wireTarget struct {
	Python         string   `toml:"python"`
	Implementation string   `toml:"implementation,omitempty"`
	ABI            string   `toml:"abi,omitempty"`
	OS             string   `toml:"os,omitempty"`
	Arch           string   `toml:"arch,omitempty"`
	Platforms      []string `toml:"platforms,omitempty"`
}

type wirePackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Kind         string   `toml:"kind"`
	Source       string   `toml:"source"`
	Filename     string   `toml:"filename"`
	URL          string   `toml:"url"`
	Hash         string   `toml:"hash"`
	Size         int64    `toml:"size"`
	Extras       []string `toml:"extras,omitempty"`
	Dependencies []string `toml:"dependencies,omitempty"`
}

// versionProbe reads only the schema version.
type versionProbe struct {
	Version *int `toml:"version"`
}

// Codec implements ports.LockCodec with TOML.
type Codec struct{}

var _ ports.LockCodec = (*Codec)(nil)

// NewCodec creates a Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode serializes doc. Equal documents encode to identical bytes.
func (c *Codec) Encode(doc *domain.LockDocument) ([]byte, error) {
	w := wireDocument{
		Version:      doc.SchemaVersion,
		Resolver:     doc.ResolverAlgorithm,
		GeneratedAt:  doc.GeneratedAt.UTC().Format(time.RFC3339),
		Requirements: doc.Requirements,
		Target: wireTarget{
			Python:         doc.Target.Python,
			Implementation: doc.Target.Implementation,
			ABI:            doc.Target.ABI,
			OS:             doc.Target.OS,
			Arch:           doc.Target.Arch,
			Platforms:      doc.Target.Platforms,
		},
		Packages: make([]wirePackage, 0, len(doc.Packages)),
	}
	if w.Requirements == nil {
		w.Requirements = []string{}
	}
	for _, p := range doc.Packages {
		deps := make([]string, 0, len(p.Dependencies))
		for _, d := range p.Dependencies {
			deps = append(deps, d.String())
		}
		w.Packages = append(w.Packages, wirePackage{
			Name:         p.Name.String(),
			Version:      p.Version.String(),
			Kind:         p.Kind.String(),
			Source:       p.Source,
			Filename:     p.Filename,
			URL:          p.URL,
			Hash:         p.Digest.String(),
			Size:         p.Size,
			Extras:       p.Extras,
			Dependencies: deps,
		})
	}

	var buf bytes.Buffer
	buf.WriteString("# This file is generated by sa. Do not edit by hand.\n")
	enc := toml.NewEncoder(&buf).SetArraysMultiline(true)
	if err := enc.Encode(w); err != nil {
		return nil, zerr.Wrap(err, "encode lock document")
	}
	return buf.Bytes(), nil
}

// Decode parses and validates a lock document.
func (c *Codec) Decode(data []byte) (*domain.LockDocument, error) {
	var probe versionProbe
	if err := toml.Unmarshal(data, &probe); err != nil {
		return nil, zerr.Wrap(domain.MarkCorrupt(err), "decode lock document")
	}
	switch {
	case probe.Version == nil:
		return nil, zerr.Wrap(domain.ErrCorruptLockDocument, "missing schema version")
	case *probe.Version > domain.LockSchemaVersion:
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrUnsupportedSchema, "lock document is newer than this build"),
			"version", *probe.Version), "supported", domain.LockSchemaVersion)
	case *probe.Version < 1:
		return nil, zerr.With(zerr.Wrap(domain.ErrCorruptLockDocument, "invalid schema version"), "version", *probe.Version)
	}

	var w wireDocument
	if err := toml.Unmarshal(data, &w); err != nil {
		return nil, zerr.Wrap(domain.MarkCorrupt(err), "decode lock document")
	}

	doc := &domain.LockDocument{
		SchemaVersion:     w.Version,
		ResolverAlgorithm: w.Resolver,
		Requirements:      w.Requirements,
		Target: domain.LockTarget{
			Python:         w.Target.Python,
			Implementation: w.Target.Implementation,
			ABI:            w.Target.ABI,
			OS:             w.Target.OS,
			Arch:           w.Target.Arch,
			Platforms:      w.Target.Platforms,
		},
	}
	if w.GeneratedAt != "" {
		ts, err := time.Parse(time.RFC3339, w.GeneratedAt)
		if err != nil {
			return nil, zerr.Wrap(domain.MarkCorrupt(err), "generated-at")
		}
		doc.GeneratedAt = ts.UTC()
	}
	for _, r := range w.Requirements {
		if _, err := domain.ParseRequirement(r); err != nil {
			return nil, zerr.Wrap(domain.MarkCorrupt(err), "root requirement")
		}
	}

	for _, wp := range w.Packages {
		p, err := decodePackage(wp)
		if err != nil {
			return nil, zerr.With(domain.MarkCorrupt(err), "package", wp.Name)
		}
		doc.Packages = append(doc.Packages, p)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

var errUnknownKind = errors.New("unknown distribution kind")

func decodePackage(wp wirePackage) (domain.LockedPackage, error) {
	name, err := domain.ParsePackageName(wp.Name)
	if err != nil {
		return domain.LockedPackage{}, err
	}
	version, err := domain.ParseVersion(wp.Version)
	if err != nil {
		return domain.LockedPackage{}, err
	}
	d, err := domain.ParseDigest(wp.Hash)
	if err != nil {
		return domain.LockedPackage{}, err
	}
	var kind domain.DistKind
	switch wp.Kind {
	case domain.KindWheel.String():
		kind = domain.KindWheel
	case domain.KindSourceDist.String():
		kind = domain.KindSourceDist
	default:
		return domain.LockedPackage{}, zerr.With(zerr.Wrap(errUnknownKind, "decode package"), "kind", wp.Kind)
	}

	p := domain.LockedPackage{
		Name:     name,
		Version:  version,
		Kind:     kind,
		Source:   wp.Source,
		Filename: wp.Filename,
		URL:      wp.URL,
		Digest:   d,
		Size:     wp.Size,
		Extras:   wp.Extras,
	}
	for _, dep := range wp.Dependencies {
		dn, err := domain.ParsePackageName(dep)
		if err != nil {
			return domain.LockedPackage{}, err
		}
		p.Dependencies = append(p.Dependencies, dn)
	}
	return p, nil
}
