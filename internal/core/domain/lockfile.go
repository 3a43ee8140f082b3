package domain

import (
	"slices"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

const (
	// LockSchemaVersion is the lock document schema this build reads and writes.
	LockSchemaVersion = 1

	// ResolverAlgorithm identifies the resolver that produced a lock document.
	ResolverAlgorithm = "cbj/1"
)

// LockTarget records the target a lock document was resolved for.
type LockTarget struct {
	Python         string
	Implementation string
	ABI            string
	OS             string
	Arch           string
	Platforms      []string
}

// LockedPackage is one package entry of a lock document.
type LockedPackage struct {
	Name         PackageName
	Version      Version
	Kind         DistKind
	Source       string
	Filename     string
	URL          string
	Digest       Digest
	Size         int64
	Extras       []string
	Dependencies []PackageName
}

// LockDocument is the durable record of a resolution.
type LockDocument struct {
	SchemaVersion     int
	ResolverAlgorithm string
	GeneratedAt       time.Time
	Target            LockTarget
	Requirements      []string
	Packages          []LockedPackage
}

// NewLockDocument converts a resolved graph into its lock form with every
// list in canonical order.
func NewLockDocument(g *ResolvedGraph, generatedAt time.Time) *LockDocument {
	doc := &LockDocument{
		SchemaVersion:     LockSchemaVersion,
		ResolverAlgorithm: ResolverAlgorithm,
		GeneratedAt:       generatedAt.UTC().Truncate(time.Second),
		Target: LockTarget{
			Python:         g.Target.PythonVersion.String(),
			Implementation: g.Target.Implementation,
			ABI:            g.Target.ABI,
			OS:             g.Target.OS,
			Arch:           g.Target.Arch,
			Platforms:      slices.Clone(g.Target.Platforms),
		},
	}
	for _, r := range g.Roots {
		doc.Requirements = append(doc.Requirements, r.String())
	}
	slices.Sort(doc.Requirements)
	doc.Requirements = slices.Compact(doc.Requirements)

	for p := range g.Packages() {
		d := p.Distribution
		doc.Packages = append(doc.Packages, LockedPackage{
			Name:         p.Name,
			Version:      p.Version,
			Kind:         d.Kind,
			Source:       d.Index,
			Filename:     d.Filename,
			URL:          d.URL,
			Digest:       d.Digest,
			Size:         d.Size,
			Extras:       slices.Clone(p.Extras),
			Dependencies: slices.Clone(p.Dependencies),
		})
	}
	return doc
}

// Package looks up a locked package by name.
func (d *LockDocument) Package(name PackageName) (LockedPackage, bool) {
	i, found := slices.BinarySearchFunc(d.Packages, name, func(p LockedPackage, n PackageName) int {
		return ComparePackageNames(p.Name, n)
	})
	if !found {
		return LockedPackage{}, false
	}
	return d.Packages[i], true
}

// SamePackages reports whether both documents lock the same requirements,
// target and package set, ignoring the generation timestamp.
func (d *LockDocument) SamePackages(o *LockDocument) bool {
	if d == nil || o == nil {
		return d == o
	}
	if !slices.Equal(d.Requirements, o.Requirements) ||
		d.Target.Python != o.Target.Python ||
		d.Target.ABI != o.Target.ABI ||
		!slices.Equal(d.Target.Platforms, o.Target.Platforms) ||
		len(d.Packages) != len(o.Packages) {
		return false
	}
	for i := range d.Packages {
		a, b := d.Packages[i], o.Packages[i]
		if a.Name != b.Name || a.Version.String() != b.Version.String() ||
			a.Filename != b.Filename || a.Digest != b.Digest ||
			!slices.Equal(a.Extras, b.Extras) || !slices.Equal(a.Dependencies, b.Dependencies) {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of a decoded document.
func (d *LockDocument) Validate() error {
	seen := make(map[PackageName]struct{}, len(d.Packages))
	for _, p := range d.Packages {
		if _, dup := seen[p.Name]; dup {
			return corruptPackage("duplicate package", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	for _, p := range d.Packages {
		if err := p.Digest.Validate(); err != nil {
			return corruptPackage("invalid hash", p.Name)
		}
		for _, dep := range p.Dependencies {
			if _, ok := seen[dep]; !ok {
				return zerr.With(corruptPackage("dependency not locked", p.Name), "dependency", dep.String())
			}
		}
	}
	slices.SortFunc(d.Packages, func(a, b LockedPackage) int { return ComparePackageNames(a.Name, b.Name) })
	return nil
}

func corruptPackage(reason string, name PackageName) error {
	return zerr.With(zerr.Wrap(ErrCorruptLockDocument, reason), "package", name.String())
}

// Graph rebuilds the resolved graph the document was written from.
func (d *LockDocument) Graph() (*ResolvedGraph, error) {
	python, err := ParseVersion(d.Target.Python)
	if err != nil {
		return nil, zerr.Wrap(MarkCorrupt(err), "lock target python")
	}
	target := Target{
		PythonVersion:  python,
		Implementation: d.Target.Implementation,
		ABI:            d.Target.ABI,
		OS:             d.Target.OS,
		Arch:           d.Target.Arch,
		Platforms:      slices.Clone(d.Target.Platforms),
	}

	roots := make([]Requirement, 0, len(d.Requirements))
	for _, s := range d.Requirements {
		r, err := ParseRequirement(s)
		if err != nil {
			return nil, zerr.Wrap(MarkCorrupt(err), "lock requirement")
		}
		roots = append(roots, r)
	}

	g := NewResolvedGraph(roots, target)
	for _, p := range d.Packages {
		dist := Distribution{
			Kind:     p.Kind,
			Filename: p.Filename,
			URL:      p.URL,
			Index:    p.Source,
			Size:     p.Size,
			Digest:   p.Digest,
		}
		if parsed, err := ParseDistributionFilename(p.Filename); err == nil {
			dist.Kind = parsed.Kind
			dist.Wheel = parsed.Wheel
		}
		if err := g.AddPackage(&ResolvedPackage{
			Name:         p.Name,
			Version:      p.Version,
			Distribution: dist,
			Extras:       slices.Clone(p.Extras),
			Dependencies: slices.Clone(p.Dependencies),
		}); err != nil {
			return nil, MarkCorrupt(err)
		}
	}
	return g, nil
}

// MarkCorrupt marks err as ErrCorruptLockDocument while keeping its cause.
func MarkCorrupt(err error) error {
	if err == nil {
		return nil
	}
	return &corruptError{cause: err}
}

type corruptError struct{ cause error }

func (e *corruptError) Error() string {
	return ErrCorruptLockDocument.Error() + ": " + strings.TrimSpace(e.cause.Error())
}

func (e *corruptError) Is(target error) bool { return target == ErrCorruptLockDocument }

func (e *corruptError) Unwrap() error { return e.cause }
