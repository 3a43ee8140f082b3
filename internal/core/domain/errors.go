package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrUnknownPackage is returned when no configured index knows a package name.
	ErrUnknownPackage = zerr.New("unknown package")

	// ErrNoSatisfyingVersion is returned when the constraints on a package cannot be met together.
	ErrNoSatisfyingVersion = zerr.New("no satisfying version")

	// ErrMetadataFetch is returned when index metadata cannot be retrieved or parsed.
	ErrMetadataFetch = zerr.New("metadata fetch failed")

	// ErrIntegrityMismatch is returned when downloaded bytes do not match the recorded digest.
	ErrIntegrityMismatch = zerr.New("integrity mismatch")

	// ErrCorruptLockDocument is returned when a lock document cannot be decoded or is inconsistent.
	ErrCorruptLockDocument = zerr.New("corrupt lock document")

	// ErrUnsupportedSchema is returned when a lock document was written by a newer schema.
	ErrUnsupportedSchema = zerr.New("unsupported lock schema version")

	// ErrFilesystem is returned for cache and installer filesystem failures.
	ErrFilesystem = zerr.New("filesystem error")

	// ErrInvalidVersion is returned when a string is not a PEP 440 version.
	ErrInvalidVersion = zerr.New("invalid version")

	// ErrInvalidSpecifier is returned when a version specifier cannot be parsed.
	ErrInvalidSpecifier = zerr.New("invalid version specifier")

	// ErrInvalidMarker is returned when an environment marker cannot be parsed.
	ErrInvalidMarker = zerr.New("invalid environment marker")

	// ErrInvalidRequirement is returned when a requirement string cannot be parsed.
	ErrInvalidRequirement = zerr.New("invalid requirement")

	// ErrDirectURLRequirement is returned for `name @ url` requirements, which are not supported.
	ErrDirectURLRequirement = zerr.New("direct URL requirements are not supported")

	// ErrInvalidPackageName is returned when a package name is not a valid distribution name.
	ErrInvalidPackageName = zerr.New("invalid package name")

	// ErrInvalidFilename is returned when a distribution filename cannot be parsed.
	ErrInvalidFilename = zerr.New("invalid distribution filename")

	// ErrInvalidDigest is returned when a content digest is malformed or uses an unsupported algorithm.
	ErrInvalidDigest = zerr.New("invalid content digest")

	// ErrInvalidGraph is returned when a resolved graph violates its structural invariants.
	ErrInvalidGraph = zerr.New("invalid resolved graph")

	// ErrManifestNotFound is returned when no pyproject.toml is found.
	ErrManifestNotFound = zerr.New("pyproject.toml not found")

	// ErrManifestInvalid is returned when pyproject.toml cannot be parsed.
	ErrManifestInvalid = zerr.New("invalid pyproject.toml")

	// ErrConfigReadFailed is returned when the global configuration cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read configuration")

	// ErrConfigWriteFailed is returned when the global configuration cannot be written.
	ErrConfigWriteFailed = zerr.New("failed to write configuration")

	// ErrMirrorExists is returned when adding a mirror whose name is already configured.
	ErrMirrorExists = zerr.New("mirror already exists")

	// ErrInvalidIndexURL is returned when a mirror URL is not an absolute http(s) URL.
	ErrInvalidIndexURL = zerr.New("invalid index URL")

	// ErrNotADependency is returned when removing a package the manifest does not list.
	ErrNotADependency = zerr.New("package is not a project dependency")

	// ErrMirrorNotFound is returned when a named mirror is not configured.
	ErrMirrorNotFound = zerr.New("mirror not found")

	// ErrNoLockDocument is returned when an operation needs sa.lock and none exists.
	ErrNoLockDocument = zerr.New("no lock document, run `sa lock` first")

	// ErrAdvisoryDBInvalid is returned when an advisory database cannot be read.
	ErrAdvisoryDBInvalid = zerr.New("invalid advisory database")

	// ErrVulnerabilitiesFound is returned by audit when at least one advisory matches.
	ErrVulnerabilitiesFound = zerr.New("vulnerable packages found")

	// ErrPackageNotInGraph is returned when a graph query names a package that is not locked.
	ErrPackageNotInGraph = zerr.New("package not in lock document")

	// ErrInstallFailed is the sentinel matched by *InstallError.
	ErrInstallFailed = zerr.New("installation failed")
)

// Constraint is one requirement placed on a package during resolution,
// together with who placed it.
type Constraint struct {
	Specifier       SpecifierSet
	Requirer        PackageName // zero for root requirements
	RequirerVersion Version
	Chain           []PackageName // root-first path to the requirer
}

// String renders the constraint as "<spec> (required by a 1.0 <- root)".
func (c Constraint) String() string {
	spec := c.Specifier.String()
	if spec == "" {
		spec = "*"
	}
	if c.Requirer.IsZero() {
		return spec + " (root requirement)"
	}
	var b strings.Builder
	b.WriteString(spec)
	b.WriteString(" (required by ")
	b.WriteString(c.Requirer.String())
	if !c.RequirerVersion.IsZero() {
		b.WriteByte(' ')
		b.WriteString(c.RequirerVersion.String())
	}
	for _, link := range slices.Backward(c.Chain) {
		b.WriteString(" <- ")
		b.WriteString(link.String())
	}
	b.WriteByte(')')
	return b.String()
}

// NoSatisfyingVersionError reports a package whose constraints admit no
// available version, with every contributing constraint.
type NoSatisfyingVersionError struct {
	Name        PackageName
	Constraints []Constraint
}

func (e *NoSatisfyingVersionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no version of %s satisfies all constraints", e.Name)
	for _, c := range e.Constraints {
		b.WriteString("\n  ")
		b.WriteString(c.String())
	}
	return b.String()
}

// Is matches ErrNoSatisfyingVersion.
func (e *NoSatisfyingVersionError) Is(target error) bool {
	return target == ErrNoSatisfyingVersion
}

// MetadataFetchError reports a failure to obtain metadata for a package.
type MetadataFetchError struct {
	Name    PackageName
	Version Version // zero when the version list itself failed
	URL     string
	Err     error
}

func (e *MetadataFetchError) Error() string {
	subject := e.Name.String()
	if !e.Version.IsZero() {
		subject += " " + e.Version.String()
	}
	if e.URL != "" {
		subject += " (" + e.URL + ")"
	}
	if e.Err == nil {
		return "fetching metadata for " + subject
	}
	return "fetching metadata for " + subject + ": " + e.Err.Error()
}

// Is matches ErrMetadataFetch.
func (e *MetadataFetchError) Is(target error) bool {
	return target == ErrMetadataFetch
}

func (e *MetadataFetchError) Unwrap() error {
	return e.Err
}

// IntegrityMismatchError reports bytes whose digest differs from the expected one.
type IntegrityMismatchError struct {
	URL      string
	Expected Digest
	Actual   Digest
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("integrity mismatch for %s: expected %s, got %s", e.URL, e.Expected, e.Actual)
}

// Is matches ErrIntegrityMismatch.
func (e *IntegrityMismatchError) Is(target error) bool {
	return target == ErrIntegrityMismatch
}

// InstallError names every package that failed to install.
type InstallError struct {
	Failed map[PackageName]error
}

func (e *InstallError) Error() string {
	names := make([]PackageName, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	slices.SortFunc(names, ComparePackageNames)

	var b strings.Builder
	fmt.Fprintf(&b, "%d package(s) failed to install", len(names))
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %v", name, e.Failed[name])
	}
	return b.String()
}

// Is matches ErrInstallFailed.
func (e *InstallError) Is(target error) bool {
	return target == ErrInstallFailed
}

// Unwrap exposes the per-package causes.
func (e *InstallError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// FilesystemError wraps cause as an ErrFilesystem naming path.
func FilesystemError(cause error, op, path string) error {
	return zerr.With(zerr.Wrap(errors.Join(ErrFilesystem, cause), op), "path", path)
}
