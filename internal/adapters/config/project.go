// Package config loads pyproject.toml manifests and the global settings file.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
)

// ProjectLoader implements ports.ProjectLoader for pyproject.toml.
type ProjectLoader struct{}

var _ ports.ProjectLoader = (*ProjectLoader)(nil)

// NewProjectLoader creates a ProjectLoader.
func NewProjectLoader() *ProjectLoader {
	return &ProjectLoader{}
}

// FindRoot walks up from dir to the first directory holding pyproject.toml.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "resolve directory"), "dir", dir)
	}
	for current := abs; ; {
		if fileExists(domain.ManifestPath(current)) {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", zerr.With(zerr.Wrap(domain.ErrManifestNotFound, "no "+domain.ManifestFileName+" in any parent"), "dir", abs)
		}
		current = parent
	}
}

// Load reads the manifest governing dir.
func (l *ProjectLoader) Load(dir string) (*domain.Project, error) {
	root, err := FindRoot(dir)
	if err != nil {
		return nil, err
	}
	path := domain.ManifestPath(root)
	data, err := os.ReadFile(path) //nolint:gosec // path is discovered from the working directory
	if err != nil {
		return nil, domain.FilesystemError(err, "read", path)
	}
	return ParseProject(root, data)
}

// ParseProject parses pyproject.toml content for the project at root.
func ParseProject(root string, data []byte) (*domain.Project, error) {
	path := domain.ManifestPath(root)
	var doc Pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, manifestError(err, path)
	}

	project := &domain.Project{
		Root:         root,
		Name:         doc.Project.Name,
		Indexes:      doc.Tool.SA.Indexes,
		MergeIndexes: doc.Tool.SA.MergeIndexes,
		PreRelease:   doc.Tool.SA.PreRelease,
		Python:       doc.Tool.SA.Python,
		Platforms:    doc.Tool.SA.Platforms,
	}

	reqs, err := parseRequirements(doc.Project.Dependencies)
	if err != nil {
		return nil, manifestError(err, path)
	}
	project.Requirements = reqs

	if len(doc.Project.OptionalDependencies) > 0 {
		project.OptionalDependencies = make(map[string][]domain.Requirement, len(doc.Project.OptionalDependencies))
		for group, list := range doc.Project.OptionalDependencies {
			reqs, err := parseRequirements(list)
			if err != nil {
				return nil, zerr.With(manifestError(err, path), "group", group)
			}
			project.OptionalDependencies[domain.NormalizeName(group)] = reqs
		}
	}

	if doc.Project.RequiresPython != "" {
		spec, err := domain.ParseSpecifierSet(doc.Project.RequiresPython)
		if err != nil {
			return nil, manifestError(err, path)
		}
		project.RequiresPython = spec
	}

	for i, idx := range project.Indexes {
		if idx.URL == "" {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrManifestInvalid, "index without url"), "path", path), "index", i)
		}
	}
	return project, nil
}

func parseRequirements(list []string) ([]domain.Requirement, error) {
	out := make([]domain.Requirement, 0, len(list))
	for _, s := range list {
		r, err := domain.ParseRequirement(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func manifestError(err error, path string) error {
	return zerr.With(zerr.Wrap(errors.Join(domain.ErrManifestInvalid, err), "parse manifest"), "path", path)
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
