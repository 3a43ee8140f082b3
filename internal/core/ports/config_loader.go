package ports

import "go.trai.ch/sa/internal/core/domain"

// ProjectLoader reads and updates pyproject.toml.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ProjectLoader interface {
	// Load parses the manifest in dir.
	Load(dir string) (*domain.Project, error)

	// AddDependencies appends reqs to [project].dependencies, replacing
	// existing entries for the same package.
	AddDependencies(dir string, reqs []domain.Requirement) error

	// RemoveDependencies drops the entries for names from
	// [project].dependencies.
	RemoveDependencies(dir string, names []domain.PackageName) error
}

// SettingsStore reads global settings and persists the mirror list.
type SettingsStore interface {
	// Load returns the effective settings, with environment overrides applied.
	Load() (domain.Settings, error)

	// SaveMirrors replaces the configured mirror list.
	SaveMirrors(mirrors []domain.Index) error
}
