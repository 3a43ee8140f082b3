package config

import (
	"time"

	"go.trai.ch/sa/internal/core/domain"
)

// Pyproject is the subset of pyproject.toml read by sa.
type Pyproject struct {
	Project ProjectTable `toml:"project"`
	Tool    ToolTable    `toml:"tool"`
}

// ProjectTable is the [project] table.
type ProjectTable struct {
	Name                 string              `toml:"name"`
	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	RequiresPython       string              `toml:"requires-python"`
}

// ToolTable is the [tool] table.
type ToolTable struct {
	SA SATable `toml:"sa"`
}

// SATable is the [tool.sa] table.
type SATable struct {
	Indexes      []domain.Index `toml:"indexes"`
	MergeIndexes bool           `toml:"merge-indexes"`
	PreRelease   bool           `toml:"prerelease"`
	Python       string         `toml:"python"`
	Platforms    []string       `toml:"platforms"`
}

// SettingsFile is the global config.yaml.
type SettingsFile struct {
	CacheDir        string         `yaml:"cache_dir,omitempty" mapstructure:"cache_dir"`
	Concurrency     int            `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
	Retries         int            `yaml:"retries,omitempty" mapstructure:"retries"`
	RateLimit       float64        `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
	HTTPTimeout     time.Duration  `yaml:"http_timeout,omitempty" mapstructure:"http_timeout"`
	FreshnessWindow time.Duration  `yaml:"freshness_window,omitempty" mapstructure:"freshness_window"`
	Retention       time.Duration  `yaml:"retention,omitempty" mapstructure:"retention"`
	Mirrors         []domain.Index `yaml:"mirrors,omitempty" mapstructure:"mirrors"`
}
