package domain

import "time"

// DefaultIndexURL is the index used when neither the project nor the global
// configuration name one.
const DefaultIndexURL = "https://pypi.org/simple"

// Index is a configured package index.
type Index struct {
	Name string `yaml:"name" toml:"name" json:"name"`
	URL  string `yaml:"url" toml:"url" json:"url"`
}

// ResolveOptions tunes a resolution.
type ResolveOptions struct {
	AllowPreRelease bool
}

// Project is a parsed pyproject.toml.
type Project struct {
	Root                 string
	Name                 string
	Requirements         []Requirement
	OptionalDependencies map[string][]Requirement
	RequiresPython       SpecifierSet
	Indexes              []Index
	MergeIndexes         bool
	PreRelease           bool
	Python               string
	Platforms            []string
}

// RootRequirements returns the project requirements plus those of the
// named optional-dependency groups.
func (p *Project) RootRequirements(groups ...string) []Requirement {
	out := append([]Requirement(nil), p.Requirements...)
	for _, g := range groups {
		out = append(out, p.OptionalDependencies[NormalizeName(g)]...)
	}
	return out
}

// Settings is the global configuration.
type Settings struct {
	CacheDir        string
	Concurrency     int
	Retries         int
	RateLimit       float64 // requests per second per index, 0 disables
	HTTPTimeout     time.Duration
	FreshnessWindow time.Duration
	Retention       time.Duration
	Mirrors         []Index
}

// Defaults for Settings.
const (
	DefaultConcurrency     = 8
	DefaultRetries         = 3
	DefaultRateLimit       = 20.0
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultFreshnessWindow = 10 * time.Minute
	DefaultRetention       = 30 * 24 * time.Hour
)

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		CacheDir:        DefaultCachePath(),
		Concurrency:     DefaultConcurrency,
		Retries:         DefaultRetries,
		RateLimit:       DefaultRateLimit,
		HTTPTimeout:     DefaultHTTPTimeout,
		FreshnessWindow: DefaultFreshnessWindow,
		Retention:       DefaultRetention,
	}
}
