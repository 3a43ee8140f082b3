package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. SA_CONCURRENCY.
const EnvPrefix = "SA"

// SettingsStore implements ports.SettingsStore on a YAML file read with viper.
type SettingsStore struct {
	path string
}

var _ ports.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore creates a store for the config file at path.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Path returns the config file location.
func (s *SettingsStore) Path() string {
	return s.path
}

// Load merges defaults, the config file (if present) and SA_* variables.
func (s *SettingsStore) Load() (domain.Settings, error) {
	defaults := domain.DefaultSettings()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("retries", defaults.Retries)
	v.SetDefault("rate_limit", defaults.RateLimit)
	v.SetDefault("http_timeout", defaults.HTTPTimeout)
	v.SetDefault("freshness_window", defaults.FreshnessWindow)
	v.SetDefault("retention", defaults.Retention)
	v.SetDefault("mirrors", []map[string]string{})
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fileExists(s.path) {
		v.SetConfigFile(s.path)
		if err := v.ReadInConfig(); err != nil {
			return domain.Settings{}, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", s.path)
		}
	}

	var file SettingsFile
	if err := v.Unmarshal(&file); err != nil {
		return domain.Settings{}, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", s.path)
	}

	settings := domain.Settings{
		CacheDir:        file.CacheDir,
		Concurrency:     file.Concurrency,
		Retries:         file.Retries,
		RateLimit:       file.RateLimit,
		HTTPTimeout:     file.HTTPTimeout,
		FreshnessWindow: file.FreshnessWindow,
		Retention:       file.Retention,
		Mirrors:         file.Mirrors,
	}
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}
	if settings.Retries < 1 {
		settings.Retries = 1
	}
	return settings, nil
}

// SaveMirrors replaces the mirror list in the config file, keeping every
// other key.
func (s *SettingsStore) SaveMirrors(mirrors []domain.Index) error {
	doc := map[string]any{}
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", s.path)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case !os.IsNotExist(err):
		return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", s.path)
	}

	if len(mirrors) == 0 {
		delete(doc, "mirrors")
	} else {
		doc["mirrors"] = mirrors
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigWriteFailed, err.Error()), "path", s.path)
	}
	if err := writeFileAtomic(s.path, out, domain.PrivateFilePerm); err != nil {
		return zerr.Wrap(errors.Join(domain.ErrConfigWriteFailed, err), "save mirrors")
	}
	return nil
}
