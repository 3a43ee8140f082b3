package domain

import (
	"os"
	"path/filepath"
)

const (
	// AppName is used for the cache and configuration directory names.
	AppName = "sa"

	// LockFileName is the name of the lock document at the project root.
	LockFileName = "sa.lock"

	// ManifestFileName is the name of the project manifest.
	ManifestFileName = "pyproject.toml"

	// ConfigFileName is the name of the global configuration file.
	ConfigFileName = "config.yaml"

	// EnvMetaDirName is the per-environment bookkeeping directory.
	EnvMetaDirName = ".sa"

	// InstalledDirName holds one installed-files record per package.
	InstalledDirName = "installed"

	// SitePackagesDirName is where packages are linked inside an environment.
	SitePackagesDirName = "site-packages"

	// DefaultEnvDirName is the environment directory used when none is given.
	DefaultEnvDirName = ".venv"

	// HTTPCacheDirName holds cached index responses inside the cache root.
	HTTPCacheDirName = "http"

	// ArchivesDirName holds verified archives inside the cache root.
	ArchivesDirName = "archives"

	// UnpackedDirName holds extracted trees inside the cache root.
	UnpackedDirName = "unpacked"

	// EntriesDirName holds cache entry metadata inside the cache root.
	EntriesDirName = "entries"

	// TempDirName holds in-flight downloads inside the cache root.
	TempDirName = "tmp"

	// CacheDirEnv overrides the cache root.
	CacheDirEnv = "SA_CACHE_DIR"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultCachePath returns $SA_CACHE_DIR, or <user cache dir>/sa.
// It falls back to a relative .sa-cache when the platform has no cache dir.
func DefaultCachePath() string {
	if dir := os.Getenv(CacheDirEnv); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return ".sa-cache"
	}
	return filepath.Join(base, AppName)
}

// DefaultConfigPath returns <user config dir>/sa/config.yaml.
func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join("."+AppName, ConfigFileName)
	}
	return filepath.Join(base, AppName, ConfigFileName)
}

// LockPath returns the lock document path for a project root.
func LockPath(projectRoot string) string {
	return filepath.Join(projectRoot, LockFileName)
}

// ManifestPath returns the pyproject.toml path for a project root.
func ManifestPath(projectRoot string) string {
	return filepath.Join(projectRoot, ManifestFileName)
}

// SitePackagesPath returns the link destination inside an environment.
func SitePackagesPath(env string) string {
	return filepath.Join(env, SitePackagesDirName)
}

// InstalledRecordPath returns the installed-files record for a package.
func InstalledRecordPath(env string, name PackageName) string {
	return filepath.Join(env, EnvMetaDirName, InstalledDirName, name.String()+".json")
}
