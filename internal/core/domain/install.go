package domain

// InstallItem pairs a locked package with its cache entry.
type InstallItem struct {
	Name    PackageName
	Version Version
	Entry   CacheEntry
}

// InstalledRecord is written per package under <env>/.sa/installed.
type InstalledRecord struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Digest  Digest   `json:"digest"`
	Files   []string `json:"files"`
}

// InstallReport summarizes an install run.
type InstallReport struct {
	Installed []PackageName
	Failed    []PackageName
	Linked    int
	Copied    int
	Unchanged int
}
