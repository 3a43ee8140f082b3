package domain

import "time"

// CacheEntry describes one verified artifact in the content cache.
type CacheEntry struct {
	Digest       Digest    `json:"digest"`
	Kind         DistKind  `json:"kind"`
	Filename     string    `json:"filename"`
	SourceURL    string    `json:"source_url"`
	Size         int64     `json:"size"`
	ArchivePath  string    `json:"archive_path"`
	UnpackedPath string    `json:"unpacked_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccess   time.Time `json:"last_access"`
}

// CacheStats summarizes the content cache.
type CacheStats struct {
	Root         string
	Entries      int
	ArchiveBytes int64
	TempFiles    int
}

// VerifyReport lists entries whose archive no longer matches its digest.
type VerifyReport struct {
	Checked int
	Corrupt []Digest
	Missing []Digest
}

// GCReport describes what a garbage collection pass removed.
type GCReport struct {
	Removed    []Digest
	FreedBytes int64
	TempFiles  int
}
