package ports

import (
	"context"
	"time"

	"go.trai.ch/sa/internal/core/domain"
)

// ContentCache stores verified distribution archives and their unpacked trees.
//
//go:generate mockgen -source=cache.go -destination=mocks/mock_cache.go -package=mocks
type ContentCache interface {
	// Ensure returns the entry for dist, downloading and verifying it if absent.
	Ensure(ctx context.Context, dist domain.Distribution) (domain.CacheEntry, error)

	// Lookup returns the entry for d if present and records the access.
	Lookup(d domain.Digest) (domain.CacheEntry, bool, error)

	// Stats summarizes the cache contents.
	Stats(ctx context.Context) (domain.CacheStats, error)

	// Verify re-hashes every archive.
	Verify(ctx context.Context) (domain.VerifyReport, error)

	// GC removes entries outside keep that were not accessed within retention.
	GC(ctx context.Context, keep map[domain.Digest]struct{}, retention time.Duration) (domain.GCReport, error)

	// Remove deletes the entries for digests regardless of their last access.
	// Digests that are not cached are skipped.
	Remove(ctx context.Context, digests []domain.Digest) (domain.GCReport, error)

	// Root returns the cache directory.
	Root() string
}
