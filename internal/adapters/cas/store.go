// Package cas implements the content-addressed distribution cache.
package cas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

const defaultRetryInterval = 500 * time.Millisecond

// Cache ensure outcomes reported to metrics.
const (
	resultHit      = "hit"
	resultStored   = "stored"
	resultMismatch = "mismatch"
)

// Fetcher performs HTTP requests. *httpcache.Client satisfies it.
type Fetcher interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Options configures a Store.
type Options struct {
	Root    string
	Fetcher Fetcher
	Metrics ports.Metrics
	Retries int

	// RetryInterval is the first download backoff. Zero selects the default.
	RetryInterval time.Duration
	// Clock replaces time.Now for access times and retention.
	Clock func() time.Time
}

// Store implements ports.ContentCache on the local filesystem.
//
// Layout under Root:
//
//	archives/<alg>/<hex>       verified archive
//	unpacked/<alg>/<hex>/      extracted wheel tree
//	entries/<alg>/<hex>.json   entry metadata
//	tmp/                       in-flight downloads
type Store struct {
	root          string
	fetcher       Fetcher
	metrics       ports.Metrics
	retries       uint
	retryInterval time.Duration
	now           func() time.Time
	group         singleflight.Group
}

var _ ports.ContentCache = (*Store)(nil)

// NewStore creates the cache directories under opts.Root.
func NewStore(opts Options) (*Store, error) {
	root := filepath.Clean(opts.Root)
	for _, dir := range []string{
		domain.ArchivesDirName, domain.UnpackedDirName, domain.EntriesDirName, domain.TempDirName,
	} {
		path := filepath.Join(root, dir)
		if err := os.MkdirAll(path, domain.DirPerm); err != nil {
			return nil, domain.FilesystemError(err, "mkdir", path)
		}
	}
	retries := max(opts.Retries, 1)
	retryInterval := opts.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Store{
		root:          root,
		fetcher:       opts.Fetcher,
		metrics:       opts.Metrics,
		retries:       uint(retries), //nolint:gosec // clamped above
		retryInterval: retryInterval,
		now:           now,
	}, nil
}

// Root returns the cache directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) archivePath(d domain.Digest) string {
	return filepath.Join(s.root, domain.ArchivesDirName, d.Algorithm().String(), d.Encoded())
}

func (s *Store) unpackedPath(d domain.Digest) string {
	return filepath.Join(s.root, domain.UnpackedDirName, d.Algorithm().String(), d.Encoded())
}

func (s *Store) entryPath(d domain.Digest) string {
	return filepath.Join(s.root, domain.EntriesDirName, d.Algorithm().String(), d.Encoded()+".json")
}

func (s *Store) tempDir() string {
	return filepath.Join(s.root, domain.TempDirName)
}

// Ensure returns the entry for dist, downloading, verifying and unpacking it
// when absent. Concurrent calls for the same digest share one download.
func (s *Store) Ensure(ctx context.Context, dist domain.Distribution) (domain.CacheEntry, error) {
	if err := dist.Digest.Validate(); err != nil {
		return domain.CacheEntry{}, zerr.With(zerr.Wrap(domain.ErrInvalidDigest, err.Error()), "url", dist.URL)
	}

	// The shared download outlives any one caller; each caller stops
	// waiting when its own context ends.
	ch := s.group.DoChan(dist.Digest.String(), func() (any, error) {
		return s.ensure(context.WithoutCancel(ctx), dist)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.CacheEntry{}, res.Err
		}
		return res.Val.(domain.CacheEntry), nil
	case <-ctx.Done():
		return domain.CacheEntry{}, ctx.Err()
	}
}

func (s *Store) ensure(ctx context.Context, dist domain.Distribution) (domain.CacheEntry, error) {
	entry, ok, err := s.Lookup(dist.Digest)
	if err != nil {
		return domain.CacheEntry{}, err
	}
	if ok {
		s.metrics.ContentCache(resultHit)
		return entry, nil
	}

	tmpArchive, err := s.downloadWithRetry(ctx, dist)
	if err != nil {
		if errors.Is(err, domain.ErrIntegrityMismatch) {
			s.metrics.ContentCache(resultMismatch)
		}
		return domain.CacheEntry{}, err
	}
	defer func() {
		_ = os.Remove(tmpArchive)
	}()

	var tmpTree string
	if dist.Kind == domain.KindWheel {
		tmpTree, err = os.MkdirTemp(s.tempDir(), dist.Digest.Encoded()+".*.d")
		if err != nil {
			return domain.CacheEntry{}, domain.FilesystemError(err, "mkdir", s.tempDir())
		}
		defer func() {
			_ = os.RemoveAll(tmpTree)
		}()
		if err := extractWheel(tmpArchive, tmpTree); err != nil {
			return domain.CacheEntry{}, zerr.With(zerr.With(err, "filename", dist.Filename), "url", dist.URL)
		}
	}

	archive := s.archivePath(dist.Digest)
	if err := renameNoReplace(tmpArchive, archive, false); err != nil {
		return domain.CacheEntry{}, err
	}

	now := s.now().UTC()
	entry = domain.CacheEntry{
		Digest:      dist.Digest,
		Kind:        dist.Kind,
		Filename:    dist.Filename,
		SourceURL:   dist.URL,
		ArchivePath: archive,
		CreatedAt:   now,
		LastAccess:  now,
	}
	if info, err := os.Stat(archive); err == nil {
		entry.Size = info.Size()
	}
	if tmpTree != "" {
		tree := s.unpackedPath(dist.Digest)
		if err := renameNoReplace(tmpTree, tree, true); err != nil {
			return domain.CacheEntry{}, err
		}
		entry.UnpackedPath = tree
	}

	if err := s.writeEntry(entry); err != nil {
		return domain.CacheEntry{}, err
	}
	s.metrics.ContentCache(resultStored)
	return entry, nil
}

// renameNoReplace moves tmp to dst unless dst already exists, in which case
// another writer got there first and tmp is discarded.
func renameNoReplace(tmp, dst string, dir bool) error {
	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return domain.FilesystemError(err, "mkdir", filepath.Dir(dst))
	}
	if _, err := os.Lstat(dst); err == nil {
		return nil
	}
	if err := os.Rename(tmp, dst); err != nil {
		if _, statErr := os.Lstat(dst); statErr == nil && dir {
			return nil
		}
		return domain.FilesystemError(err, "rename", dst)
	}
	return nil
}

func (s *Store) downloadWithRetry(ctx context.Context, dist domain.Distribution) (string, error) {
	op := func() (string, error) {
		path, err := s.download(ctx, dist)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, domain.ErrIntegrityMismatch) || ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	path, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(s.retries))
	if err != nil {
		return "", err
	}
	return path, nil
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d for %s", e.code, e.url)
}

// download streams dist into tmp/ while hashing it and returns the temp path
// once the digest matches. Request failures are permanent here since the
// fetcher already retried them; only an interrupted body is retried.
func (s *Store) download(ctx context.Context, dist domain.Distribution) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dist.URL, nil)
	if err != nil {
		return "", backoff.Permanent(zerr.With(zerr.Wrap(err, "build download request"), "url", dist.URL))
	}
	resp, err := s.fetcher.Do(ctx, req)
	if err != nil {
		return "", backoff.Permanent(zerr.With(zerr.Wrap(err, "download"), "url", dist.URL))
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if resp.StatusCode != http.StatusOK {
		return "", backoff.Permanent(&statusError{url: dist.URL, code: resp.StatusCode})
	}

	f, err := os.CreateTemp(s.tempDir(), dist.Digest.Encoded()+".*.part")
	if err != nil {
		return "", domain.FilesystemError(err, "create temp archive", s.tempDir())
	}
	tmp := f.Name()
	fail := func(err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}

	verifier := dist.Digest.Verifier()
	digester := dist.Digest.Algorithm().Digester()
	if _, err := io.Copy(io.MultiWriter(f, verifier, digester.Hash()), resp.Body); err != nil {
		return fail(zerr.With(zerr.Wrap(err, "download"), "url", dist.URL))
	}
	if !verifier.Verified() {
		return fail(&domain.IntegrityMismatchError{
			URL:      dist.URL,
			Expected: dist.Digest,
			Actual:   digester.Digest(),
		})
	}
	if err := f.Sync(); err != nil {
		return fail(domain.FilesystemError(err, "sync temp archive", tmp))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", domain.FilesystemError(err, "close temp archive", tmp)
	}
	return tmp, nil
}

// Lookup returns the entry for d when both its metadata and archive exist.
// A hit counts as a use and refreshes the entry's last access.
func (s *Store) Lookup(d domain.Digest) (domain.CacheEntry, bool, error) {
	entry, ok, err := s.lookup(d)
	if err != nil || !ok {
		return entry, ok, err
	}
	return s.touch(entry), true, nil
}

func (s *Store) lookup(d domain.Digest) (domain.CacheEntry, bool, error) {
	if err := d.Validate(); err != nil {
		return domain.CacheEntry{}, false, zerr.Wrap(domain.ErrInvalidDigest, err.Error())
	}
	entry, err := s.readEntry(s.entryPath(d))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	if _, err := os.Stat(entry.ArchivePath); err != nil {
		return domain.CacheEntry{}, false, nil
	}
	if entry.UnpackedPath != "" {
		if _, err := os.Stat(entry.UnpackedPath); err != nil {
			return domain.CacheEntry{}, false, nil
		}
	}
	return entry, true, nil
}

func (s *Store) readEntry(path string) (domain.CacheEntry, error) {
	var entry domain.CacheEntry
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from a validated digest
	if err != nil {
		return entry, err
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, domain.FilesystemError(err, "decode cache entry", path)
	}
	if err := entry.Digest.Validate(); err != nil {
		return entry, domain.FilesystemError(err, "decode cache entry", path)
	}
	// Paths follow the digest so a relocated cache root keeps working.
	entry.ArchivePath = s.archivePath(entry.Digest)
	if entry.UnpackedPath != "" {
		entry.UnpackedPath = s.unpackedPath(entry.Digest)
	}
	return entry, nil
}

func (s *Store) writeEntry(entry domain.CacheEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal cache entry")
	}
	return writeFileAtomic(s.entryPath(entry.Digest), data)
}

// touch records an access. Failures only delay garbage collection.
func (s *Store) touch(entry domain.CacheEntry) domain.CacheEntry {
	entry.LastAccess = s.now().UTC()
	_ = s.writeEntry(entry)
	return entry
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return domain.FilesystemError(err, "mkdir", dir)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.FilesystemError(err, "create temp file", dir)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return domain.FilesystemError(err, "write", tmp)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return domain.FilesystemError(err, "close", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return domain.FilesystemError(err, "rename", path)
	}
	return nil
}

// entries lists every readable entry, ordered by digest.
func (s *Store) entries() ([]domain.CacheEntry, error) {
	base := filepath.Join(s.root, domain.EntriesDirName)
	var out []domain.CacheEntry
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		entry, err := s.readEntry(path)
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are treated as absent
		}
		out = append(out, entry)
		return nil
	})
	if err != nil {
		return nil, domain.FilesystemError(err, "list cache entries", base)
	}
	slices.SortFunc(out, func(a, b domain.CacheEntry) int { return strings.Compare(a.Digest.String(), b.Digest.String()) })
	return out, nil
}

func (s *Store) tempFiles() ([]os.DirEntry, error) {
	files, err := os.ReadDir(s.tempDir())
	if err != nil {
		return nil, domain.FilesystemError(err, "list temp files", s.tempDir())
	}
	return files, nil
}

// Stats summarizes the cache contents.
func (s *Store) Stats(ctx context.Context) (domain.CacheStats, error) {
	stats := domain.CacheStats{Root: s.root}
	entries, err := s.entries()
	if err != nil {
		return stats, err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Entries++
		stats.ArchiveBytes += e.Size
	}
	tmp, err := s.tempFiles()
	if err != nil {
		return stats, err
	}
	stats.TempFiles = len(tmp)
	return stats, nil
}

// Verify re-hashes every archive. Corrupt and missing entries are evicted so
// the next Ensure downloads them again.
func (s *Store) Verify(ctx context.Context) (domain.VerifyReport, error) {
	var report domain.VerifyReport
	entries, err := s.entries()
	if err != nil {
		return report, err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		ok, err := verifyArchive(e)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			report.Missing = append(report.Missing, e.Digest)
		case err != nil:
			return report, err
		case !ok:
			report.Corrupt = append(report.Corrupt, e.Digest)
		default:
			continue
		}
		if err := s.remove(e); err != nil {
			return report, err
		}
	}
	return report, nil
}

func verifyArchive(e domain.CacheEntry) (bool, error) {
	f, err := os.Open(e.ArchivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
		return false, domain.FilesystemError(err, "open archive", e.ArchivePath)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	verifier := e.Digest.Verifier()
	if _, err := io.Copy(verifier, f); err != nil {
		return false, domain.FilesystemError(err, "read archive", e.ArchivePath)
	}
	return verifier.Verified(), nil
}

// GC removes entries outside keep whose last access is older than retention,
// and temp files older than retention.
func (s *Store) GC(ctx context.Context, keep map[domain.Digest]struct{}, retention time.Duration) (domain.GCReport, error) {
	var report domain.GCReport
	cutoff := s.now().Add(-retention)

	entries, err := s.entries()
	if err != nil {
		return report, err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, kept := keep[e.Digest]; kept || e.LastAccess.After(cutoff) {
			continue
		}
		if err := s.remove(e); err != nil {
			return report, err
		}
		report.Removed = append(report.Removed, e.Digest)
		report.FreedBytes += e.Size
	}

	tmp, err := s.tempFiles()
	if err != nil {
		return report, err
	}
	for _, f := range tmp {
		info, err := f.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.tempDir(), f.Name())
		if err := os.RemoveAll(path); err != nil {
			return report, domain.FilesystemError(err, "remove temp file", path)
		}
		report.TempFiles++
	}
	return report, nil
}

// Remove deletes the entries for digests. Absent digests are skipped.
func (s *Store) Remove(ctx context.Context, digests []domain.Digest) (domain.GCReport, error) {
	var report domain.GCReport
	for _, d := range digests {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		e, ok, err := s.lookup(d)
		if err != nil {
			return report, err
		}
		if !ok {
			continue
		}
		if err := s.remove(e); err != nil {
			return report, err
		}
		report.Removed = append(report.Removed, e.Digest)
		report.FreedBytes += e.Size
	}
	return report, nil
}

// remove deletes the metadata first so a half-removed entry is a miss.
func (s *Store) remove(e domain.CacheEntry) error {
	for _, path := range []string{s.entryPath(e.Digest), s.archivePath(e.Digest), s.unpackedPath(e.Digest)} {
		if err := os.RemoveAll(path); err != nil {
			return domain.FilesystemError(err, "remove cache entry", path)
		}
	}
	return nil
}
