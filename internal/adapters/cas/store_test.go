package cas_test

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/adapters/cas"
	"go.trai.ch/sa/internal/adapters/httpcache"
	"go.trai.ch/sa/internal/adapters/telemetry"
	"go.trai.ch/sa/internal/core/domain"
	"golang.org/x/sync/errgroup"
)

type fileServer struct {
	srv   *httptest.Server
	mu    sync.Mutex
	files map[string][]byte
	hits  atomic.Int32
}

func newFileServer(t *testing.T) *fileServer {
	t.Helper()
	f := &fileServer{files: map[string][]byte{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.mu.Lock()
		data, ok := f.files[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fileServer) add(name string, data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files["/"+name] = data
	return f.srv.URL + "/" + name
}

func makeWheel(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sampleWheel(t *testing.T) []byte {
	t.Helper()
	return makeWheel(t, map[string]string{
		"pkg/__init__.py":            "VALUE = 1\n",
		"pkg-1.0.dist-info/METADATA": "Metadata-Version: 2.1\nName: pkg\nVersion: 1.0\n",
	})
}

func newStore(t *testing.T) *cas.Store {
	t.Helper()
	metrics := telemetry.NewMetrics()
	client, err := httpcache.New(httpcache.Options{
		Dir:           t.TempDir(),
		Retries:       3,
		Metrics:       metrics,
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)

	s, err := cas.NewStore(cas.Options{
		Root:          t.TempDir(),
		Fetcher:       client,
		Metrics:       metrics,
		Retries:       3,
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return s
}

func wheelDist(url string, data []byte) domain.Distribution {
	return domain.Distribution{
		Kind:     domain.KindWheel,
		Filename: "pkg-1.0-py3-none-any.whl",
		URL:      url,
		Size:     int64(len(data)),
		Digest:   digest.FromBytes(data),
	}
}

func TestStore_EnsureDownloadsOnce(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	data := sampleWheel(t)
	dist := wheelDist(files.add("pkg-1.0-py3-none-any.whl", data), data)
	s := newStore(t)

	entry, err := s.Ensure(t.Context(), dist)
	require.NoError(t, err)
	assert.Equal(t, dist.Digest, entry.Digest)
	assert.Equal(t, int64(len(data)), entry.Size)
	assert.Equal(t, filepath.Join(s.Root(), "archives", "sha256", dist.Digest.Encoded()), entry.ArchivePath)

	archived, err := os.ReadFile(entry.ArchivePath)
	require.NoError(t, err)
	assert.Equal(t, data, archived)

	initPy, err := os.ReadFile(filepath.Join(entry.UnpackedPath, "pkg", "__init__.py"))
	require.NoError(t, err)
	assert.Equal(t, "VALUE = 1\n", string(initPy))

	again, err := s.Ensure(t.Context(), dist)
	require.NoError(t, err)
	assert.Equal(t, entry.ArchivePath, again.ArchivePath)
	assert.Equal(t, int32(1), files.hits.Load())

	found, ok, err := s.Lookup(dist.Digest)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry.UnpackedPath, found.UnpackedPath)

	tmp, err := os.ReadDir(filepath.Join(s.Root(), "tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmp)
}

func TestStore_EnsureConcurrentSameDigest(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	data := sampleWheel(t)
	dist := wheelDist(files.add("pkg-1.0-py3-none-any.whl", data), data)
	s := newStore(t)

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			_, err := s.Ensure(t.Context(), dist)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), files.hits.Load())

	stats, err := s.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
	assert.Zero(t, stats.TempFiles)
}

func TestStore_EnsureCanceledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()

	data := sampleWheel(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	unblock := sync.OnceFunc(func() { close(release) })
	t.Cleanup(unblock)
	dist := wheelDist(srv.URL+"/pkg-1.0-py3-none-any.whl", data)
	s := newStore(t)

	ctx, cancel := context.WithCancel(t.Context())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Ensure(ctx, dist)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		entry domain.CacheEntry
		err   error
	}
	second := make(chan outcome, 1)
	go func() {
		entry, err := s.Ensure(t.Context(), dist)
		second <- outcome{entry, err}
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	unblock()
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, dist.Digest, got.entry.Digest)
	assert.DirExists(t, got.entry.UnpackedPath)
	assert.Equal(t, int32(1), hits.Load())
}

func TestStore_EnsureIntegrityMismatch(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	data := sampleWheel(t)
	url := files.add("pkg-1.0-py3-none-any.whl", []byte("tampered"))
	dist := wheelDist(url, data)
	s := newStore(t)

	_, err := s.Ensure(t.Context(), dist)
	require.ErrorIs(t, err, domain.ErrIntegrityMismatch)

	var mismatch *domain.IntegrityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, dist.Digest, mismatch.Expected)
	assert.Equal(t, digest.FromString("tampered"), mismatch.Actual)
	assert.Equal(t, int32(1), files.hits.Load(), "mismatches are never retried")

	_, ok, err := s.Lookup(dist.Digest)
	require.NoError(t, err)
	assert.False(t, ok)

	tmp, err := os.ReadDir(filepath.Join(s.Root(), "tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmp)
}

func TestStore_EnsureNotFound(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	data := sampleWheel(t)
	dist := wheelDist(files.srv.URL+"/missing.whl", data)

	_, err := newStore(t).Ensure(t.Context(), dist)
	require.Error(t, err)
	assert.Equal(t, int32(1), files.hits.Load())
}

func TestStore_EnsureSourceDist(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	data := []byte("not really a tarball")
	dist := domain.Distribution{
		Kind:     domain.KindSourceDist,
		Filename: "pkg-1.0.tar.gz",
		URL:      files.add("pkg-1.0.tar.gz", data),
		Digest:   digest.FromBytes(data),
	}

	entry, err := newStore(t).Ensure(t.Context(), dist)
	require.NoError(t, err)
	assert.Empty(t, entry.UnpackedPath)
	assert.Equal(t, domain.KindSourceDist, entry.Kind)
}

func TestStore_EnsureInvalidDigest(t *testing.T) {
	t.Parallel()

	_, err := newStore(t).Ensure(t.Context(), domain.Distribution{URL: "http://x/y.whl", Digest: "sha256:zz"})
	require.ErrorIs(t, err, domain.ErrInvalidDigest)
}

func TestStore_VerifyDetectsTampering(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	data := sampleWheel(t)
	dist := wheelDist(files.add("pkg-1.0-py3-none-any.whl", data), data)
	s := newStore(t)

	entry, err := s.Ensure(t.Context(), dist)
	require.NoError(t, err)

	report, err := s.Verify(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Empty(t, report.Corrupt)

	require.NoError(t, os.WriteFile(entry.ArchivePath, []byte("evil"), 0o600))

	report, err = s.Verify(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []domain.Digest{dist.Digest}, report.Corrupt)

	_, ok, err := s.Lookup(dist.Digest)
	require.NoError(t, err)
	assert.False(t, ok, "corrupt entries are evicted")

	_, err = s.Ensure(t.Context(), dist)
	require.NoError(t, err)
	assert.Equal(t, int32(2), files.hits.Load())

	restored, err := os.ReadFile(entry.ArchivePath)
	require.NoError(t, err)
	assert.Equal(t, data, restored)
}

func TestStore_LookupRefreshesLastAccess(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	data := sampleWheel(t)
	dist := wheelDist(files.add("pkg-1.0-py3-none-any.whl", data), data)
	s := newStore(t)

	day := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return day })
	_, err := s.Ensure(t.Context(), dist)
	require.NoError(t, err)

	for range 30 {
		day = day.Add(24 * time.Hour)
		entry, ok, err := s.Lookup(dist.Digest)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, day, entry.LastAccess)
	}

	day = day.Add(24 * time.Hour)
	report, err := s.GC(t.Context(), nil, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)

	_, ok, err := s.Lookup(dist.Digest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_StatsAndGC(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	s := newStore(t)

	past := time.Now().Add(-100 * time.Hour)
	s.SetClock(func() time.Time { return past })

	keepData := makeWheel(t, map[string]string{"keep/__init__.py": ""})
	dropData := makeWheel(t, map[string]string{"drop/__init__.py": ""})
	keep := wheelDist(files.add("keep-1.0-py3-none-any.whl", keepData), keepData)
	drop := wheelDist(files.add("drop-1.0-py3-none-any.whl", dropData), dropData)
	_, err := s.Ensure(t.Context(), keep)
	require.NoError(t, err)
	_, err = s.Ensure(t.Context(), drop)
	require.NoError(t, err)

	stale := filepath.Join(s.Root(), "tmp", "orphan.part")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(stale, past, past))

	stats, err := s.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(len(keepData)+len(dropData)), stats.ArchiveBytes)
	assert.Equal(t, 1, stats.TempFiles)

	s.SetClock(time.Now)
	report, err := s.GC(t.Context(), map[domain.Digest]struct{}{keep.Digest: {}}, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []domain.Digest{drop.Digest}, report.Removed)
	assert.Equal(t, int64(len(dropData)), report.FreedBytes)
	assert.Equal(t, 1, report.TempFiles)

	_, ok, err := s.Lookup(keep.Digest)
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = s.Lookup(drop.Digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_GCKeepsRecentlyUsed(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	data := sampleWheel(t)
	dist := wheelDist(files.add("pkg-1.0-py3-none-any.whl", data), data)
	s := newStore(t)

	_, err := s.Ensure(t.Context(), dist)
	require.NoError(t, err)

	report, err := s.GC(t.Context(), nil, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
}

func TestStore_RemoveIgnoresRecentAccess(t *testing.T) {
	t.Parallel()

	files := newFileServer(t)
	data := sampleWheel(t)
	dist := wheelDist(files.add("pkg-1.0-py3-none-any.whl", data), data)
	other := makeWheel(t, map[string]string{"other/__init__.py": ""})
	otherDist := wheelDist(files.add("other-1.0-py3-none-any.whl", other), other)
	s := newStore(t)

	entry, err := s.Ensure(t.Context(), dist)
	require.NoError(t, err)
	_, err = s.Ensure(t.Context(), otherDist)
	require.NoError(t, err)

	absent := digest.FromString("absent")
	report, err := s.Remove(t.Context(), []domain.Digest{dist.Digest, absent})
	require.NoError(t, err)
	assert.Equal(t, []domain.Digest{dist.Digest}, report.Removed)
	assert.Equal(t, int64(len(data)), report.FreedBytes)
	assert.NoDirExists(t, entry.UnpackedPath)

	_, ok, err := s.Lookup(dist.Digest)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Lookup(otherDist.Digest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExtractWheel_RejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"../evil.py", "/abs/evil.py", "pkg/../../evil.py"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			archive := filepath.Join(dir, "bad.whl")
			require.NoError(t, os.WriteFile(archive, makeWheel(t, map[string]string{name: "x"}), 0o600))

			dest := filepath.Join(dir, "out")
			require.NoError(t, os.Mkdir(dest, 0o750))
			err := cas.ExtractWheel(archive, dest)
			require.ErrorIs(t, err, cas.ErrUnsafeArchivePath)

			_, statErr := os.Stat(filepath.Join(dir, "evil.py"))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}
