package index_test

import (
	"strings"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/adapters/httpcache"
	"go.trai.ch/sa/internal/adapters/index"
	"go.trai.ch/sa/internal/adapters/telemetry"
	"go.trai.ch/sa/internal/core/domain"
)

const fooMetadata = "Metadata-Version: 2.1\n" +
	"Name: foo\n" +
	"Version: 1.0\n" +
	"Requires-Dist: bar>=2\n" +
	"Requires-Dist: baz ; extra == \"fast\"\n" +
	"Description-Content-Type: text/markdown\n" +
	"\n" +
	"Requires-Dist: not-a-header\n"

func newClient(t *testing.T, dir string) *httpcache.Client {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	c, err := httpcache.New(httpcache.Options{
		Dir:           dir,
		Freshness:     time.Hour,
		Retries:       2,
		Metrics:       telemetry.NewMetrics(),
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func depStrings(reqs []domain.Requirement) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.String())
	}
	return out
}

func TestProvider_Versions(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	fi.setPage("foo",
		fi.addFile("foo-1.0-py3-none-any.whl", []byte("w1"), map[string]any{
			"core-metadata":   map[string]string{"sha256": "00"},
			"requires-python": ">=3.8",
			"upload-time":     "2024-01-02T03:04:05.123456Z",
		}),
		fi.addFile("foo-1.0.tar.gz", []byte("s1"), nil),
		fi.addFile("foo-2.0b1-py3-none-any.whl", []byte("w2"), map[string]any{"yanked": "broken"}),
		fi.addFile("other-1.0-py3-none-any.whl", []byte("x"), nil),
		map[string]any{"filename": "foo-3.0-py3-none-any.whl", "url": "x", "hashes": map[string]string{"md5": "y"}},
	)

	p := index.NewProvider(newClient(t, ""), []domain.Index{{Name: "fake", URL: fi.URL()}}, false)
	cands, err := p.Versions(t.Context(), domain.NewPackageName("Foo"))
	require.NoError(t, err)
	require.Len(t, cands, 2)

	v1 := cands[0]
	assert.Equal(t, "1.0", v1.Version.String())
	assert.Equal(t, fi.URL(), v1.Index)
	require.Len(t, v1.Distributions, 2)
	wheel := v1.Distributions[0]
	assert.True(t, wheel.IsWheel())
	assert.True(t, wheel.CoreMetadata)
	assert.Empty(t, wheel.MetadataDigest, "malformed metadata hashes are dropped")
	assert.Equal(t, fi.srv.URL+"/files/foo-1.0-py3-none-any.whl", wheel.URL)
	assert.Equal(t, ">=3.8", wheel.RequiresPython.String())
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC), wheel.UploadTime)
	assert.Equal(t, int64(2), wheel.Size)
	assert.Equal(t, domain.KindSourceDist, v1.Distributions[1].Kind)
	assert.False(t, v1.Distributions[1].CoreMetadata)

	assert.True(t, cands[1].Version.IsPreRelease())
	assert.True(t, cands[1].Distributions[0].Yanked)
}

func TestProvider_Versions_Unknown(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	p := index.NewProvider(newClient(t, ""), []domain.Index{{URL: fi.URL()}, {URL: fi.URL() + "2"}}, false)
	_, err := p.Versions(t.Context(), domain.NewPackageName("nope"))
	require.ErrorIs(t, err, domain.ErrUnknownPackage)
}

func TestProvider_Versions_Malformed(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	fi.files["/simple/broken/"] = []byte("{not json")

	p := index.NewProvider(newClient(t, ""), []domain.Index{{URL: fi.URL()}}, false)
	_, err := p.Versions(t.Context(), domain.NewPackageName("broken"))
	require.ErrorIs(t, err, domain.ErrMetadataFetch)

	var mfe *domain.MetadataFetchError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, "broken", mfe.Name.String())
}

func TestProvider_Versions_MultipleIndexes(t *testing.T) {
	t.Parallel()

	primary := newFakeIndex(t)
	primary.setPage("foo", primary.addFile("foo-1.0-py3-none-any.whl", []byte("p1"), nil))
	secondary := newFakeIndex(t)
	secondary.setPage("foo",
		secondary.addFile("foo-1.0-py3-none-any.whl", []byte("s1"), nil),
		secondary.addFile("foo-2.0-py3-none-any.whl", []byte("s2"), nil),
	)
	secondary.setPage("only-here", secondary.addFile("only_here-0.1-py3-none-any.whl", []byte("o"), nil))
	indexes := []domain.Index{{URL: primary.URL()}, {URL: secondary.URL()}}

	first, err := index.NewProvider(newClient(t, ""), indexes, false).Versions(t.Context(), domain.NewPackageName("foo"))
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, primary.URL(), first[0].Index)

	fallback, err := index.NewProvider(newClient(t, ""), indexes, false).Versions(t.Context(), domain.NewPackageName("only-here"))
	require.NoError(t, err)
	require.Len(t, fallback, 1)
	assert.Equal(t, secondary.URL(), fallback[0].Index)

	merged, err := index.NewProvider(newClient(t, ""), indexes, true).Versions(t.Context(), domain.NewPackageName("foo"))
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, primary.URL(), merged[0].Index, "earlier index wins per version")
	assert.Equal(t, "2.0", merged[1].Version.String())
	assert.Equal(t, secondary.URL(), merged[1].Index)
}

func versionsOf(t *testing.T, p *index.Provider, name string) domain.Candidate {
	t.Helper()
	cands, err := p.Versions(t.Context(), domain.NewPackageName(name))
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	return cands[0]
}

func TestProvider_Dependencies_MetadataFile(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	fi.setPage("foo", fi.addFile("foo-1.0-py3-none-any.whl", []byte("wheel"), map[string]any{"core-metadata": true}))
	fi.addMetadata("foo-1.0-py3-none-any.whl", fooMetadata)

	cacheDir := t.TempDir()
	p := index.NewProvider(newClient(t, cacheDir), []domain.Index{{URL: fi.URL()}}, false)
	cand := versionsOf(t, p, "foo")

	deps, err := p.Dependencies(t.Context(), cand, cand.Distributions[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"bar>=2", `baz; extra == "fast"`}, depStrings(deps))
	assert.Contains(t, fi.requestLog(), "GET /files/foo-1.0-py3-none-any.whl.metadata bytes=0-65535")

	// A fresh provider over the same cache answers without the network.
	before := len(fi.requestLog())
	again := index.NewProvider(newClient(t, cacheDir), []domain.Index{{URL: fi.URL()}}, false)
	deps, err = again.Dependencies(t.Context(), cand, cand.Distributions[0])
	require.NoError(t, err)
	assert.Len(t, deps, 2)
	assert.Len(t, fi.requestLog(), before)
}

func TestProvider_Dependencies_VerifiedMetadataFile(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	fi.setPage("foo", fi.addFile("foo-1.0-py3-none-any.whl", []byte("wheel"), map[string]any{
		"data-dist-info-metadata": map[string]string{"sha256": digest.FromString(fooMetadata).Encoded()},
	}))
	fi.addMetadata("foo-1.0-py3-none-any.whl", fooMetadata)

	p := index.NewProvider(newClient(t, ""), []domain.Index{{URL: fi.URL()}}, false)
	cand := versionsOf(t, p, "foo")
	assert.Equal(t, digest.FromString(fooMetadata), cand.Distributions[0].MetadataDigest)

	deps, err := p.Dependencies(t.Context(), cand, cand.Distributions[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"bar>=2", `baz; extra == "fast"`}, depStrings(deps))
	assert.Contains(t, fi.requestLog(), "GET /files/foo-1.0-py3-none-any.whl.metadata ", "hashed metadata is fetched whole")
}

func TestProvider_Dependencies_MetadataFileMismatch(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	fi.setPage("foo", fi.addFile("foo-1.0-py3-none-any.whl", []byte("wheel"), map[string]any{
		"core-metadata": map[string]string{"sha256": digest.FromString(fooMetadata).Encoded()},
	}))
	tampered := strings.Replace(fooMetadata, "bar>=2", "evil>=0", 1)
	fi.addMetadata("foo-1.0-py3-none-any.whl", tampered)

	cacheDir := t.TempDir()
	p := index.NewProvider(newClient(t, cacheDir), []domain.Index{{URL: fi.URL()}}, false)
	cand := versionsOf(t, p, "foo")

	_, err := p.Dependencies(t.Context(), cand, cand.Distributions[0])
	require.ErrorIs(t, err, domain.ErrMetadataFetch)
	require.ErrorIs(t, err, domain.ErrIntegrityMismatch)

	var mismatch *domain.IntegrityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, digest.FromString(tampered), mismatch.Actual)

	// Rejected metadata is not remembered.
	fi.addMetadata("foo-1.0-py3-none-any.whl", fooMetadata)
	again := index.NewProvider(newClient(t, cacheDir), []domain.Index{{URL: fi.URL()}}, false)
	deps, err := again.Dependencies(t.Context(), cand, cand.Distributions[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"bar>=2", `baz; extra == "fast"`}, depStrings(deps))
}

func TestProvider_Dependencies_RemoteWheel(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	wheel := makeWheel(t, "foo-1.0.dist-info", fooMetadata, 512<<10)
	fi.setPage("foo", fi.addFile("foo-1.0-py3-none-any.whl", wheel, nil))

	p := index.NewProvider(newClient(t, ""), []domain.Index{{URL: fi.URL()}}, false)
	cand := versionsOf(t, p, "foo")

	deps, err := p.Dependencies(t.Context(), cand, cand.Distributions[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"bar>=2", `baz; extra == "fast"`}, depStrings(deps))

	for _, line := range fi.requestLog() {
		if strings.Contains(line, "/files/") {
			assert.Contains(t, line, "bytes=", "wheel bytes are fetched by range only")
		}
	}
}

func TestProvider_Dependencies_RemoteWheelWithoutRanges(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	fi.noRanges = true
	wheel := makeWheel(t, "foo-1.0.dist-info", fooMetadata, 100<<10)
	fi.setPage("foo", fi.addFile("foo-1.0-py3-none-any.whl", wheel, nil))

	p := index.NewProvider(newClient(t, ""), []domain.Index{{URL: fi.URL()}}, false)
	cand := versionsOf(t, p, "foo")

	deps, err := p.Dependencies(t.Context(), cand, cand.Distributions[0])
	require.NoError(t, err)
	assert.Len(t, deps, 2)
}

func TestProvider_Dependencies_Sdist(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	sdist := makeSdist(t, "foo-1.0", "Metadata-Version: 2.2\nName: foo\nRequires-Dist: six\n")
	fi.setPage("foo", fi.addFile("foo-1.0.tar.gz", sdist, nil))

	p := index.NewProvider(newClient(t, ""), []domain.Index{{URL: fi.URL()}}, false)
	cand := versionsOf(t, p, "foo")

	deps, err := p.Dependencies(t.Context(), cand, cand.Distributions[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"six"}, depStrings(deps))
}

func TestProvider_Dependencies_BadMetadata(t *testing.T) {
	t.Parallel()

	fi := newFakeIndex(t)
	fi.setPage("foo", fi.addFile("foo-1.0-py3-none-any.whl", []byte("w"), map[string]any{"core-metadata": true}))
	fi.addMetadata("foo-1.0-py3-none-any.whl", "Name: foo\nRequires-Dist: bar @ https://example.com/bar.whl\n\n")

	p := index.NewProvider(newClient(t, ""), []domain.Index{{URL: fi.URL()}}, false)
	cand := versionsOf(t, p, "foo")

	_, err := p.Dependencies(t.Context(), cand, cand.Distributions[0])
	require.ErrorIs(t, err, domain.ErrMetadataFetch)
	require.ErrorIs(t, err, domain.ErrDirectURLRequirement)
}

func TestFactory(t *testing.T) {
	t.Parallel()

	f := index.NewFactory(newClient(t, ""))
	assert.NotNil(t, f.New(nil, false))
	assert.Equal(t, "https://pypi.org/simple/foo-bar/", index.ProjectURL("https://pypi.org/simple/", domain.NewPackageName("Foo_Bar")))
}
