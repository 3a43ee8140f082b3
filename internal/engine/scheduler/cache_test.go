package scheduler_test

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
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
	"go.trai.ch/sa/internal/core/ports/mocks"
	"go.trai.ch/sa/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

func wheelBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("daily/__init__.py")
	require.NoError(t, err)
	_, err = w.Write([]byte("X = 1\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestScheduler_Fetch_DailyUseSurvivesGC(t *testing.T) {
	t.Parallel()

	data := wheelBytes(t)
	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		downloads.Add(1)
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	day := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return day }

	metrics := telemetry.NewMetrics()
	client, err := httpcache.New(httpcache.Options{
		Dir:           t.TempDir(),
		Retries:       1,
		Metrics:       metrics,
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)
	store, err := cas.NewStore(cas.Options{
		Root:          t.TempDir(),
		Fetcher:       client,
		Metrics:       metrics,
		RetryInterval: time.Millisecond,
		Clock:         clock,
	})
	require.NoError(t, err)

	g := domain.NewResolvedGraph(nil, domain.Target{})
	filename := "daily-1.0-py3-none-any.whl"
	require.NoError(t, g.AddPackage(&domain.ResolvedPackage{
		Name:    domain.NewPackageName("daily"),
		Version: domain.MustParseVersion("1.0"),
		Distribution: domain.Distribution{
			Kind:     domain.KindWheel,
			Filename: filename,
			URL:      srv.URL + "/" + filename,
			Digest:   digest.FromBytes(data),
		},
	}))

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	s := scheduler.NewScheduler(store, log, telemetry.NoOpTracer{})

	for range 30 {
		items, err := s.Fetch(t.Context(), g, 1)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, day, items[0].Entry.LastAccess)
		day = day.Add(24 * time.Hour)
	}
	assert.Equal(t, int32(1), downloads.Load())
	assert.Equal(t, scheduler.StatusCached, s.Status(domain.NewPackageName("daily")))

	report, err := store.GC(t.Context(), nil, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
}
