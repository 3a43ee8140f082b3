package httpcache_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/adapters/httpcache"
	"go.trai.ch/sa/internal/adapters/telemetry"
)

const simpleJSON = "application/vnd.pypi.simple.v1+json"

func newClient(t *testing.T, freshness time.Duration) *httpcache.Client {
	t.Helper()
	return newClientWithClock(t, freshness, nil)
}

func newClientWithClock(t *testing.T, freshness time.Duration, now func() time.Time) *httpcache.Client {
	t.Helper()
	c, err := httpcache.New(httpcache.Options{
		Dir:           t.TempDir(),
		Freshness:     freshness,
		Retries:       3,
		Metrics:       telemetry.NewMetrics(),
		RetryInterval: time.Millisecond,
		Clock:         now,
	})
	require.NoError(t, err)
	return c
}

func TestClient_Get_FreshHitSkipsNetwork(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, simpleJSON, r.Header.Get("Accept"))
		assert.Equal(t, httpcache.UserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"files":[]}`))
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, time.Hour)
	for range 3 {
		body, err := c.Get(t.Context(), srv.URL+"/foo/", simpleJSON)
		require.NoError(t, err)
		assert.JSONEq(t, `{"files":[]}`, string(body))
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Get_RevalidatesStaleEntry(t *testing.T) {
	t.Parallel()

	var conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("body-v1"))
	}))
	t.Cleanup(srv.Close)

	now := time.Now()
	c := newClientWithClock(t, time.Minute, func() time.Time { return now })

	body, err := c.Get(t.Context(), srv.URL+"/bar/", "")
	require.NoError(t, err)
	assert.Equal(t, "body-v1", string(body))

	now = now.Add(2 * time.Minute)
	body, err = c.Get(t.Context(), srv.URL+"/bar/", "")
	require.NoError(t, err)
	assert.Equal(t, "body-v1", string(body))
	assert.Equal(t, int32(1), conditional.Load())
}

func TestClient_Get_AcceptIsPartOfKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Accept")))
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, time.Hour)
	a, err := c.Get(t.Context(), srv.URL+"/x/", "a")
	require.NoError(t, err)
	b, err := c.Get(t.Context(), srv.URL+"/x/", "b")
	require.NoError(t, err)
	assert.Equal(t, "a", string(a))
	assert.Equal(t, "b", string(b))
}

func TestClient_Get_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := newClient(t, time.Hour).Get(t.Context(), srv.URL+"/missing/", simpleJSON)
	require.Error(t, err)
	assert.True(t, httpcache.IsNotFound(err))
}

func TestClient_Get_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	body, err := newClient(t, time.Hour).Get(t.Context(), srv.URL+"/flaky/", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Get_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	_, err := newClient(t, time.Hour).Get(t.Context(), srv.URL+"/busy/", "")
	require.Error(t, err)
	assert.False(t, httpcache.IsNotFound(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Do_ClientErrorsAreNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)
	resp, err := newClient(t, time.Hour).Do(t.Context(), req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CachedAndRemember(t *testing.T) {
	t.Parallel()

	c := newClient(t, 0)
	_, ok := c.Cached("https://files.example/a.whl.metadata")
	assert.False(t, ok)

	require.NoError(t, c.Remember("https://files.example/a.whl.metadata", []byte("Name: a\n")))
	body, ok := c.Cached("https://files.example/a.whl.metadata")
	require.True(t, ok)
	assert.Equal(t, "Name: a\n", string(body))
}
