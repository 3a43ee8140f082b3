package index_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/require"
)

// fakeIndex serves PEP 691 pages and files from memory.
type fakeIndex struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	pages    map[string][]map[string]any
	files    map[string][]byte
	requests []string
	noRanges bool
}

func newFakeIndex(t *testing.T) *fakeIndex {
	t.Helper()
	f := &fakeIndex{t: t, pages: map[string][]map[string]any{}, files: map[string][]byte{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIndex) URL() string {
	return f.srv.URL + "/simple"
}

func (f *fakeIndex) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path+" "+r.Header.Get("Range"))
	files, isPage := f.pages[r.URL.Path]
	data, isFile := f.files[r.URL.Path]
	f.mu.Unlock()

	switch {
	case isPage:
		w.Header().Set("Content-Type", "application/vnd.pypi.simple.v1+json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"meta":  map[string]any{"api-version": "1.1"},
			"name":  strings.Trim(strings.TrimPrefix(r.URL.Path, "/simple/"), "/"),
			"files": files,
		})
	case isFile && f.noRanges:
		_, _ = w.Write(data)
	case isFile:
		http.ServeContent(w, r, r.URL.Path, time.Time{}, bytes.NewReader(data))
	default:
		http.NotFound(w, r)
	}
}

// addFile stores data at /files/<name> and returns its page entry.
func (f *fakeIndex) addFile(name string, data []byte, extra map[string]any) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files["/files/"+name] = data
	entry := map[string]any{
		"filename": name,
		"url":      "../../files/" + name,
		"hashes":   map[string]string{"sha256": digest.FromBytes(data).Encoded()},
		"size":     len(data),
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

func (f *fakeIndex) addMetadata(wheel, metadata string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files["/files/"+wheel+".metadata"] = []byte(metadata)
}

func (f *fakeIndex) setPage(project string, entries ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages["/simple/"+project+"/"] = entries
}

func (f *fakeIndex) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func makeWheel(t *testing.T, distInfo, metadata string, padding int) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "pkg/data.bin", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write(bytes.Repeat([]byte{0xA5}, padding))
	require.NoError(t, err)

	w, err = zw.Create(distInfo + "/METADATA")
	require.NoError(t, err)
	_, err = w.Write([]byte(metadata))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func makeSdist(t *testing.T, top, pkgInfo string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	write := func(name, body string) {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	write(top+"/setup.py", "")
	write(top+"/src/PKG-INFO", "Requires-Dist: wrong\n")
	write(top+"/PKG-INFO", pkgInfo)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}
