package index

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"go.trai.ch/sa/internal/adapters/httpcache"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/zerr"
)

// metadataRange is the prefix requested from .metadata files. Header blocks
// are almost always shorter; the long description follows them.
const metadataRange = 64 << 10

var errNoMetadata = zerr.New("distribution has no metadata file")

// metadata returns the RFC 822 header block describing dist.
func (p *Provider) metadata(ctx context.Context, dist domain.Distribution) ([]byte, error) {
	key := dist.URL + ".metadata"
	if cached, ok := p.client.Cached(key); ok {
		return cached, nil
	}

	var raw []byte
	var err error
	switch {
	case dist.CoreMetadata && dist.MetadataDigest != "":
		raw, err = p.fetchVerifiedMetadataFile(ctx, key, dist.MetadataDigest)
	case dist.CoreMetadata:
		raw, err = p.fetchMetadataFile(ctx, key)
	case dist.IsWheel():
		raw, err = p.wheelMetadata(ctx, dist)
	default:
		raw, err = p.sdistMetadata(ctx, dist)
	}
	if err != nil {
		return nil, err
	}

	headers := headerBlock(raw)
	// A failed cache write only costs a refetch.
	_ = p.client.Remember(key, headers)
	return headers, nil
}

// fetchMetadataFile fetches a PEP 658 metadata file, asking only for its
// head. The whole file is fetched when the server ignores the range or the
// headers run past it.
func (p *Provider) fetchMetadataFile(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", metadataRange-1))

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusPartialContent:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if hasHeaderEnd(body) {
			return body, nil
		}
		total, ok := contentRangeTotal(resp.Header.Get("Content-Range"))
		if ok && total <= int64(len(body)) {
			return body, nil
		}
	case http.StatusRequestedRangeNotSatisfiable:
	default:
		return nil, &httpcache.StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return p.download(ctx, rawURL)
}

// fetchVerifiedMetadataFile fetches a whole PEP 658 metadata file and checks
// it against the digest the index published for it.
func (p *Provider) fetchVerifiedMetadataFile(ctx context.Context, rawURL string, want domain.Digest) ([]byte, error) {
	body, err := p.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	verifier := want.Verifier()
	_, _ = verifier.Write(body)
	if !verifier.Verified() {
		return nil, &domain.IntegrityMismatchError{
			URL:      rawURL,
			Expected: want,
			Actual:   want.Algorithm().FromBytes(body),
		}
	}
	return body, nil
}

// download fetches rawURL in full.
func (p *Provider) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, &httpcache.StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// wheelMetadata reads *.dist-info/METADATA through HTTP ranges so only the
// zip central directory and that entry are transferred.
func (p *Provider) wheelMetadata(ctx context.Context, dist domain.Distribution) ([]byte, error) {
	size := dist.Size
	if size <= 0 {
		n, err := p.contentLength(ctx, dist.URL)
		if err != nil {
			return nil, err
		}
		size = n
	}

	if size > 0 {
		ra := newRangeReaderAt(ctx, p.client, dist.URL, size)
		data, err := readWheelMetadata(ra, size)
		if !errors.Is(err, errRangeUnsupported) {
			return data, err
		}
	}

	body, err := p.download(ctx, dist.URL)
	if err != nil {
		return nil, err
	}
	return readWheelMetadata(bytes.NewReader(body), int64(len(body)))
}

func (p *Provider) contentLength(ctx context.Context, rawURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, &httpcache.StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return max(resp.ContentLength, 0), nil
}

func readWheelMetadata(r io.ReaderAt, size int64) ([]byte, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		dir, file := path.Split(f.Name)
		if file != "METADATA" || strings.Count(dir, "/") != 1 || !strings.HasSuffix(dir, ".dist-info/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	return nil, errNoMetadata
}

// sdistMetadata downloads an sdist and reads its top-level PKG-INFO.
func (p *Provider) sdistMetadata(ctx context.Context, dist domain.Distribution) ([]byte, error) {
	body, err := p.download(ctx, dist.URL)
	if err != nil {
		return nil, err
	}
	return readSdistMetadata(dist.Filename, body)
}

func readSdistMetadata(filename string, body []byte) ([]byte, error) {
	isPkgInfo := func(name string) bool {
		dir, file := path.Split(strings.TrimPrefix(name, "./"))
		return file == "PKG-INFO" && strings.Count(dir, "/") == 1
	}

	if strings.HasSuffix(filename, ".zip") {
		zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
		if err != nil {
			return nil, err
		}
		for _, f := range zr.File {
			if !isPkgInfo(f.Name) {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer func() { _ = rc.Close() }()
			return io.ReadAll(rc)
		}
		return nil, errNoMetadata
	}

	var stream io.Reader = bytes.NewReader(body)
	switch {
	case strings.HasSuffix(filename, ".tar.bz2"):
		stream = bzip2.NewReader(stream)
	default:
		gz, err := gzip.NewReader(stream)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gz.Close() }()
		stream = gz
	}

	tr := tar.NewReader(stream)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, errNoMetadata
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag == tar.TypeReg && isPkgInfo(hdr.Name) {
			return io.ReadAll(tr)
		}
	}
}

// headerBlock cuts raw at the first blank line.
func headerBlock(raw []byte) []byte {
	normalized := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	if i := bytes.Index(normalized, []byte("\n\n")); i >= 0 {
		return normalized[:i+1]
	}
	return normalized
}

func hasHeaderEnd(b []byte) bool {
	return bytes.Contains(b, []byte("\n\n")) || bytes.Contains(b, []byte("\r\n\r\n"))
}

// contentRangeTotal parses the complete length from "bytes 0-99/1234".
func contentRangeTotal(v string) (int64, bool) {
	_, total, ok := strings.Cut(v, "/")
	if !ok || total == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	return n, err == nil
}
