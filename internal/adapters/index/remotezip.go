package index

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.trai.ch/sa/internal/adapters/httpcache"
	"go.trai.ch/zerr"
)

// tailSize is fetched once up front; it usually holds the whole central
// directory and often the METADATA entry too.
const tailSize = 64 << 10

var errRangeUnsupported = zerr.New("server does not support range requests")

// rangeReaderAt reads a remote file with HTTP range requests. It is not
// safe for concurrent use.
type rangeReaderAt struct {
	ctx     context.Context
	client  *httpcache.Client
	url     string
	size    int64
	tail    []byte
	tailOff int64
}

func newRangeReaderAt(ctx context.Context, client *httpcache.Client, rawURL string, size int64) *rangeReaderAt {
	return &rangeReaderAt{ctx: ctx, client: client, url: rawURL, size: size, tailOff: -1}
}

func (r *rangeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.size {
		return 0, io.EOF
	}
	end := min(off+int64(len(p)), r.size)

	if r.tail == nil && end > r.size-tailSize {
		start := max(r.size-tailSize, 0)
		data, err := r.fetch(start, r.size-1)
		if err != nil {
			return 0, err
		}
		r.tail, r.tailOff = data, start
	}

	var n int
	if r.tail != nil && off >= r.tailOff {
		n = copy(p[:end-off], r.tail[off-r.tailOff:])
	} else {
		data, err := r.fetch(off, end-1)
		if err != nil {
			return 0, err
		}
		n = copy(p, data)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (r *rangeReaderAt) fetch(first, last int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", first, last))

	resp, err := r.client.Do(r.ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		return nil, errRangeUnsupported
	default:
		return nil, &httpcache.StatusError{URL: r.url, Code: resp.StatusCode}
	}

	want := last - first + 1
	data, err := io.ReadAll(io.LimitReader(resp.Body, want))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != want {
		return nil, zerr.With(zerr.New("short range response"), "url", r.url)
	}
	return data, nil
}
