// Package httpcache is the registry HTTP client: rate limited, retried, and
// backed by an on-disk response cache with conditional revalidation.
package httpcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/time/rate"
)

// UserAgent is sent with every request.
const UserAgent = "sa (+https://go.trai.ch/sa)"

const defaultRetryInterval = 200 * time.Millisecond

const (
	cacheHit         = "hit"
	cacheMiss        = "miss"
	cacheRevalidated = "revalidated"
)

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// IsNotFound reports whether err is a 404 or 410 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusGone)
}

// Options configures a Client.
type Options struct {
	Dir        string
	HTTPClient *http.Client
	Freshness  time.Duration
	Retries    int
	RateLimit  float64 // requests per second, 0 disables
	Metrics    ports.Metrics

	// RetryInterval is the first backoff interval. Zero selects the default.
	RetryInterval time.Duration
	// Clock replaces time.Now for freshness checks.
	Clock func() time.Time
}

// Client fetches registry resources.
type Client struct {
	store      *store
	httpClient *http.Client
	freshness  time.Duration
	retries    uint
	limiter    *rate.Limiter
	metrics    ports.Metrics
	now        func() time.Time

	retryInterval time.Duration
}

// New creates a Client. The cache directory is created if missing.
func New(opts Options) (*Client, error) {
	st, err := newStore(opts.Dir)
	if err != nil {
		return nil, err
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: domain.DefaultHTTPTimeout}
	}
	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}
	retryInterval := opts.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}
	return &Client{
		store:      st,
		httpClient: hc,
		freshness:  opts.Freshness,
		retries:    uint(retries),
		limiter:    limiter,
		metrics:    opts.Metrics,
		now:        now,

		retryInterval: retryInterval,
	}, nil
}

// Get returns the body at rawURL, served from the cache while fresh and
// revalidated with a conditional request once stale.
func (c *Client) Get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	key := cacheKey(rawURL, accept)
	meta, body, cached := c.store.load(key)
	if cached && c.now().Sub(meta.FetchedAt) < c.freshness {
		c.metrics.HTTPCache(cacheHit)
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "build request"), "url", rawURL)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if cached {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotModified && cached:
		meta.FetchedAt = c.now()
		if etag := resp.Header.Get("ETag"); etag != "" {
			meta.ETag = etag
		}
		_ = c.store.saveMeta(key, meta)
		c.metrics.HTTPCache(cacheRevalidated)
		return body, nil
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "read response body"), "url", rawURL)
	}
	c.metrics.HTTPCache(cacheMiss)
	// A failed cache write only costs a refetch.
	_ = c.store.save(key, entryMeta{
		URL:          rawURL,
		Accept:       accept,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    c.now(),
	}, data)
	return data, nil
}

// Do sends req through the limiter, retrying network errors, 429 and 5xx
// with exponential backoff. Any other status is returned to the caller with
// an open body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	host := req.URL.Host

	op := func() (*http.Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		c.metrics.IndexRequest(host, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return nil, &StatusError{URL: req.URL.String(), Code: resp.StatusCode}
		}
		return resp, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = 5 * time.Second
	resp, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(c.retries))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "request failed"), "url", req.URL.String())
	}
	return resp, nil
}

const immutableAccept = "immutable"

// Cached returns a previously stored immutable resource, ignoring freshness.
func (c *Client) Cached(rawURL string) ([]byte, bool) {
	_, body, ok := c.store.load(cacheKey(rawURL, immutableAccept))
	if ok {
		c.metrics.HTTPCache(cacheHit)
	}
	return body, ok
}

// Remember stores an immutable resource (a file's metadata, say) for Cached.
func (c *Client) Remember(rawURL string, body []byte) error {
	return c.store.save(cacheKey(rawURL, immutableAccept), entryMeta{URL: rawURL, Accept: immutableAccept, FetchedAt: c.now()}, body)
}
