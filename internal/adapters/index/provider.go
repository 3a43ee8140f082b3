// Package index implements ports.MetadataProvider against PEP 691 package
// indexes.
package index

import (
	"context"
	"strings"
	"sync"

	"go.trai.ch/sa/internal/adapters/httpcache"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
)

// Provider queries an ordered list of indexes.
type Provider struct {
	client  *httpcache.Client
	indexes []domain.Index
	merge   bool

	mu   sync.Mutex
	deps map[string][]domain.Requirement
}

var _ ports.MetadataProvider = (*Provider)(nil)

// NewProvider creates a provider. An empty index list selects the default index.
func NewProvider(client *httpcache.Client, indexes []domain.Index, merge bool) *Provider {
	if len(indexes) == 0 {
		indexes = []domain.Index{{Name: "pypi", URL: domain.DefaultIndexURL}}
	}
	return &Provider{
		client:  client,
		indexes: indexes,
		merge:   merge,
		deps:    make(map[string][]domain.Requirement),
	}
}

// Factory implements ports.MetadataProviderFactory over one shared client.
type Factory struct {
	client *httpcache.Client
}

var _ ports.MetadataProviderFactory = (*Factory)(nil)

// NewFactory creates a Factory.
func NewFactory(client *httpcache.Client) *Factory {
	return &Factory{client: client}
}

// New returns a Provider over indexes.
func (f *Factory) New(indexes []domain.Index, merge bool) ports.MetadataProvider {
	return NewProvider(f.client, indexes, merge)
}

// ProjectURL returns the PEP 503 project page of name on an index.
func ProjectURL(indexURL string, name domain.PackageName) string {
	return strings.TrimSuffix(indexURL, "/") + "/" + name.String() + "/"
}

// Versions lists the versions of name. Without merging, the first index
// that knows the name answers; with merging, later indexes only contribute
// versions the earlier ones lack.
func (p *Provider) Versions(ctx context.Context, name domain.PackageName) ([]domain.Candidate, error) {
	var out []domain.Candidate
	seen := map[string]bool{}
	found := false

	for _, idx := range p.indexes {
		pageURL := ProjectURL(idx.URL, name)
		body, err := p.client.Get(ctx, pageURL, SimpleJSON)
		if err != nil {
			if httpcache.IsNotFound(err) {
				continue
			}
			return nil, &domain.MetadataFetchError{Name: name, URL: pageURL, Err: err}
		}
		cands, err := parseSimplePage(body, pageURL, idx, name)
		if err != nil {
			return nil, &domain.MetadataFetchError{Name: name, URL: pageURL, Err: err}
		}
		found = true
		if !p.merge {
			return cands, nil
		}
		for _, c := range cands {
			key := c.Version.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}

	if !found {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownPackage, name.String()), "package", name.String())
	}
	return out, nil
}

// Dependencies returns the Requires-Dist entries of dist.
func (p *Provider) Dependencies(ctx context.Context, candidate domain.Candidate, dist domain.Distribution) ([]domain.Requirement, error) {
	p.mu.Lock()
	cached, ok := p.deps[dist.URL]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	fail := func(err error) error {
		return &domain.MetadataFetchError{Name: candidate.Name, Version: candidate.Version, URL: dist.URL, Err: err}
	}

	headers, err := p.metadata(ctx, dist)
	if err != nil {
		return nil, fail(err)
	}
	reqs, err := parseRequiresDist(headers)
	if err != nil {
		return nil, fail(err)
	}

	p.mu.Lock()
	p.deps[dist.URL] = reqs
	p.mu.Unlock()
	return reqs, nil
}
