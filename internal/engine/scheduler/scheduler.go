// Package scheduler fetches the distributions of a resolved graph into the
// content cache with bounded parallelism.
package scheduler

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
)

// FetchStatus represents the status of a package fetch.
type FetchStatus string

const (
	// StatusPending indicates the package is waiting to be fetched.
	StatusPending FetchStatus = "Pending"
	// StatusRunning indicates the package is being fetched.
	StatusRunning FetchStatus = "Running"
	// StatusFetched indicates the package was downloaded and verified.
	StatusFetched FetchStatus = "Fetched"
	// StatusFailed indicates the fetch failed.
	StatusFailed FetchStatus = "Failed"
	// StatusCached indicates the package was already in the cache.
	StatusCached FetchStatus = "Cached"
)

// Scheduler manages fetching the packages of a resolved graph.
type Scheduler struct {
	cache  ports.ContentCache
	logger ports.Logger
	tracer ports.Tracer

	mu     sync.RWMutex
	status map[domain.PackageName]FetchStatus
}

// NewScheduler creates a new Scheduler backed by cache.
func NewScheduler(cache ports.ContentCache, logger ports.Logger, tracer ports.Tracer) *Scheduler {
	return &Scheduler{
		cache:  cache,
		logger: logger,
		tracer: tracer,
		status: make(map[domain.PackageName]FetchStatus),
	}
}

func (s *Scheduler) initStatuses(g *domain.ResolvedGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.status)
	for _, name := range g.Names() {
		s.status[name] = StatusPending
	}
}

func (s *Scheduler) updateStatus(name domain.PackageName, status FetchStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[name] = status
}

// Status returns the status of name in the most recent Fetch.
func (s *Scheduler) Status(name domain.PackageName) FetchStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[name]
}

// Fetch ensures every package of g is in the cache, running at most
// parallelism fetches at a time. It returns an install item for each
// package that succeeded, in name order, together with the joined errors
// of those that failed. Fetch must not be called concurrently.
func (s *Scheduler) Fetch(ctx context.Context, g *domain.ResolvedGraph, parallelism int) ([]domain.InstallItem, error) {
	ctx, span := s.tracer.Start(ctx, "fetch")
	defer span.End()
	span.SetAttribute("packages", g.Len())

	s.initStatuses(g)
	state := s.newRunState(ctx, g, parallelism)

	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil {
			if state.active == 0 {
				break
			}
			// Drain in-flight fetches without spinning on Done.
			state.handleResult(<-state.resultsCh)
			continue
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}
	span.RecordError(state.errs)

	slices.SortFunc(state.items, func(a, b domain.InstallItem) int {
		return domain.ComparePackageNames(a.Name, b.Name)
	})
	return state.items, state.errs
}

type result struct {
	pkg   *domain.ResolvedPackage
	entry domain.CacheEntry
	err   error
}

type fetchRunState struct {
	ready       []*domain.ResolvedPackage
	active      int
	resultsCh   chan result
	items       []domain.InstallItem
	errs        error
	ctx         context.Context
	parallelism int
	s           *Scheduler
}

func (s *Scheduler) newRunState(ctx context.Context, g *domain.ResolvedGraph, parallelism int) *fetchRunState {
	parallelism = max(parallelism, 1)
	ready := make([]*domain.ResolvedPackage, 0, g.Len())
	for p := range g.Packages() {
		ready = append(ready, p)
	}
	return &fetchRunState{
		ready:       ready,
		resultsCh:   make(chan result, parallelism),
		ctx:         ctx,
		parallelism: parallelism,
		s:           s,
	}
}

func (state *fetchRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *fetchRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		pkg := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(pkg.Name, StatusRunning)

		go func(p *domain.ResolvedPackage) {
			entry, err := state.fetch(state.ctx, p)
			state.resultsCh <- result{pkg: p, entry: entry, err: err}
		}(pkg)
	}
}

func (state *fetchRunState) fetch(ctx context.Context, p *domain.ResolvedPackage) (domain.CacheEntry, error) {
	if entry, ok, err := state.s.cache.Lookup(p.Distribution.Digest); err == nil && ok {
		state.s.updateStatus(p.Name, StatusCached)
		return entry, nil
	}

	ctx, span := state.s.tracer.Start(ctx, "fetch "+p.Name.String())
	defer span.End()
	span.SetAttribute("filename", p.Distribution.Filename)

	entry, err := state.s.cache.Ensure(ctx, p.Distribution)
	span.RecordError(err)
	return entry, err
}

func (state *fetchRunState) handleResult(res result) {
	state.active--
	name := res.pkg.Name
	if res.err != nil {
		wrappedErr := zerr.With(zerr.Wrap(res.err, "fetch failed"), "package", name.String())
		state.errs = errors.Join(state.errs, wrappedErr)
		state.s.updateStatus(name, StatusFailed)
		state.s.logger.Debug("fetch failed", "package", name.String())
		return
	}

	if state.s.Status(name) != StatusCached {
		state.s.updateStatus(name, StatusFetched)
	}
	state.items = append(state.items, domain.InstallItem{
		Name:    name,
		Version: res.pkg.Version,
		Entry:   res.entry,
	})
}
