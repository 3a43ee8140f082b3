// Package resolver implements dependency resolution by conflict-directed
// backjumping over an explicit decision stack.
package resolver

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Resolver step kinds reported to metrics.
const (
	stepDecision = "decision"
	stepConflict = "conflict"
	stepBackjump = "backjump"
)

// Resolver implements ports.Resolver.
type Resolver struct {
	provider    ports.MetadataProvider
	logger      ports.Logger
	metrics     ports.Metrics
	concurrency int
}

var _ ports.Resolver = (*Resolver)(nil)

// New creates a Resolver querying provider.
func New(provider ports.MetadataProvider, logger ports.Logger, metrics ports.Metrics, concurrency int) *Resolver {
	if concurrency < 1 {
		concurrency = domain.DefaultConcurrency
	}
	return &Resolver{
		provider:    provider,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// Factory implements ports.ResolverFactory.
type Factory struct {
	logger      ports.Logger
	metrics     ports.Metrics
	concurrency int
}

var _ ports.ResolverFactory = (*Factory)(nil)

// NewFactory creates a Factory whose resolvers share logger and metrics.
func NewFactory(logger ports.Logger, metrics ports.Metrics, concurrency int) *Factory {
	return &Factory{logger: logger, metrics: metrics, concurrency: concurrency}
}

// New returns a resolver querying provider.
func (f *Factory) New(provider ports.MetadataProvider) ports.Resolver {
	return New(provider, f.logger, f.metrics, f.concurrency)
}

// decision is one entry of the decision stack.
type decision struct {
	name     domain.PackageName
	before   *state // state the decision was taken in
	options  []option
	next     int                             // index of the option currently tried
	conflict map[domain.PackageName]struct{} // names blamed for failures below
}

// run is the working set of one Resolve call.
type run struct {
	*Resolver

	target   domain.Target
	env      domain.MarkerEnvironment
	tags     domain.TagIndex
	opts     domain.ResolveOptions
	versions map[domain.PackageName][]domain.Candidate
	deps     map[depKey][]domain.Requirement
}

type depKey struct {
	name    domain.PackageName
	version string
}

// conflictError is a dead end found while propagating or deciding.
type conflictError struct {
	name domain.PackageName
}

func (e *conflictError) Error() string {
	return "conflict on " + e.name.String()
}

// Resolve returns a graph holding exactly one version of every package
// reachable from roots, or a *domain.NoSatisfyingVersionError.
func (r *Resolver) Resolve(
	ctx context.Context,
	roots []domain.Requirement,
	target domain.Target,
	opts domain.ResolveOptions,
) (*domain.ResolvedGraph, error) {
	ru := &run{
		Resolver: r,
		target:   target,
		env:      target.MarkerEnvironment(),
		tags:     target.TagIndex(),
		opts:     opts,
		versions: make(map[domain.PackageName][]domain.Candidate),
		deps:     make(map[depKey][]domain.Requirement),
	}
	return ru.solve(ctx, roots)
}

func (r *run) solve(ctx context.Context, roots []domain.Requirement) (*domain.ResolvedGraph, error) {
	st := newState()
	for _, req := range roots {
		if !req.AppliesTo(r.env) {
			continue
		}
		st.frontier = append(st.frontier, pending{req: req})
	}

	var (
		stack []*decision
		leaf  *domain.NoSatisfyingVersionError
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := r.step(ctx, st)
		var conflict *conflictError
		switch {
		case errors.As(err, &conflict):
			r.metrics.ResolverStep(stepConflict)
			leaf = &domain.NoSatisfyingVersionError{
				Name:        conflict.name,
				Constraints: st.domainConstraints(conflict.name),
			}
			r.logger.Debug("conflict", "package", conflict.name.String())

			st, stack, err = r.backjump(ctx, stack, st, conflict.name)
			if err != nil {
				return nil, err
			}
			if st == nil {
				return nil, leaf
			}
			continue
		case err != nil:
			return nil, err
		}

		if next == nil {
			return r.graph(st, roots)
		}

		r.metrics.ResolverStep(stepDecision)
		d := &decision{
			name:     next.name,
			before:   st,
			options:  next.options,
			conflict: make(map[domain.PackageName]struct{}),
		}
		stack = append(stack, d)
		st, err = r.tryOption(ctx, d)
		if err != nil {
			return nil, err
		}
	}
}

type choice struct {
	name    domain.PackageName
	options []option
}

// step propagates pending requirements and picks the next name to decide:
// the undecided name with the fewest options, earliest seen on ties.
// A nil choice means every required name is decided.
func (r *run) step(ctx context.Context, st *state) (*choice, error) {
	if err := r.propagate(ctx, st); err != nil {
		return nil, err
	}

	undecided := st.undecided()
	if len(undecided) == 0 {
		return nil, nil
	}
	if err := r.prefetch(ctx, undecided); err != nil {
		return nil, err
	}

	var best *choice
	for _, name := range undecided {
		opts := r.eligible(st, name)
		if len(opts) == 0 {
			return nil, &conflictError{name: name}
		}
		if best == nil || len(opts) < len(best.options) {
			best = &choice{name: name, options: opts}
		}
	}
	return best, nil
}

// tryOption restores d's state and assigns its current option.
func (r *run) tryOption(ctx context.Context, d *decision) (*state, error) {
	st := d.before.clone()
	opt := d.options[d.next]
	r.logger.Debug("decide", "package", d.name.String(), "version", opt.candidate.Version.String())

	deps, err := r.dependencies(ctx, opt)
	if err != nil {
		return nil, err
	}

	var chain []domain.PackageName
	if cs := st.constraints[d.name]; len(cs) > 0 {
		first := cs[0]
		if !first.requirer.IsZero() {
			chain = append(slices.Clone(first.chain), first.requirer)
		}
	}
	st.assigned[d.name] = &assignment{candidate: opt.candidate, dist: opt.dist, deps: deps, chain: chain}
	r.enqueueDeps(st, d.name, nil)
	return st, nil
}

// backjump unwinds the stack to the most recent decision blamed for a
// conflict on name and moves it to its next option. Exhausted decisions
// pass their accumulated blame further down. A nil state means the stack
// is exhausted.
func (r *run) backjump(
	ctx context.Context,
	stack []*decision,
	st *state,
	name domain.PackageName,
) (*state, []*decision, error) {
	blame := map[domain.PackageName]struct{}{name: {}}
	for _, req := range st.requirers(name) {
		blame[req] = struct{}{}
	}

	for {
		i := len(stack) - 1
		for ; i >= 0; i-- {
			if _, ok := blame[stack[i].name]; ok {
				break
			}
		}
		if i < 0 {
			return nil, nil, nil
		}

		r.metrics.ResolverStep(stepBackjump)
		stack = stack[:i+1]
		d := stack[i]
		for n := range blame {
			if n != d.name {
				d.conflict[n] = struct{}{}
			}
		}

		d.next++
		if d.next < len(d.options) {
			next, err := r.tryOption(ctx, d)
			return next, stack, err
		}

		blame = d.conflict
		for _, req := range d.before.requirers(d.name) {
			blame[req] = struct{}{}
		}
		stack = stack[:i]
	}
}

// propagate drains the frontier into the constraint store.
func (r *run) propagate(_ context.Context, st *state) error {
	for len(st.frontier) > 0 {
		p := st.frontier[0]
		st.frontier = st.frontier[1:]
		name := p.req.Name

		if _, seen := st.constraints[name]; !seen {
			st.order = append(st.order, name)
		}
		c := constraint{
			spec:            p.req.Specifier,
			requirer:        p.requirer,
			requirerVersion: p.requirerVersion,
			chain:           p.chain,
		}
		st.constraints[name] = append(st.constraints[name], c)
		added := st.addExtras(name, p.req.Extras)

		a, ok := st.assigned[name]
		if !ok {
			continue
		}
		if !c.spec.Contains(a.candidate.Version, true) {
			return &conflictError{name: name}
		}
		if len(added) > 0 {
			r.enqueueDeps(st, name, added)
		}
	}
	return nil
}

// enqueueDeps adds the dependencies of an assigned package to the frontier.
// With added set, only those newly enabled by the added extras are queued.
func (r *run) enqueueDeps(st *state, name domain.PackageName, added []string) {
	a := st.assigned[name]
	all := st.extras[name]
	var before []string
	if added != nil {
		for _, e := range all {
			if !slices.Contains(added, e) {
				before = append(before, e)
			}
		}
	}
	for _, dep := range a.deps {
		if !dep.AppliesTo(r.env, all...) {
			continue
		}
		if added != nil && dep.AppliesTo(r.env, before...) {
			continue
		}
		st.frontier = append(st.frontier, pending{
			req:             dep,
			requirer:        name,
			requirerVersion: a.candidate.Version,
			chain:           a.chain,
		})
	}
}

// graph converts a complete assignment into a ResolvedGraph.
func (r *run) graph(st *state, roots []domain.Requirement) (*domain.ResolvedGraph, error) {
	g := domain.NewResolvedGraph(roots, r.target)
	for name, a := range st.assigned {
		p := &domain.ResolvedPackage{
			Name:         name,
			Version:      a.candidate.Version,
			Distribution: a.dist,
			Extras:       slices.Clone(st.extras[name]),
		}
		for _, dep := range a.deps {
			if dep.Name != name && dep.AppliesTo(r.env, st.extras[name]...) {
				p.Dependencies = append(p.Dependencies, dep.Name)
			}
		}
		if err := g.AddPackage(p); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, zerr.Wrap(err, "resolver produced an inconsistent graph")
	}
	return g, nil
}

// prefetch fetches the version lists of names not seen yet, in parallel.
// Results are merged after every fetch has finished so that the outcome
// does not depend on completion order.
func (r *run) prefetch(ctx context.Context, names []domain.PackageName) error {
	var missing []domain.PackageName
	for _, name := range names {
		if _, ok := r.versions[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var mu sync.Mutex
	fetched := make(map[domain.PackageName][]domain.Candidate, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, name := range missing {
		g.Go(func() error {
			cands, err := r.provider.Versions(gctx, name)
			if err != nil {
				return err
			}
			cands = slices.Clone(cands)
			domain.SortCandidatesNewestFirst(cands)
			mu.Lock()
			fetched[name] = cands
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, name := range missing {
		r.versions[name] = fetched[name]
	}
	return nil
}

// dependencies returns the declared requirements of opt, fetching them once.
func (r *run) dependencies(ctx context.Context, opt option) ([]domain.Requirement, error) {
	key := depKey{name: opt.candidate.Name, version: opt.candidate.Version.String()}
	if deps, ok := r.deps[key]; ok {
		return deps, nil
	}
	deps, err := r.provider.Dependencies(ctx, opt.candidate, opt.dist)
	if err != nil {
		return nil, err
	}
	r.deps[key] = deps
	return deps, nil
}
