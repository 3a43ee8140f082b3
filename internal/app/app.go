// Package app implements the application layer for sa: it drives the
// resolver, the lock store, the content cache and the installer for each
// command.
package app

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"time"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/sa/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// Deps are the collaborators of an App.
type Deps struct {
	Projects   ports.ProjectLoader
	Settings   ports.SettingsStore
	Providers  ports.MetadataProviderFactory
	Resolvers  ports.ResolverFactory
	Locks      ports.LockStore
	Cache      ports.ContentCache
	Scheduler  *scheduler.Scheduler
	Installer  ports.Installer
	Renderer   ports.GraphRenderer
	Advisories ports.AdvisorySource
	Tracer     ports.Tracer
	Logger     ports.Logger
}

// App represents the main application logic.
type App struct {
	projects   ports.ProjectLoader
	settings   ports.SettingsStore
	providers  ports.MetadataProviderFactory
	resolvers  ports.ResolverFactory
	locks      ports.LockStore
	cache      ports.ContentCache
	scheduler  *scheduler.Scheduler
	installer  ports.Installer
	renderer   ports.GraphRenderer
	advisories ports.AdvisorySource
	tracer     ports.Tracer
	logger     ports.Logger
	now        func() time.Time
}

// New creates a new App instance.
func New(d Deps) *App {
	return &App{
		projects:   d.Projects,
		settings:   d.Settings,
		providers:  d.Providers,
		resolvers:  d.Resolvers,
		locks:      d.Locks,
		cache:      d.Cache,
		scheduler:  d.Scheduler,
		installer:  d.Installer,
		renderer:   d.Renderer,
		advisories: d.Advisories,
		tracer:     d.Tracer,
		logger:     d.Logger,
		now:        time.Now,
	}
}

// SetClock replaces the clock used for lock timestamps and probe latency.
func (a *App) SetClock(now func() time.Time) {
	a.now = now
}

// LockOptions selects what a lock run resolves for.
type LockOptions struct {
	Dir        string
	Python     string
	ABI        string
	Platforms  []string
	PreRelease bool
	Groups     []string
}

// LockResult describes a written or confirmed lock document.
type LockResult struct {
	Path      string
	Document  *domain.LockDocument
	Unchanged bool
}

// Lock resolves the project in opts.Dir and writes its lock document. When
// the resolution matches the existing document, the document is left alone.
func (a *App) Lock(ctx context.Context, opts LockOptions) (*LockResult, error) {
	ctx, span := a.tracer.Start(ctx, "lock")
	defer span.End()

	res, err := a.lock(ctx, opts)
	span.RecordError(err)
	return res, err
}

func (a *App) lock(ctx context.Context, opts LockOptions) (*LockResult, error) {
	project, err := a.projects.Load(opts.Dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load project")
	}
	settings, err := a.settings.Load()
	if err != nil {
		return nil, err
	}

	target, err := targetFor(project, opts)
	if err != nil {
		return nil, err
	}
	if !project.RequiresPython.Contains(target.PythonVersion, true) {
		a.logger.Warn("target interpreter is outside requires-python",
			"python", target.PythonVersion.String(), "requires-python", project.RequiresPython.String())
	}

	roots := project.RootRequirements(opts.Groups...)
	provider := a.providers.New(indexesFor(project, settings), project.MergeIndexes)
	resolveOpts := domain.ResolveOptions{AllowPreRelease: project.PreRelease || opts.PreRelease}

	resolveCtx, span := a.tracer.Start(ctx, "resolve")
	span.SetAttribute("roots", len(roots))
	graph, err := a.resolvers.New(provider).Resolve(resolveCtx, roots, target, resolveOpts)
	span.RecordError(err)
	span.End()
	if err != nil {
		return nil, zerr.Wrap(err, "resolution failed")
	}

	path := domain.LockPath(project.Root)
	doc := domain.NewLockDocument(graph, a.now())
	res := &LockResult{Path: path, Document: doc}

	prev, err := a.locks.Load(path)
	switch {
	case errors.Is(err, domain.ErrUnsupportedSchema):
		return nil, err
	case err != nil:
		a.logger.Warn("replacing unreadable lock document", "path", path, "error", err.Error())
	case prev.SamePackages(doc):
		doc.GeneratedAt = prev.GeneratedAt
		res.Unchanged = true
		a.logger.Debug("lock document is up to date", "path", path)
		return res, nil
	}

	if err := a.locks.Save(path, doc); err != nil {
		return nil, err
	}
	a.logger.Info("locked", "packages", len(doc.Packages), "path", path)
	return res, nil
}

func targetFor(project *domain.Project, opts LockOptions) (domain.Target, error) {
	raw := opts.Python
	if raw == "" {
		raw = project.Python
	}
	if raw == "" {
		raw = domain.DefaultPythonVersion
	}
	python, err := domain.ParseVersion(raw)
	if err != nil {
		return domain.Target{}, zerr.With(zerr.Wrap(err, "invalid target interpreter"), "python", raw)
	}
	target := domain.HostTarget(python)
	if opts.ABI != "" {
		target.ABI = opts.ABI
	}
	platforms := opts.Platforms
	if len(platforms) == 0 {
		platforms = project.Platforms
	}
	if len(platforms) > 0 {
		target.Platforms = append([]string(nil), platforms...)
	}
	return target, nil
}

// indexesFor lists the project's indexes, then the configured mirrors. The
// default index is used when neither names one.
func indexesFor(project *domain.Project, settings domain.Settings) []domain.Index {
	out := make([]domain.Index, 0, len(project.Indexes)+len(settings.Mirrors))
	seen := make(map[string]struct{})
	for _, idx := range append(append([]domain.Index(nil), project.Indexes...), settings.Mirrors...) {
		if _, dup := seen[idx.URL]; dup {
			continue
		}
		seen[idx.URL] = struct{}{}
		out = append(out, idx)
	}
	if len(out) == 0 {
		out = append(out, domain.Index{Name: "pypi", URL: domain.DefaultIndexURL})
	}
	return out
}

// SyncOptions selects what a sync run installs and where.
type SyncOptions struct {
	LockOptions
	Env    string
	Frozen bool
}

// SyncResult describes a sync run.
type SyncResult struct {
	Lock       *LockResult
	Env        string
	Report     *domain.InstallReport
	Extraneous []string
}

// Sync brings the environment in line with the lock document, re-locking
// first unless opts.Frozen is set. Packages that fail to download are
// reported while the rest are still installed.
func (a *App) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	ctx, span := a.tracer.Start(ctx, "sync")
	defer span.End()

	res, err := a.sync(ctx, opts)
	span.RecordError(err)
	return res, err
}

func (a *App) sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	locked, err := a.lockForSync(ctx, opts)
	if err != nil {
		return nil, err
	}
	return a.install(ctx, locked, envDir(opts.Env, locked.Path))
}

// envDir defaults the environment to a directory next to the lock document.
func envDir(env, lockPath string) string {
	if env != "" {
		return env
	}
	return filepath.Join(filepath.Dir(lockPath), domain.DefaultEnvDirName)
}

// install fetches and links every package of locked into env.
func (a *App) install(ctx context.Context, locked *LockResult, env string) (*SyncResult, error) {
	settings, err := a.settings.Load()
	if err != nil {
		return nil, err
	}
	graph, err := locked.Document.Graph()
	if err != nil {
		return nil, zerr.With(err, "path", locked.Path)
	}
	res := &SyncResult{Lock: locked, Env: env}

	items, fetchErr := a.scheduler.Fetch(ctx, graph, settings.Concurrency)
	if ctx.Err() != nil {
		return res, fetchErr
	}

	installCtx, span := a.tracer.Start(ctx, "install")
	span.SetAttribute("packages", len(items))
	report, installErr := a.installer.Install(installCtx, env, items)
	span.RecordError(installErr)
	span.End()
	res.Report = report

	records, err := a.installer.Installed(env)
	if err != nil {
		a.logger.Warn("could not list installed packages", "env", env, "error", err.Error())
	}
	for _, rec := range records {
		if _, ok := locked.Document.Package(domain.NewPackageName(rec.Name)); !ok {
			res.Extraneous = append(res.Extraneous, rec.Name)
			a.logger.Warn("package is installed but not locked", "package", rec.Name, "version", rec.Version)
		}
	}

	if err := errors.Join(fetchErr, installErr); err != nil {
		return res, zerr.Wrap(err, "sync incomplete")
	}
	return res, nil
}

func (a *App) lockForSync(ctx context.Context, opts SyncOptions) (*LockResult, error) {
	if !opts.Frozen {
		return a.Lock(ctx, opts.LockOptions)
	}
	project, err := a.projects.Load(opts.Dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load project")
	}
	return a.loadLock(project.Root)
}

func (a *App) loadLock(root string) (*LockResult, error) {
	path := domain.LockPath(root)
	doc, err := a.locks.Load(path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrNoLockDocument, "load lock document"), "path", path)
	}
	return &LockResult{Path: path, Document: doc, Unchanged: true}, nil
}

// AddOptions names the requirements to add and how to follow up.
type AddOptions struct {
	SyncOptions
	Requirements []string
	NoSync       bool
}

// Add records requirements in pyproject.toml, then re-locks and, unless
// opts.NoSync is set, syncs the environment.
func (a *App) Add(ctx context.Context, opts AddOptions) (*SyncResult, error) {
	if len(opts.Requirements) == 0 {
		return nil, zerr.Wrap(domain.ErrInvalidRequirement, "no requirements given")
	}
	reqs := make([]domain.Requirement, 0, len(opts.Requirements))
	for _, raw := range opts.Requirements {
		r, err := domain.ParseRequirement(raw)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	if err := a.projects.AddDependencies(opts.Dir, reqs); err != nil {
		return nil, zerr.Wrap(err, "failed to update pyproject.toml")
	}

	if opts.NoSync {
		locked, err := a.Lock(ctx, opts.LockOptions)
		if err != nil {
			return nil, err
		}
		return &SyncResult{Lock: locked}, nil
	}
	opts.Frozen = false
	return a.Sync(ctx, opts.SyncOptions)
}

// RemoveOptions names the packages to drop from the project.
type RemoveOptions struct {
	SyncOptions
	Packages []string
	// CleanCache also deletes the cached artifacts of dropped packages.
	CleanCache bool
	NoSync     bool
}

// RemoveResult describes a remove run.
type RemoveResult struct {
	Lock *LockResult
	// Sync is nil when the environment was not touched.
	Sync *SyncResult
	// Dropped lists the packages the new lock document no longer holds.
	Dropped     []domain.PackageName
	Uninstalled []domain.PackageName
	Cleaned     domain.GCReport
}

// Remove deletes packages from [project].dependencies and re-locks. Unless
// opts.NoSync is set, packages that dropped out of the lock are uninstalled
// and the environment is synced.
func (a *App) Remove(ctx context.Context, opts RemoveOptions) (*RemoveResult, error) {
	ctx, span := a.tracer.Start(ctx, "remove")
	defer span.End()

	res, err := a.remove(ctx, opts)
	span.RecordError(err)
	return res, err
}

func (a *App) remove(ctx context.Context, opts RemoveOptions) (*RemoveResult, error) {
	if len(opts.Packages) == 0 {
		return nil, zerr.Wrap(domain.ErrInvalidPackageName, "no packages given")
	}
	names := make([]domain.PackageName, 0, len(opts.Packages))
	for _, raw := range opts.Packages {
		name, err := domain.ParsePackageName(raw)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	project, err := a.projects.Load(opts.Dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load project")
	}
	prev, err := a.locks.Load(domain.LockPath(project.Root))
	if err != nil {
		a.logger.Debug("no previous lock document to compare", "error", err.Error())
		prev = nil
	}

	if err := a.projects.RemoveDependencies(opts.Dir, names); err != nil {
		return nil, zerr.Wrap(err, "failed to update pyproject.toml")
	}
	locked, err := a.Lock(ctx, opts.LockOptions)
	if err != nil {
		return nil, err
	}
	res := &RemoveResult{Lock: locked, Dropped: dropped(prev, locked.Document, names)}

	var syncErr error
	if !opts.NoSync {
		env := envDir(opts.Env, locked.Path)
		res.Uninstalled, err = a.installer.Uninstall(env, res.Dropped)
		if err != nil {
			return res, zerr.Wrap(err, "failed to uninstall")
		}
		syncCtx, span := a.tracer.Start(ctx, "sync")
		res.Sync, syncErr = a.install(syncCtx, locked, env)
		span.RecordError(syncErr)
		span.End()
	}

	if opts.CleanCache && prev != nil {
		var digests []domain.Digest
		for _, name := range res.Dropped {
			if p, ok := prev.Package(name); ok {
				digests = append(digests, p.Digest)
			}
		}
		res.Cleaned, err = a.cache.Remove(ctx, digests)
		if err != nil {
			return res, errors.Join(syncErr, zerr.Wrap(err, "failed to clean cache"))
		}
	}
	return res, syncErr
}

// dropped lists the packages of prev that next no longer holds. Without a
// previous document the removed names themselves are used.
func dropped(prev, next *domain.LockDocument, removed []domain.PackageName) []domain.PackageName {
	candidates := removed
	if prev != nil {
		candidates = make([]domain.PackageName, 0, len(prev.Packages))
		for _, p := range prev.Packages {
			candidates = append(candidates, p.Name)
		}
	}
	var out []domain.PackageName
	for _, name := range candidates {
		if _, ok := next.Package(name); !ok {
			out = append(out, name)
		}
	}
	slices.SortFunc(out, domain.ComparePackageNames)
	return slices.Compact(out)
}
