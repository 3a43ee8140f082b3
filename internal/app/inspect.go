package app

import (
	"cmp"
	"context"
	"io"
	"path/filepath"
	"slices"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/zerr"
)

// GraphOptions selects the part of the locked graph to render.
type GraphOptions struct {
	Dir string
	// Package roots the rendering; empty renders from the project roots.
	Package string
	// Transitive follows dependencies past the first level.
	Transitive bool
}

// Graph writes the locked dependency graph to w in DOT format.
func (a *App) Graph(ctx context.Context, w io.Writer, opts GraphOptions) error {
	_, span := a.tracer.Start(ctx, "graph")
	defer span.End()

	project, err := a.projects.Load(opts.Dir)
	if err != nil {
		return zerr.Wrap(err, "failed to load project")
	}
	locked, err := a.loadLock(project.Root)
	if err != nil {
		return err
	}
	g, err := locked.Document.Graph()
	if err != nil {
		return zerr.With(err, "path", locked.Path)
	}

	var roots []domain.PackageName
	if opts.Package != "" {
		name, err := domain.ParsePackageName(opts.Package)
		if err != nil {
			return err
		}
		if _, ok := g.Package(name); !ok {
			return zerr.With(zerr.Wrap(domain.ErrPackageNotInGraph, "graph root"), "package", name.String())
		}
		roots = []domain.PackageName{name}
	}
	if !opts.Transitive {
		g, err = firstLevel(g, roots)
		if err != nil {
			return err
		}
	}

	err = a.renderer.Render(w, g, roots)
	span.RecordError(err)
	return err
}

// firstLevel trims g to the given roots (the applicable graph roots when
// none are given) and their direct dependencies.
func firstLevel(g *domain.ResolvedGraph, roots []domain.PackageName) (*domain.ResolvedGraph, error) {
	if len(roots) == 0 {
		env := g.Target.MarkerEnvironment()
		for _, r := range g.Roots {
			if _, ok := g.Package(r.Name); ok && r.AppliesTo(env) {
				roots = append(roots, r.Name)
			}
		}
	}

	keep := make(map[domain.PackageName]bool)
	for _, name := range roots {
		keep[name] = true
		p, _ := g.Package(name)
		for _, dep := range p.Dependencies {
			if !keep[dep] {
				keep[dep] = false
			}
		}
	}

	out := domain.NewResolvedGraph(g.Roots, g.Target)
	for p := range g.Packages() {
		isRoot, ok := keep[p.Name]
		if !ok {
			continue
		}
		trimmed := *p
		trimmed.Dependencies = nil
		if isRoot {
			trimmed.Dependencies = p.Dependencies
		}
		if err := out.AddPackage(&trimmed); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AuditOptions selects the project and advisory database to audit.
type AuditOptions struct {
	Dir string
	// Database is a file path or http(s) URL; empty selects
	// advisories.json in the cache directory.
	Database string
}

// AdvisoryDBFileName is the default advisory database inside the cache root.
const AdvisoryDBFileName = "advisories.json"

// Audit matches every locked package against the advisory database. The
// findings are returned together with ErrVulnerabilitiesFound when any
// package is affected.
func (a *App) Audit(ctx context.Context, opts AuditOptions) ([]domain.Finding, error) {
	ctx, span := a.tracer.Start(ctx, "audit")
	defer span.End()

	project, err := a.projects.Load(opts.Dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load project")
	}
	locked, err := a.loadLock(project.Root)
	if err != nil {
		return nil, err
	}

	db := opts.Database
	if db == "" {
		db = filepath.Join(a.cache.Root(), AdvisoryDBFileName)
	}
	advisories, err := a.advisories.Load(ctx, db)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var findings []domain.Finding
	for _, adv := range advisories {
		p, ok := locked.Document.Package(adv.Package)
		if !ok || !adv.Affects(p.Version) {
			continue
		}
		findings = append(findings, domain.Finding{Package: p.Name, Version: p.Version, Advisory: adv})
	}
	slices.SortFunc(findings, func(x, y domain.Finding) int {
		return cmp.Or(
			domain.ComparePackageNames(x.Package, y.Package),
			cmp.Compare(x.Advisory.ID, y.Advisory.ID),
		)
	})
	a.logger.Debug("audit complete", "advisories", len(advisories), "findings", len(findings))

	if len(findings) > 0 {
		err := zerr.With(zerr.Wrap(domain.ErrVulnerabilitiesFound, "audit failed"), "count", len(findings))
		span.RecordError(err)
		return findings, err
	}
	return nil, nil
}

// ListOptions selects the project and environment to list.
type ListOptions struct {
	Dir string
	Env string
}

// ListedPackage is one locked package and its state in the environment.
type ListedPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	// Direct is set for packages the project requires itself.
	Direct bool `json:"direct"`
	// Installed is the version found in the environment, empty when absent.
	Installed    string   `json:"installed,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// ListResult is the locked package set in name order.
type ListResult struct {
	Lock     string          `json:"lock"`
	Env      string          `json:"env"`
	Packages []ListedPackage `json:"packages"`
}

// Package looks up a listed package by normalized name.
func (r *ListResult) Package(name string) (ListedPackage, bool) {
	i := slices.IndexFunc(r.Packages, func(p ListedPackage) bool { return p.Name == name })
	if i < 0 {
		return ListedPackage{}, false
	}
	return r.Packages[i], true
}

// List reports every locked package together with the version installed in
// the environment.
func (a *App) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	_, span := a.tracer.Start(ctx, "list")
	defer span.End()

	project, err := a.projects.Load(opts.Dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load project")
	}
	locked, err := a.loadLock(project.Root)
	if err != nil {
		return nil, err
	}
	g, err := locked.Document.Graph()
	if err != nil {
		return nil, zerr.With(err, "path", locked.Path)
	}

	env := envDir(opts.Env, locked.Path)
	records, err := a.installer.Installed(env)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	installed := make(map[domain.PackageName]string, len(records))
	for _, rec := range records {
		installed[domain.NewPackageName(rec.Name)] = rec.Version
	}

	direct := make(map[domain.PackageName]bool)
	markers := g.Target.MarkerEnvironment()
	for _, r := range g.Roots {
		if r.AppliesTo(markers) {
			direct[r.Name] = true
		}
	}

	res := &ListResult{Lock: locked.Path, Env: env}
	for p := range g.Packages() {
		item := ListedPackage{
			Name:      p.Name.String(),
			Version:   p.Version.String(),
			Direct:    direct[p.Name],
			Installed: installed[p.Name],
		}
		for _, dep := range p.Dependencies {
			item.Dependencies = append(item.Dependencies, dep.String())
		}
		res.Packages = append(res.Packages, item)
	}
	return res, nil
}
