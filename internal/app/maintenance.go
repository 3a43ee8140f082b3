package app

import (
	"context"
	"net/url"
	"slices"
	"time"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/zerr"
)

// CacheDir returns the content cache root.
func (a *App) CacheDir() string {
	return a.cache.Root()
}

// CacheStats summarizes the content cache.
func (a *App) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	return a.cache.Stats(ctx)
}

// CacheVerify re-hashes every cached archive.
func (a *App) CacheVerify(ctx context.Context) (domain.VerifyReport, error) {
	ctx, span := a.tracer.Start(ctx, "cache.verify")
	defer span.End()

	report, err := a.cache.Verify(ctx)
	span.RecordError(err)
	if err == nil && len(report.Corrupt) > 0 {
		a.logger.Warn("evicted corrupt cache entries", "count", len(report.Corrupt))
	}
	return report, err
}

// GCOptions selects what garbage collection keeps.
type GCOptions struct {
	// Dirs are projects whose locked artifacts are kept regardless of age.
	Dirs []string
	// Retention overrides the configured retention when positive.
	Retention time.Duration
}

// CacheGC removes cache entries that no listed project locks and that have
// not been used within the retention period.
func (a *App) CacheGC(ctx context.Context, opts GCOptions) (domain.GCReport, error) {
	ctx, span := a.tracer.Start(ctx, "cache.gc")
	defer span.End()

	retention := opts.Retention
	if retention <= 0 {
		settings, err := a.settings.Load()
		if err != nil {
			return domain.GCReport{}, err
		}
		retention = settings.Retention
	}

	keep := make(map[domain.Digest]struct{})
	for _, dir := range opts.Dirs {
		project, err := a.projects.Load(dir)
		if err != nil {
			return domain.GCReport{}, zerr.Wrap(err, "failed to load project")
		}
		doc, err := a.locks.Load(domain.LockPath(project.Root))
		if err != nil {
			return domain.GCReport{}, err
		}
		if doc == nil {
			continue
		}
		for _, p := range doc.Packages {
			keep[p.Digest] = struct{}{}
		}
	}

	report, err := a.cache.GC(ctx, keep, retention)
	span.RecordError(err)
	if err == nil {
		a.logger.Debug("cache gc", "removed", len(report.Removed), "freed", report.FreedBytes, "kept", len(keep))
	}
	return report, err
}

// Mirrors lists the configured mirrors.
func (a *App) Mirrors() ([]domain.Index, error) {
	settings, err := a.settings.Load()
	if err != nil {
		return nil, err
	}
	return settings.Mirrors, nil
}

// AddMirror appends a mirror to the global configuration.
func (a *App) AddMirror(name, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return zerr.With(zerr.Wrap(domain.ErrInvalidIndexURL, "mirror URL must be absolute http(s)"), "url", rawURL)
	}
	settings, err := a.settings.Load()
	if err != nil {
		return err
	}
	if slices.ContainsFunc(settings.Mirrors, func(m domain.Index) bool { return m.Name == name }) {
		return zerr.With(zerr.Wrap(domain.ErrMirrorExists, "add mirror"), "mirror", name)
	}
	mirrors := append(slices.Clone(settings.Mirrors), domain.Index{Name: name, URL: rawURL})
	return a.settings.SaveMirrors(mirrors)
}

// RemoveMirror drops a mirror from the global configuration.
func (a *App) RemoveMirror(name string) error {
	settings, err := a.settings.Load()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(settings.Mirrors, func(m domain.Index) bool { return m.Name == name })
	if i < 0 {
		return zerr.With(zerr.Wrap(domain.ErrMirrorNotFound, "lookup mirror"), "mirror", name)
	}
	return a.settings.SaveMirrors(slices.Delete(slices.Clone(settings.Mirrors), i, i+1))
}

// ProbePackage is requested from a mirror to test it.
const ProbePackage = "pip"

// MirrorStatus is the outcome of a mirror probe.
type MirrorStatus struct {
	Mirror   domain.Index
	Versions int
	Latency  time.Duration
}

// TestMirror lists the versions of ProbePackage through the named mirror.
func (a *App) TestMirror(ctx context.Context, name string) (MirrorStatus, error) {
	ctx, span := a.tracer.Start(ctx, "mirror.test")
	defer span.End()

	settings, err := a.settings.Load()
	if err != nil {
		return MirrorStatus{}, err
	}
	i := slices.IndexFunc(settings.Mirrors, func(m domain.Index) bool { return m.Name == name })
	if i < 0 {
		return MirrorStatus{}, zerr.With(zerr.Wrap(domain.ErrMirrorNotFound, "lookup mirror"), "mirror", name)
	}
	status := MirrorStatus{Mirror: settings.Mirrors[i]}

	provider := a.providers.New([]domain.Index{status.Mirror}, false)
	start := a.now()
	candidates, err := provider.Versions(ctx, domain.NewPackageName(ProbePackage))
	status.Latency = a.now().Sub(start)
	if err != nil {
		span.RecordError(err)
		return status, zerr.With(zerr.Wrap(err, "mirror unreachable"), "mirror", name)
	}
	status.Versions = len(candidates)
	return status, nil
}
