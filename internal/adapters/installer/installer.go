// Package installer links cached wheel trees into an environment.
package installer

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	safs "go.trai.ch/sa/internal/adapters/fs"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ErrNotInstallable is returned for cache entries without an unpacked tree,
// such as source distributions.
var ErrNotInstallable = zerr.New("distribution has no installable tree")

// Installer implements ports.Installer with hard links.
type Installer struct {
	walker      *safs.Walker
	linker      *safs.Linker
	verifier    *safs.Verifier
	metrics     ports.Metrics
	concurrency int
}

var _ ports.Installer = (*Installer)(nil)

// New creates an Installer placing at most concurrency packages at once.
func New(walker *safs.Walker, linker *safs.Linker, verifier *safs.Verifier, metrics ports.Metrics, concurrency int) *Installer {
	return &Installer{
		walker:      walker,
		linker:      linker,
		verifier:    verifier,
		metrics:     metrics,
		concurrency: max(concurrency, 1),
	}
}

type tally struct {
	linked, copied, unchanged int
}

// Install links every item into env. Packages are independent: a failure is
// recorded and the others continue.
func (i *Installer) Install(ctx context.Context, env string, items []domain.InstallItem) (*domain.InstallReport, error) {
	report := &domain.InstallReport{}
	failed := make(map[domain.PackageName]error)
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(i.concurrency)
	for _, item := range items {
		g.Go(func() error {
			t, err := i.installOne(ctx, env, item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[item.Name] = zerr.With(err, "version", item.Version.String())
				return nil
			}
			report.Installed = append(report.Installed, item.Name)
			report.Linked += t.linked
			report.Copied += t.copied
			report.Unchanged += t.unchanged
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(report.Installed, domain.ComparePackageNames)
	for name := range failed {
		report.Failed = append(report.Failed, name)
	}
	slices.SortFunc(report.Failed, domain.ComparePackageNames)

	i.metrics.InstalledFiles(string(safs.ModeLink), report.Linked)
	i.metrics.InstalledFiles(string(safs.ModeCopy), report.Copied)
	i.metrics.InstalledFiles(string(safs.ModeUnchanged), report.Unchanged)

	if len(failed) > 0 {
		return report, &domain.InstallError{Failed: failed}
	}
	return report, nil
}

func (i *Installer) installOne(ctx context.Context, env string, item domain.InstallItem) (tally, error) {
	var t tally
	tree := item.Entry.UnpackedPath
	if tree == "" {
		return t, zerr.With(zerr.Wrap(ErrNotInstallable, "install"), "filename", item.Entry.Filename)
	}
	site := domain.SitePackagesPath(env)
	recordPath := domain.InstalledRecordPath(env, item.Name)

	prev, hasPrev := readRecord(recordPath)
	if hasPrev && prev.Digest == item.Entry.Digest {
		missing, err := i.verifier.MissingFiles(site, prev.Files)
		if err == nil && len(missing) == 0 {
			t.unchanged = len(prev.Files)
			return t, nil
		}
	}

	var files []string
	for rel, err := range i.walker.WalkFiles(tree, nil) {
		if err != nil {
			return t, domain.FilesystemError(err, "walk unpacked tree", tree)
		}
		if err := ctx.Err(); err != nil {
			return t, err
		}
		mode, err := i.linker.Place(filepath.Join(tree, filepath.FromSlash(rel)), filepath.Join(site, filepath.FromSlash(rel)))
		if err != nil {
			return t, err
		}
		switch mode {
		case safs.ModeLink:
			t.linked++
		case safs.ModeCopy:
			t.copied++
		case safs.ModeUnchanged:
			t.unchanged++
		}
		files = append(files, rel)
	}

	slices.Sort(files)
	if hasPrev {
		removeStale(site, prev.Files, files)
	}

	record := domain.InstalledRecord{
		Name:    item.Name.String(),
		Version: item.Version.String(),
		Digest:  item.Entry.Digest,
		Files:   files,
	}
	if err := writeRecord(recordPath, record); err != nil {
		return t, err
	}
	return t, nil
}

// Uninstall removes the files recorded for each of names, then the record
// itself. Directories left empty are pruned up to site-packages.
func (i *Installer) Uninstall(env string, names []domain.PackageName) ([]domain.PackageName, error) {
	site := domain.SitePackagesPath(env)
	var removed []domain.PackageName
	for _, name := range names {
		recordPath := domain.InstalledRecordPath(env, name)
		rec, ok := readRecord(recordPath)
		if !ok {
			continue
		}
		for _, rel := range rec.Files {
			path := filepath.Join(site, filepath.FromSlash(rel))
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return removed, domain.FilesystemError(err, "remove", path)
			}
			pruneEmptyDirs(site, filepath.Dir(path))
		}
		if err := os.Remove(recordPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, domain.FilesystemError(err, "remove record", recordPath)
		}
		removed = append(removed, name)
	}
	slices.SortFunc(removed, domain.ComparePackageNames)
	return removed, nil
}

// pruneEmptyDirs removes dir and its parents while they are empty, stopping
// at site.
func pruneEmptyDirs(site, dir string) {
	for dir != site && strings.HasPrefix(dir, site+string(filepath.Separator)) {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// removeStale deletes files a previous version installed that the new one
// does not ship.
func removeStale(site string, old, current []string) {
	for _, rel := range old {
		if _, kept := slices.BinarySearch(current, rel); kept {
			continue
		}
		_ = os.Remove(filepath.Join(site, filepath.FromSlash(rel)))
	}
}

func readRecord(path string) (domain.InstalledRecord, bool) {
	var rec domain.InstalledRecord
	data, err := os.ReadFile(path) //nolint:gosec // Path is derived from the environment root
	if err != nil {
		return rec, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, false
	}
	return rec, true
}

func writeRecord(path string, rec domain.InstalledRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal installed record")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return domain.FilesystemError(err, "mkdir", dir)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.FilesystemError(err, "create temp record", dir)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return domain.FilesystemError(err, "write record", tmp)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return domain.FilesystemError(err, "close record", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return domain.FilesystemError(err, "rename record", path)
	}
	return nil
}

// Installed reads every installed-files record in env. ReadDir returns
// them sorted by file name, which is the normalized package name.
func (i *Installer) Installed(env string) ([]domain.InstalledRecord, error) {
	dir := filepath.Join(env, domain.EnvMetaDirName, domain.InstalledDirName)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.FilesystemError(err, "list installed records", dir)
	}
	var out []domain.InstalledRecord
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" || e.Name()[0] == '.' {
			continue
		}
		if rec, ok := readRecord(filepath.Join(dir, e.Name())); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
