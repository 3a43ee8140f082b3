package cas

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/zerr"
)

// ErrUnsafeArchivePath is returned for archive members that would land
// outside the extraction directory.
var ErrUnsafeArchivePath = zerr.New("archive member escapes destination")

// extractWheel unpacks the wheel at archive into dest, which must exist.
func extractWheel(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		if zr != nil {
			_ = zr.Close()
		}
		return zerr.With(zerr.Wrap(ErrUnsafeArchivePath, "open wheel"), "path", archive)
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, "open wheel"), "path", archive)
	}
	defer zr.Close() //nolint:errcheck // Best effort close in defer

	for _, f := range zr.File {
		name := strings.TrimPrefix(f.Name, "./")
		if name == "" {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(name)) || strings.Contains(name, `\`) {
			return zerr.With(zerr.Wrap(ErrUnsafeArchivePath, "extract wheel"), "member", f.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(name))

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, domain.DirPerm); err != nil {
				return domain.FilesystemError(err, "mkdir", target)
			}
			continue
		case mode&os.ModeSymlink != 0:
			return zerr.With(zerr.Wrap(ErrUnsafeArchivePath, "extract wheel"), "member", f.Name)
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return domain.FilesystemError(err, "mkdir", filepath.Dir(target))
	}

	perm := os.FileMode(domain.FilePerm)
	if f.Mode()&0o111 != 0 {
		perm = 0o755
	}

	rc, err := f.Open()
	if err != nil {
		return zerr.With(zerr.Wrap(err, "open wheel member"), "member", f.Name)
	}
	defer rc.Close() //nolint:errcheck // Best effort close in defer

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //nolint:gosec // target is checked to be local
	if err != nil {
		return domain.FilesystemError(err, "create", target)
	}
	if _, err := io.Copy(out, rc); err != nil { //nolint:gosec // size is bounded by the verified archive
		_ = out.Close()
		return zerr.With(zerr.Wrap(err, "extract wheel member"), "member", f.Name)
	}
	if err := out.Close(); err != nil {
		return domain.FilesystemError(err, "close", target)
	}
	return nil
}
