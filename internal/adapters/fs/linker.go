package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"go.trai.ch/sa/internal/core/domain"
)

// Mode says how a file was placed.
type Mode string

// Placement modes.
const (
	ModeLink      Mode = "link"
	ModeCopy      Mode = "copy"
	ModeUnchanged Mode = "unchanged"
)

var tempSeq atomic.Uint64

// Linker places files from the content cache into an environment.
type Linker struct {
	hasher *Hasher
	link   func(oldname, newname string) error
}

// NewLinker creates a Linker that hard-links when it can.
func NewLinker(hasher *Hasher) *Linker {
	return &Linker{hasher: hasher, link: os.Link}
}

// Place makes dst hold the content of src. It hard-links src to dst and
// falls back to copying when the file system refuses the link. A dst that
// already is src is left alone, as is a same-content copy when linking is
// refused; any other existing dst is replaced atomically.
func (l *Linker) Place(src, dst string) (Mode, error) {
	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return "", domain.FilesystemError(err, "mkdir", filepath.Dir(dst))
	}

	dstInfo, err := os.Lstat(dst)
	exists := err == nil
	if exists {
		if srcInfo, err := os.Stat(src); err == nil && os.SameFile(srcInfo, dstInfo) {
			return ModeUnchanged, nil
		}
	}

	tmp := fmt.Sprintf("%s.%d.%d.satmp", dst, os.Getpid(), tempSeq.Add(1))
	mode := ModeLink
	if err := l.link(src, tmp); err != nil {
		if !linkUnsupported(err) {
			return "", domain.FilesystemError(err, "link", dst)
		}
		if exists {
			if same, err := l.hasher.SameContent(src, dst); err == nil && same {
				return ModeUnchanged, nil
			}
		}
		if err := copyFile(src, tmp); err != nil {
			_ = os.Remove(tmp)
			return "", domain.FilesystemError(err, "copy", dst)
		}
		mode = ModeCopy
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", domain.FilesystemError(err, "rename", dst)
	}
	return mode, nil
}

func linkUnsupported(err error) bool {
	return errors.Is(err, syscall.EXDEV) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EMLINK) ||
		errors.Is(err, errors.ErrUnsupported)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // Best effort close in defer

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm()) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
