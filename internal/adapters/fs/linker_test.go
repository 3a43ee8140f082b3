package fs_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/adapters/fs"
	"go.trai.ch/sa/internal/core/domain"
)

func sameInode(t *testing.T, a, b string) bool {
	t.Helper()
	ai, err := os.Stat(a)
	require.NoError(t, err)
	bi, err := os.Stat(b)
	require.NoError(t, err)
	return os.SameFile(ai, bi)
}

func TestLinker_Place(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "cache", "pkg", "mod.py")
	dst := filepath.Join(dir, "env", "site-packages", "pkg", "mod.py")
	writeFile(t, src, "print('hi')")

	linker := fs.NewLinker(fs.NewHasher())

	mode, err := linker.Place(src, dst)
	require.NoError(t, err)
	assert.Equal(t, fs.ModeLink, mode)
	assert.True(t, sameInode(t, src, dst))

	mode, err = linker.Place(src, dst)
	require.NoError(t, err)
	assert.Equal(t, fs.ModeUnchanged, mode)
}

func TestLinker_PlaceRelinksIdenticalCopy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "same")
	writeFile(t, dst, "same")
	require.False(t, sameInode(t, src, dst))

	mode, err := fs.NewLinker(fs.NewHasher()).Place(src, dst)
	require.NoError(t, err)
	assert.Equal(t, fs.ModeLink, mode)
	assert.True(t, sameInode(t, src, dst))
}

func TestLinker_PlaceReplacesDifferentFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, "new")
	writeFile(t, dst, "old")

	mode, err := fs.NewLinker(fs.NewHasher()).Place(src, dst)
	require.NoError(t, err)
	assert.Equal(t, fs.ModeLink, mode)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files are left behind")
}

func TestLinker_PlaceFallsBackToCopy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "out", "dst")
	writeFile(t, src, "content")

	linker := fs.NewLinker(fs.NewHasher())
	linker.SetLinkFunc(func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: syscall.EXDEV}
	})

	mode, err := linker.Place(src, dst)
	require.NoError(t, err)
	assert.Equal(t, fs.ModeCopy, mode)
	assert.False(t, sameInode(t, src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "content", string(got))

	mode, err = linker.Place(src, dst)
	require.NoError(t, err)
	assert.Equal(t, fs.ModeUnchanged, mode, "identical copies are left alone")
}

func TestLinker_PlaceLinkError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, src, "content")

	linker := fs.NewLinker(fs.NewHasher())
	linker.SetLinkFunc(func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: syscall.ENOSPC}
	})

	_, err := linker.Place(src, filepath.Join(dir, "dst"))
	require.ErrorIs(t, err, domain.ErrFilesystem)
}
