package domain_test

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/core/domain"
)

func TestTarget_CompatibleTags(t *testing.T) {
	t.Parallel()

	target := domain.NewTarget(domain.MustParseVersion("3.12.1"), "linux", "amd64")
	tags := target.CompatibleTags()
	require.NotEmpty(t, tags)
	assert.Equal(t, "cp312-cp312-manylinux_2_39_x86_64", tags[0].String())

	pos := func(s string) int {
		return slices.IndexFunc(tags, func(tag domain.Tag) bool { return tag.String() == s })
	}
	native := pos("cp312-cp312-manylinux2014_x86_64")
	abi3 := pos("cp312-abi3-manylinux_2_17_x86_64")
	olderAbi3 := pos("cp38-abi3-manylinux_2_17_x86_64")
	pure := pos("py3-none-any")

	require.NotEqual(t, -1, native)
	require.NotEqual(t, -1, abi3)
	require.NotEqual(t, -1, olderAbi3)
	require.NotEqual(t, -1, pure)
	assert.Less(t, native, abi3)
	assert.Less(t, abi3, olderAbi3)
	assert.Less(t, olderAbi3, pure)
	assert.Equal(t, -1, pos("cp311-cp311-manylinux_2_17_x86_64"))
}

func TestTagIndex_Best(t *testing.T) {
	t.Parallel()

	idx := domain.NewTarget(domain.MustParseVersion("3.11.4"), "darwin", "arm64").TagIndex()

	_, ok := idx.Best([]domain.Tag{{Python: "cp311", ABI: "cp311", Platform: "win_amd64"}})
	assert.False(t, ok)

	native, ok := idx.Best([]domain.Tag{{Python: "cp311", ABI: "cp311", Platform: "macosx_11_0_arm64"}})
	require.True(t, ok)
	pure, ok := idx.Best([]domain.Tag{
		{Python: "py2", ABI: "none", Platform: "any"},
		{Python: "py3", ABI: "none", Platform: "any"},
	})
	require.True(t, ok)
	assert.Less(t, native, pure)
}

func TestTarget_MarkerEnvironment(t *testing.T) {
	t.Parallel()

	env := domain.NewTarget(domain.MustParseVersion("3.10.2"), "windows", "amd64").MarkerEnvironment()
	assert.Equal(t, "3.10", env[domain.MarkerPythonVersion])
	assert.Equal(t, "3.10.2", env[domain.MarkerPythonFullVersion])
	assert.Equal(t, "nt", env[domain.MarkerOSName])
	assert.Equal(t, "win32", env[domain.MarkerSysPlatform])
	assert.Equal(t, "Windows", env[domain.MarkerPlatformSystem])
	assert.Equal(t, "AMD64", env[domain.MarkerPlatformMachine])
}

func TestLayoutPaths(t *testing.T) {
	t.Setenv(domain.CacheDirEnv, "/tmp/sa-cache")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "DefaultCachePath",
			got:      domain.DefaultCachePath(),
			expected: "/tmp/sa-cache",
		},
		{
			name:     "LockPath",
			got:      domain.LockPath("proj"),
			expected: filepath.Join("proj", "sa.lock"),
		},
		{
			name:     "SitePackagesPath",
			got:      domain.SitePackagesPath(".venv"),
			expected: filepath.Join(".venv", "site-packages"),
		},
		{
			name:     "InstalledRecordPath",
			got:      domain.InstalledRecordPath(".venv", domain.NewPackageName("Foo_Bar")),
			expected: filepath.Join(".venv", ".sa", "installed", "foo-bar.json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
