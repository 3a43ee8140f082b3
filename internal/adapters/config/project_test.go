package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/adapters/config"
	"go.trai.ch/sa/internal/core/domain"
)

const samplePyproject = `# demo project
[build-system]
requires = ["hatchling"]

[project]
name = "demo"
requires-python = ">=3.10"
dependencies = [
    "requests[socks]>=2.31",  # http
    "Click",
]

[project.optional-dependencies]
Dev_Tools = ["pytest>=8"]

[tool.sa]
merge-indexes = true
prerelease = false
python = "3.12.1"
platforms = ["manylinux_2_17_x86_64"]

[[tool.sa.indexes]]
name = "internal"
url = "https://pypi.internal/simple"
`

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, domain.ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProjectLoader_Load(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeManifest(t, root, samplePyproject)
	sub := filepath.Join(root, "src", "demo")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	p, err := config.NewProjectLoader().Load(sub)
	require.NoError(t, err)

	assert.Equal(t, root, p.Root)
	assert.Equal(t, "demo", p.Name)
	require.Len(t, p.Requirements, 2)
	assert.Equal(t, "requests[socks]>=2.31", p.Requirements[0].String())
	assert.Equal(t, "click", p.Requirements[1].Name.String())
	assert.Equal(t, ">=3.10", p.RequiresPython.String())
	assert.True(t, p.MergeIndexes)
	assert.Equal(t, "3.12.1", p.Python)
	assert.Equal(t, []string{"manylinux_2_17_x86_64"}, p.Platforms)
	assert.Equal(t, []domain.Index{{Name: "internal", URL: "https://pypi.internal/simple"}}, p.Indexes)

	all := p.RootRequirements("dev-tools")
	require.Len(t, all, 3)
	assert.Equal(t, "pytest>=8", all[2].String())
}

func TestProjectLoader_Load_Errors(t *testing.T) {
	t.Parallel()

	_, err := config.NewProjectLoader().Load(t.TempDir())
	require.ErrorIs(t, err, domain.ErrManifestNotFound)

	bad := t.TempDir()
	writeManifest(t, bad, "[project\n")
	_, err = config.NewProjectLoader().Load(bad)
	require.ErrorIs(t, err, domain.ErrManifestInvalid)

	badReq := t.TempDir()
	writeManifest(t, badReq, "[project]\ndependencies = [\"pkg @ https://x/y.whl\"]\n")
	_, err = config.NewProjectLoader().Load(badReq)
	require.ErrorIs(t, err, domain.ErrManifestInvalid)
	require.ErrorIs(t, err, domain.ErrDirectURLRequirement)
}

func TestProjectLoader_AddDependencies(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeManifest(t, root, samplePyproject)

	loader := config.NewProjectLoader()
	err := loader.AddDependencies(root, []domain.Requirement{
		domain.MustParseRequirement("click>=8"),
		domain.MustParseRequirement("rich"),
	})
	require.NoError(t, err)

	p, err := loader.Load(root)
	require.NoError(t, err)
	var got []string
	for _, r := range p.Requirements {
		got = append(got, r.String())
	}
	assert.Equal(t, []string{"requests[socks]>=2.31", "click>=8", "rich"}, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# demo project\n[build-system]")
	assert.Contains(t, string(data), "[project.optional-dependencies]\nDev_Tools = [\"pytest>=8\"]")
}

func TestProjectLoader_AddDependencies_InsertsArray(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeManifest(t, root, "[project]\nname = \"bare\"\n")

	require.NoError(t, config.NewProjectLoader().AddDependencies(root, []domain.Requirement{
		domain.MustParseRequirement("six"),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[project]\ndependencies = [\n    \"six\",\n]\nname = \"bare\"\n", string(data))
}

func TestProjectLoader_RemoveDependencies(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeManifest(t, root, samplePyproject)

	loader := config.NewProjectLoader()
	require.NoError(t, loader.RemoveDependencies(root, []domain.PackageName{domain.NewPackageName("click")}))

	p, err := loader.Load(root)
	require.NoError(t, err)
	require.Len(t, p.Requirements, 1)
	assert.Equal(t, "requests[socks]>=2.31", p.Requirements[0].String())
	assert.Len(t, p.OptionalDependencies["dev-tools"], 1, "optional groups are not edited")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# demo project\n[build-system]")
	assert.NotContains(t, string(data), "Click")
}

func TestProjectLoader_RemoveDependencies_NotListed(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeManifest(t, root, samplePyproject)

	err := config.NewProjectLoader().RemoveDependencies(root, []domain.PackageName{
		domain.NewPackageName("click"),
		domain.NewPackageName("pytest"),
	})
	require.ErrorIs(t, err, domain.ErrNotADependency)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, samplePyproject, string(data))
}
