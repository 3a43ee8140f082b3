package fs_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/adapters/fs"
)

func TestVerifier_MissingFiles(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	verifier := fs.NewVerifier()

	writeFile(t, filepath.Join(tmpDir, "pkg", "__init__.py"), "")
	writeFile(t, filepath.Join(tmpDir, "pkg", "mod.py"), "")

	missing, err := verifier.MissingFiles(tmpDir, []string{"pkg/__init__.py", "pkg/mod.py"})
	require.NoError(t, err)
	assert.Empty(t, missing)

	missing, err = verifier.MissingFiles(tmpDir, []string{"pkg/mod.py", "pkg/gone.py"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/gone.py"}, missing)
}
