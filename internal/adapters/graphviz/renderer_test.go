package graphviz_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/adapters/graphviz"
	"go.trai.ch/sa/internal/core/domain"
)

func sampleGraph(t *testing.T) *domain.ResolvedGraph {
	t.Helper()
	target := domain.NewTarget(domain.MustParseVersion("3.12.0"), "linux", "amd64")
	g := domain.NewResolvedGraph([]domain.Requirement{domain.MustParseRequirement("a>=1")}, target)
	add := func(name, version string, deps ...string) {
		p := &domain.ResolvedPackage{
			Name:    domain.NewPackageName(name),
			Version: domain.MustParseVersion(version),
		}
		for _, d := range deps {
			p.Dependencies = append(p.Dependencies, domain.NewPackageName(d))
		}
		require.NoError(t, g.AddPackage(p))
	}
	add("a", "1.0", "b")
	add("b", "2.0", "c")
	add("c", "3.0", "a")
	add("d", "0.1")
	return g
}

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		roots      []string
		goldenName string
	}{
		{name: "WholeGraph", goldenName: "whole_graph"},
		{name: "FromDependency", roots: []string{"b"}, goldenName: "from_dependency"},
		{name: "Isolated", roots: []string{"d", "d"}, goldenName: "isolated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var roots []domain.PackageName
			for _, r := range tt.roots {
				roots = append(roots, domain.NewPackageName(r))
			}

			var buf bytes.Buffer
			require.NoError(t, graphviz.NewRenderer().Render(&buf, sampleGraph(t), roots))

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestRenderer_Render_UnknownRoot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := graphviz.NewRenderer().Render(&buf, sampleGraph(t), []domain.PackageName{domain.NewPackageName("zzz")})
	require.ErrorIs(t, err, domain.ErrPackageNotInGraph)
	require.Zero(t, buf.Len())
}

var errDiskFull = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errDiskFull
}

func TestRenderer_Render_WriteError(t *testing.T) {
	t.Parallel()

	err := graphviz.NewRenderer().Render(failingWriter{}, sampleGraph(t), nil)
	require.ErrorIs(t, err, errDiskFull)
}
