// Package graphviz renders resolved graphs in the Graphviz DOT language.
package graphviz

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	rootColor    = "#74b9ff"
	packageColor = "#dfe6e9"
)

// Renderer implements ports.GraphRenderer.
type Renderer struct{}

var _ ports.GraphRenderer = (*Renderer)(nil)

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render writes the packages reachable from roots, or every package when
// roots is empty. Root packages are highlighted. Nodes and edges are
// emitted in name order so the output is stable.
func (r *Renderer) Render(w io.Writer, g *domain.ResolvedGraph, roots []domain.PackageName) error {
	include, highlight, err := selection(g, roots)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("digraph dependencies {\n")
	bw.WriteString("    rankdir=LR;\n")
	fmt.Fprintf(bw, "    node [shape=box, style=filled, fillcolor=%q];\n", packageColor)
	bw.WriteString("\n")

	for _, name := range include {
		p, _ := g.Package(name)
		label := escapeDOTLabel(p.Name.String()) + `\n` + escapeDOTLabel(p.Version.String())
		if slices.Contains(highlight, name) {
			fmt.Fprintf(bw, "    %s [label=\"%s\", fillcolor=%q];\n", dotID(name), label, rootColor)
			continue
		}
		fmt.Fprintf(bw, "    %s [label=\"%s\"];\n", dotID(name), label)
	}

	edges := false
	for _, name := range include {
		p, _ := g.Package(name)
		for _, dep := range p.Dependencies {
			if !slices.Contains(include, dep) {
				continue
			}
			if !edges {
				bw.WriteString("\n")
				edges = true
			}
			fmt.Fprintf(bw, "    %s -> %s;\n", dotID(name), dotID(dep))
		}
	}
	bw.WriteString("}\n")

	if err := bw.Flush(); err != nil {
		return zerr.Wrap(err, "write graph")
	}
	return nil
}

// selection returns the names to draw and the ones to highlight, both sorted.
func selection(g *domain.ResolvedGraph, roots []domain.PackageName) (include, highlight []domain.PackageName, err error) {
	if len(roots) == 0 {
		env := g.Target.MarkerEnvironment()
		for _, req := range g.Roots {
			if _, ok := g.Package(req.Name); ok && req.AppliesTo(env) {
				highlight = append(highlight, req.Name)
			}
		}
		return g.Names(), sortedUnique(highlight), nil
	}

	seen := make(map[domain.PackageName]struct{})
	for _, root := range roots {
		if _, ok := g.Package(root); !ok {
			return nil, nil, zerr.With(zerr.Wrap(domain.ErrPackageNotInGraph, "unknown graph root"), "package", root.String())
		}
		for _, name := range g.Reachable(root) {
			seen[name] = struct{}{}
		}
	}
	for name := range seen {
		include = append(include, name)
	}
	slices.SortFunc(include, domain.ComparePackageNames)
	return include, sortedUnique(roots), nil
}

func sortedUnique(names []domain.PackageName) []domain.PackageName {
	out := slices.SortedFunc(slices.Values(names), domain.ComparePackageNames)
	return slices.Compact(out)
}

func dotID(name domain.PackageName) string {
	return `"` + escapeDOTLabel(name.String()) + `"`
}

func escapeDOTLabel(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
