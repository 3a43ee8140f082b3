// Package domain contains the core domain models for resolution, locking and installation.
package domain

import (
	"iter"
	"maps"
	"slices"

	"go.trai.ch/zerr"
)

// ResolvedPackage is one node of a resolution result.
type ResolvedPackage struct {
	Name         PackageName
	Version      Version
	Distribution Distribution
	Extras       []string      // sorted
	Dependencies []PackageName // sorted, may form cycles
}

// ResolvedGraph is the outcome of a successful resolution: one version per
// package name plus the edges between them.
type ResolvedGraph struct {
	Roots    []Requirement
	Target   Target
	packages map[PackageName]*ResolvedPackage
}

// NewResolvedGraph creates an empty graph for the given root requirements.
func NewResolvedGraph(roots []Requirement, target Target) *ResolvedGraph {
	return &ResolvedGraph{
		Roots:    slices.Clone(roots),
		Target:   target,
		packages: make(map[PackageName]*ResolvedPackage),
	}
}

// AddPackage adds a node. A second node with the same name is rejected.
func (g *ResolvedGraph) AddPackage(p *ResolvedPackage) error {
	if _, exists := g.packages[p.Name]; exists {
		return zerr.With(zerr.Wrap(ErrInvalidGraph, "duplicate package"), "package", p.Name.String())
	}
	p.Extras = slices.Compact(slices.Sorted(slices.Values(p.Extras)))
	p.Dependencies = slices.CompactFunc(
		slices.SortedFunc(slices.Values(p.Dependencies), ComparePackageNames),
		func(a, b PackageName) bool { return a == b },
	)
	g.packages[p.Name] = p
	return nil
}

// Package looks up a node by name.
func (g *ResolvedGraph) Package(name PackageName) (*ResolvedPackage, bool) {
	p, ok := g.packages[name]
	return p, ok
}

// Len returns the number of packages.
func (g *ResolvedGraph) Len() int {
	return len(g.packages)
}

// Names returns the package names sorted.
func (g *ResolvedGraph) Names() []PackageName {
	return slices.SortedFunc(maps.Keys(g.packages), ComparePackageNames)
}

// Packages yields nodes in name order.
func (g *ResolvedGraph) Packages() iter.Seq[*ResolvedPackage] {
	return func(yield func(*ResolvedPackage) bool) {
		for _, name := range g.Names() {
			if !yield(g.packages[name]) {
				return
			}
		}
	}
}

// Validate checks that every edge points at a node in the graph and that
// every root requirement that applies to the target is present.
func (g *ResolvedGraph) Validate() error {
	env := g.Target.MarkerEnvironment()
	for _, root := range g.Roots {
		if !root.AppliesTo(env) {
			continue
		}
		if _, ok := g.packages[root.Name]; !ok {
			return zerr.With(zerr.Wrap(ErrInvalidGraph, "root requirement missing"), "package", root.Name.String())
		}
	}
	for _, name := range g.Names() {
		for _, dep := range g.packages[name].Dependencies {
			if _, ok := g.packages[dep]; !ok {
				err := zerr.With(zerr.Wrap(ErrInvalidGraph, "dangling dependency"), "package", name.String())
				return zerr.With(err, "dependency", dep.String())
			}
		}
	}
	return nil
}

// Reachable returns from and every package reachable from it, sorted.
// Cycles are followed once.
func (g *ResolvedGraph) Reachable(from PackageName) []PackageName {
	seen := map[PackageName]struct{}{}
	stack := []PackageName{from}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[name]; ok {
			continue
		}
		p, ok := g.packages[name]
		if !ok {
			continue
		}
		seen[name] = struct{}{}
		stack = append(stack, p.Dependencies...)
	}
	return slices.SortedFunc(maps.Keys(seen), ComparePackageNames)
}

// Dependents returns the packages that depend directly on name, sorted.
func (g *ResolvedGraph) Dependents(name PackageName) []PackageName {
	var out []PackageName
	for _, n := range g.Names() {
		if slices.Contains(g.packages[n].Dependencies, name) {
			out = append(out, n)
		}
	}
	return out
}
