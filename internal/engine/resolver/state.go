package resolver

import (
	"maps"
	"slices"

	"go.trai.ch/sa/internal/core/domain"
)

// constraint is one requirement on a package and who placed it.
type constraint struct {
	spec            domain.SpecifierSet
	requirer        domain.PackageName // zero for root requirements
	requirerVersion domain.Version
	chain           []domain.PackageName
}

func (c constraint) toDomain() domain.Constraint {
	return domain.Constraint{
		Specifier:       c.spec,
		Requirer:        c.requirer,
		RequirerVersion: c.requirerVersion,
		Chain:           c.chain,
	}
}

// pending is a requirement waiting to be propagated.
type pending struct {
	req             domain.Requirement
	requirer        domain.PackageName
	requirerVersion domain.Version
	chain           []domain.PackageName
}

// assignment is a decided package.
type assignment struct {
	candidate domain.Candidate
	dist      domain.Distribution
	deps      []domain.Requirement
	chain     []domain.PackageName // root-first path to this package
}

// state is the partial solution. It is cloned at every decision so that a
// backjump restores it wholesale.
type state struct {
	assigned    map[domain.PackageName]*assignment
	constraints map[domain.PackageName][]constraint
	extras      map[domain.PackageName][]string
	order       []domain.PackageName // first-seen order of required names
	frontier    []pending
}

func newState() *state {
	return &state{
		assigned:    make(map[domain.PackageName]*assignment),
		constraints: make(map[domain.PackageName][]constraint),
		extras:      make(map[domain.PackageName][]string),
	}
}

// clone copies the maps and slice headers. Values reachable from them are
// never mutated in place, so sharing them is safe.
func (s *state) clone() *state {
	c := &state{
		assigned:    maps.Clone(s.assigned),
		constraints: make(map[domain.PackageName][]constraint, len(s.constraints)),
		extras:      make(map[domain.PackageName][]string, len(s.extras)),
		order:       slices.Clip(slices.Clone(s.order)),
		frontier:    slices.Clip(slices.Clone(s.frontier)),
	}
	for k, v := range s.constraints {
		c.constraints[k] = slices.Clip(v)
	}
	for k, v := range s.extras {
		c.extras[k] = slices.Clip(v)
	}
	return c
}

// spec returns the conjunction of every constraint on name.
func (s *state) spec(name domain.PackageName) domain.SpecifierSet {
	var set domain.SpecifierSet
	for _, c := range s.constraints[name] {
		set = set.Intersect(c.spec)
	}
	return set
}

// requirers returns the names that placed a constraint on name.
// Root requirements contribute nothing.
func (s *state) requirers(name domain.PackageName) []domain.PackageName {
	var out []domain.PackageName
	for _, c := range s.constraints[name] {
		if !c.requirer.IsZero() && !slices.Contains(out, c.requirer) {
			out = append(out, c.requirer)
		}
	}
	return out
}

func (s *state) domainConstraints(name domain.PackageName) []domain.Constraint {
	out := make([]domain.Constraint, 0, len(s.constraints[name]))
	for _, c := range s.constraints[name] {
		out = append(out, c.toDomain())
	}
	return out
}

// addExtras records extras requested for name and returns the ones that
// were not requested before.
func (s *state) addExtras(name domain.PackageName, extras []string) []string {
	var added []string
	for _, e := range extras {
		if !slices.Contains(s.extras[name], e) {
			added = append(added, e)
		}
	}
	if len(added) > 0 {
		merged := append(slices.Clone(s.extras[name]), added...)
		slices.Sort(merged)
		s.extras[name] = merged
	}
	return added
}

// undecided returns required names without an assignment, in first-seen order.
func (s *state) undecided() []domain.PackageName {
	var out []domain.PackageName
	for _, name := range s.order {
		if _, ok := s.assigned[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
