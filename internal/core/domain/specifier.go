package domain

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// Operator is a PEP 440 comparison operator.
type Operator string

// Supported operators.
const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
	OpCompatible   Operator = "~="
	OpArbitrary    Operator = "==="
)

var specifierPattern = regexp.MustCompile(`^\s*(===|==|!=|<=|>=|~=|<|>)\s*(\S+?)\s*$`)

// Specifier is a single version clause such as ">=1.2" or "==1.4.*".
type Specifier struct {
	Op       Operator
	Wildcard bool
	version  Version
	literal  string // version text as written, used by === and String
}

// ParseSpecifier parses a single clause.
func ParseSpecifier(s string) (Specifier, error) {
	m := specifierPattern.FindStringSubmatch(s)
	if m == nil {
		return Specifier{}, invalidSpecifier(s)
	}
	spec := Specifier{Op: Operator(m[1]), literal: m[2]}
	if spec.Op == OpArbitrary {
		if v, err := ParseVersion(spec.literal); err == nil {
			spec.version = v
		}
		return spec, nil
	}

	text := spec.literal
	if strings.HasSuffix(text, ".*") {
		if spec.Op != OpEqual && spec.Op != OpNotEqual {
			return Specifier{}, invalidSpecifier(s)
		}
		spec.Wildcard = true
		text = strings.TrimSuffix(text, ".*")
	}

	v, err := ParseVersion(text)
	if err != nil {
		return Specifier{}, invalidSpecifier(s)
	}
	spec.version = v

	switch {
	case spec.Wildcard && (v.phase != "" || v.post >= 0 || v.dev >= 0 || v.HasLocal()):
		return Specifier{}, invalidSpecifier(s)
	case spec.Op == OpCompatible && (len(v.release) < 2 || v.HasLocal()):
		return Specifier{}, invalidSpecifier(s)
	case v.HasLocal() && spec.Op != OpEqual && spec.Op != OpNotEqual:
		return Specifier{}, invalidSpecifier(s)
	}
	return spec, nil
}

func invalidSpecifier(s string) error {
	return zerr.With(zerr.Wrap(ErrInvalidSpecifier, strconv.Quote(s)), "specifier", s)
}

// Version returns the version named by the clause.
func (s Specifier) Version() Version { return s.version }

// String returns the clause as written, without surrounding whitespace.
func (s Specifier) String() string {
	return string(s.Op) + s.literal
}

// NamesPreRelease reports whether the clause explicitly mentions a
// pre-release, which opts the whole set into matching pre-releases.
func (s Specifier) NamesPreRelease() bool {
	switch s.Op {
	case OpNotEqual:
		return false
	case OpArbitrary:
		return !s.version.IsZero() && s.version.IsPreRelease()
	default:
		return s.version.IsPreRelease()
	}
}

// Matches reports whether v satisfies the clause, ignoring pre-release gating.
func (s Specifier) Matches(v Version) bool {
	switch s.Op {
	case OpArbitrary:
		raw := v.Raw()
		if raw == "" {
			raw = v.String()
		}
		return strings.EqualFold(raw, s.literal)
	case OpEqual:
		return s.equal(v)
	case OpNotEqual:
		return !s.equal(v)
	case OpLessEqual:
		return v.Public().Compare(s.version) <= 0
	case OpGreaterEqual:
		return v.Public().Compare(s.version) >= 0
	case OpLess:
		if v.Compare(s.version) >= 0 {
			return false
		}
		// <1.0 excludes 1.0rc1 unless the clause itself is a pre-release.
		if !s.version.IsPreRelease() && v.IsPreRelease() && v.Base().Equal(s.version.Base()) {
			return false
		}
		return true
	case OpGreater:
		if v.Compare(s.version) <= 0 {
			return false
		}
		if !s.version.IsPostRelease() && v.IsPostRelease() && v.Base().Equal(s.version.Base()) {
			return false
		}
		if v.HasLocal() && v.Base().Equal(s.version.Base()) {
			return false
		}
		return true
	case OpCompatible:
		if v.Public().Compare(s.version) < 0 {
			return false
		}
		prefix := Version{epoch: s.version.epoch, release: s.version.release[:len(s.version.release)-1], post: -1, dev: -1}
		return prefixMatch(v, prefix)
	}
	return false
}

func (s Specifier) equal(v Version) bool {
	if s.Wildcard {
		return prefixMatch(v, s.version)
	}
	if !s.version.HasLocal() {
		v = v.Public()
	}
	return v.Equal(s.version)
}

// prefixMatch implements "==prefix.*": v's components, with the release
// padded to the prefix length, must begin with the prefix components.
func prefixMatch(v, prefix Version) bool {
	want := prefix.prefixParts(0)
	got := v.prefixParts(len(prefix.release))
	if len(got) < len(want) {
		return false
	}
	return slices.Equal(got[:len(want)], want)
}

// SpecifierSet is a comma-joined conjunction of clauses.
// The zero value matches every version.
type SpecifierSet struct {
	clauses []Specifier
}

// ParseSpecifierSet parses "clause, clause, ...". Empty input yields the
// empty set.
func ParseSpecifierSet(s string) (SpecifierSet, error) {
	var set SpecifierSet
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		spec, err := ParseSpecifier(part)
		if err != nil {
			return SpecifierSet{}, err
		}
		set.clauses = append(set.clauses, spec)
	}
	return set, nil
}

// MustParseSpecifierSet is ParseSpecifierSet for literals known to be valid.
func MustParseSpecifierSet(s string) SpecifierSet {
	set, err := ParseSpecifierSet(s)
	if err != nil {
		panic(err)
	}
	return set
}

// NewSpecifierSet builds a set from parsed clauses.
func NewSpecifierSet(clauses ...Specifier) SpecifierSet {
	return SpecifierSet{clauses: slices.Clone(clauses)}
}

// Clauses returns a copy of the clauses.
func (s SpecifierSet) Clauses() []Specifier {
	return slices.Clone(s.clauses)
}

// IsEmpty reports whether the set has no clauses.
func (s SpecifierSet) IsEmpty() bool {
	return len(s.clauses) == 0
}

// NamesPreRelease reports whether any clause names a pre-release.
func (s SpecifierSet) NamesPreRelease() bool {
	return slices.ContainsFunc(s.clauses, Specifier.NamesPreRelease)
}

// Contains reports whether v satisfies every clause. Pre-releases only
// match when allowPre is set or a clause names a pre-release.
func (s SpecifierSet) Contains(v Version, allowPre bool) bool {
	if v.IsPreRelease() && !allowPre && !s.NamesPreRelease() {
		return false
	}
	for _, c := range s.clauses {
		if !c.Matches(v) {
			return false
		}
	}
	return true
}

// PinsExactly reports whether the set pins v with == (non-wildcard) or ===.
// Yanked files are only eligible under such a pin.
func (s SpecifierSet) PinsExactly(v Version) bool {
	for _, c := range s.clauses {
		if (c.Op == OpEqual && !c.Wildcard) || c.Op == OpArbitrary {
			if c.Matches(v) {
				return true
			}
		}
	}
	return false
}

// Intersect returns the conjunction of both sets.
func (s SpecifierSet) Intersect(o SpecifierSet) SpecifierSet {
	out := SpecifierSet{clauses: make([]Specifier, 0, len(s.clauses)+len(o.clauses))}
	out.clauses = append(out.clauses, s.clauses...)
	for _, c := range o.clauses {
		if !slices.ContainsFunc(out.clauses, func(e Specifier) bool { return e.String() == c.String() }) {
			out.clauses = append(out.clauses, c)
		}
	}
	return out
}

// String renders the clauses sorted and comma-joined, which makes the
// output independent of the order they were written in.
func (s SpecifierSet) String() string {
	parts := make([]string, len(s.clauses))
	for i, c := range s.clauses {
		parts[i] = c.String()
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}
