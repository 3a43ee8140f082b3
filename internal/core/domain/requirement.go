package domain

import (
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

var requirementPattern = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[([^\]]*)\])?\s*(.*)$`)

// Requirement is a PEP 508 dependency specification without direct URLs.
type Requirement struct {
	Name      PackageName
	Extras    []string // normalized and sorted
	Specifier SpecifierSet
	Marker    Marker
}

// ParseRequirement parses `name[extra,...] specifiers ; marker`.
func ParseRequirement(s string) (Requirement, error) {
	fail := func(err error) (Requirement, error) {
		return Requirement{}, zerr.With(zerr.Wrap(err, "parsing requirement"), "requirement", s)
	}

	body, markerText, hasMarker := strings.Cut(s, ";")
	m := requirementPattern.FindStringSubmatch(body)
	if m == nil {
		return fail(ErrInvalidRequirement)
	}

	name, err := ParsePackageName(m[1])
	if err != nil {
		return fail(err)
	}
	req := Requirement{Name: name}

	if m[2] != "" {
		for extra := range strings.SplitSeq(m[2], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if !validNamePattern.MatchString(extra) {
				return fail(ErrInvalidRequirement)
			}
			req.Extras = append(req.Extras, NormalizeName(extra))
		}
		slices.Sort(req.Extras)
		req.Extras = slices.Compact(req.Extras)
	}

	rest := strings.TrimSpace(m[3])
	if strings.HasPrefix(rest, "@") {
		return fail(ErrDirectURLRequirement)
	}
	if strings.HasPrefix(rest, "(") {
		if !strings.HasSuffix(rest, ")") {
			return fail(ErrInvalidRequirement)
		}
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	req.Specifier, err = ParseSpecifierSet(rest)
	if err != nil {
		return fail(err)
	}

	if hasMarker {
		req.Marker, err = ParseMarker(markerText)
		if err != nil {
			return fail(err)
		}
	}
	return req, nil
}

// MustParseRequirement is ParseRequirement for literals known to be valid.
func MustParseRequirement(s string) Requirement {
	r, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String renders the canonical form used in lock documents.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name.String())
	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}
	b.WriteString(r.Specifier.String())
	if !r.Marker.IsZero() {
		b.WriteString("; ")
		b.WriteString(r.Marker.String())
	}
	return b.String()
}

// AppliesTo reports whether the requirement is active for env, given the
// extras requested of the package that declares it.
func (r Requirement) AppliesTo(env MarkerEnvironment, extras ...string) bool {
	return r.Marker.Evaluate(env, extras...)
}

// SortRequirements orders requirements by canonical string.
func SortRequirements(reqs []Requirement) {
	slices.SortFunc(reqs, func(a, b Requirement) int {
		return strings.Compare(a.String(), b.String())
	})
}
