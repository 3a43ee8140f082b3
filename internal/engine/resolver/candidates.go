package resolver

import (
	"slices"
	"strings"

	"go.trai.ch/sa/internal/core/domain"
)

// option is a candidate version together with the distribution that
// would be installed for it.
type option struct {
	candidate domain.Candidate
	dist      domain.Distribution
}

// eligible returns the versions of name that satisfy every constraint and
// ship a distribution usable on the target, newest first. Pre-releases are
// considered only when allowed, named by a specifier, or when no final
// release qualifies.
func (r *run) eligible(st *state, name domain.PackageName) []option {
	all := r.versions[name]
	spec := st.spec(name)

	allowPre := r.opts.AllowPreRelease || spec.NamesPreRelease()
	opts := r.filter(all, spec, allowPre)
	if len(opts) == 0 && !allowPre {
		opts = r.filter(all, spec, true)
	}
	return opts
}

func (r *run) filter(all []domain.Candidate, spec domain.SpecifierSet, allowPre bool) []option {
	var out []option
	for _, c := range all {
		if !spec.Contains(c.Version, allowPre) {
			continue
		}
		dist, ok := r.pickDistribution(c, spec)
		if !ok {
			continue
		}
		out = append(out, option{candidate: c, dist: dist})
	}
	return out
}

// pickDistribution chooses the file to install for c. Wheels rank by the
// position of their best tag in the target's compatible tag list, then by
// higher build tag, then by filename. Source distributions rank after every
// compatible wheel. Yanked files are skipped unless spec pins c exactly.
func (r *run) pickDistribution(c domain.Candidate, spec domain.SpecifierSet) (domain.Distribution, bool) {
	pinned := spec.PinsExactly(c.Version)

	type ranked struct {
		dist domain.Distribution
		rank int
	}
	var usable []ranked
	for _, d := range c.Distributions {
		if d.Yanked && !pinned {
			continue
		}
		if !d.RequiresPython.Contains(r.target.PythonVersion, true) {
			continue
		}
		switch {
		case d.IsWheel():
			rank, ok := r.tags.Best(d.Wheel.Tags)
			if !ok {
				continue
			}
			usable = append(usable, ranked{dist: d, rank: rank})
		case d.Kind == domain.KindSourceDist:
			usable = append(usable, ranked{dist: d, rank: len(r.tags)})
		}
	}
	if len(usable) == 0 {
		return domain.Distribution{}, false
	}

	best := slices.MinFunc(usable, func(a, b ranked) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		if c := domain.CompareBuildTags(b.dist.Wheel, a.dist.Wheel); c != 0 {
			return c
		}
		return strings.Compare(a.dist.Filename, b.dist.Filename)
	})
	return best.dist, true
}
