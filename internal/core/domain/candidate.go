package domain

import (
	"slices"
	"time"
)

// Candidate is one published version of a package with its files.
// Dependencies are not part of a candidate; they are fetched for the
// chosen distribution only.
type Candidate struct {
	Name          PackageName
	Version       Version
	Index         string
	Distributions []Distribution
}

// HasFinal reports whether any candidate is a final (non pre-release) version.
func HasFinal(cands []Candidate) bool {
	return slices.ContainsFunc(cands, func(c Candidate) bool { return !c.Version.IsPreRelease() })
}

// SortCandidatesNewestFirst orders candidates by version descending. Equal
// versions (e.g. 1.0 and 1.0.0) fall back to the newest upload, then the
// highest wheel build tag.
func SortCandidatesNewestFirst(cands []Candidate) {
	slices.SortStableFunc(cands, func(a, b Candidate) int {
		if c := b.Version.Compare(a.Version); c != 0 {
			return c
		}
		if c := b.latestUpload().Compare(a.latestUpload()); c != 0 {
			return c
		}
		return CompareBuildTags(b.highestBuild(), a.highestBuild())
	})
}

func (c Candidate) latestUpload() time.Time {
	var latest time.Time
	for _, d := range c.Distributions {
		if d.UploadTime.After(latest) {
			latest = d.UploadTime
		}
	}
	return latest
}

func (c Candidate) highestBuild() *WheelTags {
	var best *WheelTags
	for _, d := range c.Distributions {
		if d.Wheel != nil && CompareBuildTags(d.Wheel, best) > 0 {
			best = d.Wheel
		}
	}
	return best
}
