package domain

// Advisory is a known vulnerability affecting a range of versions.
type Advisory struct {
	ID       string
	Package  PackageName
	Affected SpecifierSet
	Summary  string
	Severity string
	FixedIn  []Version
}

// Affects reports whether v falls in the affected range. Pre-releases are
// considered too; a vulnerable 2.0rc1 is still vulnerable.
func (a Advisory) Affects(v Version) bool {
	return a.Affected.Contains(v, true)
}

// Finding is an advisory matched against a locked package.
type Finding struct {
	Package  PackageName
	Version  Version
	Advisory Advisory
}
