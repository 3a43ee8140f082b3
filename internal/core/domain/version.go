package domain

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// versionPattern is the PEP 440 public + local version grammar, including the
// alternate spellings the standard requires implementations to normalize.
var versionPattern = regexp.MustCompile(`(?i)^v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>alpha|a|beta|b|preview|pre|c|rc)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// Pre-release phases in ascending order.
const (
	PhaseAlpha = "a"
	PhaseBeta  = "b"
	PhaseRC    = "rc"
)

// Version is a parsed PEP 440 version.
//
// The zero value is not a valid version; use ParseVersion.
type Version struct {
	epoch   int
	release []int
	phase   string // "", a, b, rc
	preNum  int
	post    int // -1 when absent
	dev     int // -1 when absent
	local   []string
	raw     string
}

// ParseVersion parses s according to PEP 440.
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	m := versionPattern.FindStringSubmatch(raw)
	if m == nil {
		return Version{}, zerr.With(zerr.Wrap(ErrInvalidVersion, strconv.Quote(s)), "version", s)
	}
	group := func(name string) string {
		return m[versionPattern.SubexpIndex(name)]
	}

	v := Version{post: -1, dev: -1, raw: raw}

	if e := group("epoch"); e != "" {
		v.epoch = atoi(e)
	}
	for _, seg := range strings.Split(group("release"), ".") {
		v.release = append(v.release, atoi(seg))
	}

	if group("pre") != "" {
		switch strings.ToLower(group("pre_l")) {
		case "a", "alpha":
			v.phase = PhaseAlpha
		case "b", "beta":
			v.phase = PhaseBeta
		default:
			v.phase = PhaseRC
		}
		v.preNum = atoi(group("pre_n"))
	}

	switch {
	case group("post_n1") != "":
		v.post = atoi(group("post_n1"))
	case group("post_l") != "":
		v.post = atoi(group("post_n2"))
	}

	if group("dev") != "" {
		v.dev = atoi(group("dev_n"))
	}

	if l := group("local"); l != "" {
		for _, seg := range strings.FieldsFunc(strings.ToLower(l), isLocalSeparator) {
			v.local = append(v.local, seg)
		}
	}

	return v, nil
}

// MustParseVersion is ParseVersion for literals known to be valid.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func isLocalSeparator(r rune) bool {
	return r == '.' || r == '-' || r == '_'
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// The grammar only admits digits here; overflow saturates.
		return int(^uint(0) >> 1)
	}
	return n
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool {
	return len(v.release) == 0
}

// Epoch returns the version epoch.
func (v Version) Epoch() int { return v.epoch }

// Release returns a copy of the release segments.
func (v Version) Release() []int { return slices.Clone(v.release) }

// Raw returns the text the version was parsed from.
func (v Version) Raw() string { return v.raw }

// IsPreRelease reports whether v is a pre-release or a development release.
func (v Version) IsPreRelease() bool {
	return v.phase != "" || v.dev >= 0
}

// IsDevRelease reports whether v carries a .devN segment.
func (v Version) IsDevRelease() bool { return v.dev >= 0 }

// IsPostRelease reports whether v carries a .postN segment.
func (v Version) IsPostRelease() bool { return v.post >= 0 }

// HasLocal reports whether v carries a +local label.
func (v Version) HasLocal() bool { return len(v.local) > 0 }

// Public returns v without its local label.
func (v Version) Public() Version {
	if len(v.local) == 0 {
		return v
	}
	p := v
	p.local = nil
	p.raw = ""
	return p
}

// Base returns the epoch and release segments only.
func (v Version) Base() Version {
	return Version{epoch: v.epoch, release: v.release, post: -1, dev: -1}
}

// String returns the PEP 440 normalized form.
func (v Version) String() string {
	if v.IsZero() {
		return ""
	}
	var b strings.Builder
	if v.epoch != 0 {
		b.WriteString(strconv.Itoa(v.epoch))
		b.WriteByte('!')
	}
	for i, seg := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(seg))
	}
	if v.phase != "" {
		b.WriteString(v.phase)
		b.WriteString(strconv.Itoa(v.preNum))
	}
	if v.post >= 0 {
		b.WriteString(".post")
		b.WriteString(strconv.Itoa(v.post))
	}
	if v.dev >= 0 {
		b.WriteString(".dev")
		b.WriteString(strconv.Itoa(v.dev))
	}
	if len(v.local) > 0 {
		b.WriteByte('+')
		b.WriteString(strings.Join(v.local, "."))
	}
	return b.String()
}

// Equal reports whether v and o compare equal under PEP 440 ordering.
func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// Compare returns -1, 0 or +1 following PEP 440 precedence.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.epoch, o.epoch); c != 0 {
		return c
	}
	if c := compareRelease(v.release, o.release); c != 0 {
		return c
	}
	if c := comparePre(v, o); c != 0 {
		return c
	}
	if c := cmp.Compare(v.post, o.post); c != 0 {
		return c
	}
	if c := cmp.Compare(v.devKey(), o.devKey()); c != 0 {
		return c
	}
	return compareLocal(v.local, o.local)
}

// comparePre orders the pre-release component as a (slot, phase, number)
// tuple. A bare dev release of a final version sorts before every
// pre-release of it; a final release sorts after.
func comparePre(v, o Version) int {
	if c := cmp.Compare(v.preSlot(), o.preSlot()); c != 0 {
		return c
	}
	if c := cmp.Compare(phaseRank(v.phase), phaseRank(o.phase)); c != 0 {
		return c
	}
	return cmp.Compare(v.preNum, o.preNum)
}

func (v Version) preSlot() int {
	switch {
	case v.phase != "":
		return 0
	case v.post < 0 && v.dev >= 0:
		return -1
	default:
		return 1
	}
}

func phaseRank(phase string) int {
	switch phase {
	case PhaseBeta:
		return 1
	case PhaseRC:
		return 2
	default:
		return 0
	}
}

func (v Version) devKey() int {
	if v.dev < 0 {
		return int(^uint(0) >> 1)
	}
	return v.dev
}

func compareRelease(a, b []int) int {
	n := max(len(a), len(b))
	for i := range n {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// compareLocal implements the local label ordering: absent sorts lowest,
// numeric segments sort above alphanumeric ones, and a shorter label that
// is a prefix of a longer one sorts first.
func compareLocal(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		an, aErr := strconv.Atoi(a[i])
		bn, bErr := strconv.Atoi(b[i])
		switch {
		case aErr == nil && bErr == nil:
			if c := cmp.Compare(an, bn); c != 0 {
				return c
			}
		case aErr == nil:
			return 1
		case bErr == nil:
			return -1
		default:
			if c := cmp.Compare(a[i], b[i]); c != 0 {
				return c
			}
		}
	}
	return cmp.Compare(len(a), len(b))
}

// prefixParts splits the public version into comparable components for
// wildcard matching. Release segments are padded to minRelease entries.
func (v Version) prefixParts(minRelease int) []string {
	parts := []string{strconv.Itoa(v.epoch) + "!"}
	for i := range max(len(v.release), minRelease) {
		seg := 0
		if i < len(v.release) {
			seg = v.release[i]
		}
		parts = append(parts, strconv.Itoa(seg))
	}
	if v.phase != "" {
		parts = append(parts, v.phase+strconv.Itoa(v.preNum))
	}
	if v.post >= 0 {
		parts = append(parts, "post"+strconv.Itoa(v.post))
	}
	if v.dev >= 0 {
		parts = append(parts, "dev"+strconv.Itoa(v.dev))
	}
	return parts
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
