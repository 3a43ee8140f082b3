package domain

import (
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// DistKind distinguishes the distribution variants.
type DistKind int

// Distribution kinds.
const (
	KindWheel DistKind = iota + 1
	KindSourceDist
)

func (k DistKind) String() string {
	switch k {
	case KindWheel:
		return "wheel"
	case KindSourceDist:
		return "sdist"
	default:
		return "unknown"
	}
}

// Tag is a single wheel compatibility tag.
type Tag struct {
	Python   string
	ABI      string
	Platform string
}

func (t Tag) String() string {
	return t.Python + "-" + t.ABI + "-" + t.Platform
}

// WheelTags is the information encoded in a wheel filename.
type WheelTags struct {
	Build       string // empty when the filename has no build tag
	BuildNumber int
	Tags        []Tag
}

// Distribution is one downloadable artifact of a release.
// Wheel is set only when Kind is KindWheel.
type Distribution struct {
	Kind           DistKind
	Filename       string
	URL            string
	Index          string
	Size           int64
	Digest         Digest
	RequiresPython SpecifierSet
	Yanked         bool
	UploadTime     time.Time
	CoreMetadata   bool
	MetadataDigest Digest // sha256 of the PEP 658 metadata file, when published
	Wheel          *WheelTags
}

// IsWheel reports whether d is a wheel.
func (d Distribution) IsWheel() bool {
	return d.Kind == KindWheel && d.Wheel != nil
}

// ParsedFilename is the result of ParseDistributionFilename.
type ParsedFilename struct {
	Kind    DistKind
	Name    PackageName
	Version Version
	Wheel   *WheelTags
}

var sdistSuffixes = []string{".tar.gz", ".zip", ".tar.bz2", ".tgz"}

// ParseDistributionFilename recognizes wheel and sdist filenames.
func ParseDistributionFilename(filename string) (ParsedFilename, error) {
	fail := func(reason string) (ParsedFilename, error) {
		return ParsedFilename{}, zerr.With(zerr.Wrap(ErrInvalidFilename, reason), "filename", filename)
	}

	if stem, ok := strings.CutSuffix(filename, ".whl"); ok {
		parts := strings.Split(stem, "-")
		if len(parts) != 5 && len(parts) != 6 {
			return fail("wheel filename must have 5 or 6 dash-separated parts")
		}
		name, err := ParsePackageName(parts[0])
		if err != nil {
			return fail("invalid project name")
		}
		version, err := ParseVersion(parts[1])
		if err != nil {
			return fail("invalid version")
		}
		wheel := &WheelTags{}
		if len(parts) == 6 {
			wheel.Build = parts[2]
			digits := len(wheel.Build) - len(strings.TrimLeft(wheel.Build, "0123456789"))
			if digits == 0 {
				return fail("build tag must start with a digit")
			}
			wheel.BuildNumber, _ = strconv.Atoi(wheel.Build[:digits])
		}
		n := len(parts)
		wheel.Tags = expandTags(parts[n-3], parts[n-2], parts[n-1])
		return ParsedFilename{Kind: KindWheel, Name: name, Version: version, Wheel: wheel}, nil
	}

	for _, suffix := range sdistSuffixes {
		stem, ok := strings.CutSuffix(filename, suffix)
		if !ok {
			continue
		}
		i := strings.LastIndexByte(stem, '-')
		if i <= 0 {
			return fail("sdist filename must be <name>-<version>")
		}
		name, err := ParsePackageName(stem[:i])
		if err != nil {
			return fail("invalid project name")
		}
		version, err := ParseVersion(stem[i+1:])
		if err != nil {
			return fail("invalid version")
		}
		return ParsedFilename{Kind: KindSourceDist, Name: name, Version: version}, nil
	}
	return fail("unrecognized extension")
}

// expandTags expands compressed tag sets such as "py2.py3-none-any".
func expandTags(py, abi, plat string) []Tag {
	var tags []Tag
	for _, p := range strings.Split(py, ".") {
		for _, a := range strings.Split(abi, ".") {
			for _, pl := range strings.Split(plat, ".") {
				tags = append(tags, Tag{Python: p, ABI: a, Platform: pl})
			}
		}
	}
	return tags
}

// CompareBuildTags orders wheel build tags: numeric prefix first, then the
// remaining suffix lexically. A missing build tag sorts lowest.
func CompareBuildTags(a, b *WheelTags) int {
	switch {
	case a == nil || a.Build == "":
		if b == nil || b.Build == "" {
			return 0
		}
		return -1
	case b == nil || b.Build == "":
		return 1
	}
	if a.BuildNumber != b.BuildNumber {
		if a.BuildNumber < b.BuildNumber {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Build, b.Build)
}
