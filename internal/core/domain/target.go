package domain

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

// Target describes the interpreter and platform a resolution is for.
type Target struct {
	PythonVersion  Version // full interpreter version, e.g. 3.12.1
	Implementation string  // "cpython"
	ABI            string  // e.g. "cp312"
	OS             string  // GOOS-style: linux, darwin, windows
	Arch           string  // GOARCH-style: amd64, arm64
	Platforms      []string
}

// DefaultPythonVersion is used when neither flags nor pyproject.toml name one.
const DefaultPythonVersion = "3.12.0"

// NewTarget builds a target for the given interpreter on os/arch, filling
// the ABI and platform tags when they are not supplied.
func NewTarget(python Version, goos, goarch string) Target {
	t := Target{
		PythonVersion:  python,
		Implementation: "cpython",
		OS:             goos,
		Arch:           goarch,
	}
	t.ABI = t.interpreterTag()
	t.Platforms = DefaultPlatforms(goos, goarch)
	return t
}

// HostTarget is NewTarget for the running platform.
func HostTarget(python Version) Target {
	return NewTarget(python, runtime.GOOS, runtime.GOARCH)
}

func (t Target) pythonMajorMinor() (int, int) {
	rel := t.PythonVersion.release
	major, minor := 3, 0
	if len(rel) > 0 {
		major = rel[0]
	}
	if len(rel) > 1 {
		minor = rel[1]
	}
	return major, minor
}

func (t Target) interpreterTag() string {
	major, minor := t.pythonMajorMinor()
	return fmt.Sprintf("cp%d%d", major, minor)
}

// ShortPythonVersion returns "3.12" for 3.12.1.
func (t Target) ShortPythonVersion() string {
	major, minor := t.pythonMajorMinor()
	return fmt.Sprintf("%d.%d", major, minor)
}

// MarkerEnvironment derives the PEP 508 environment for the target.
func (t Target) MarkerEnvironment() MarkerEnvironment {
	env := MarkerEnvironment{
		MarkerPythonVersion:        t.ShortPythonVersion(),
		MarkerPythonFullVersion:    t.PythonVersion.String(),
		MarkerImplementationName:   "cpython",
		MarkerImplementationVer:    t.PythonVersion.String(),
		MarkerPythonImplementation: "CPython",
		MarkerPlatformRelease:      "",
		MarkerPlatformVersion:      "",
	}
	switch t.OS {
	case "windows":
		env[MarkerOSName] = "nt"
		env[MarkerSysPlatform] = "win32"
		env[MarkerPlatformSystem] = "Windows"
	case "darwin":
		env[MarkerOSName] = "posix"
		env[MarkerSysPlatform] = "darwin"
		env[MarkerPlatformSystem] = "Darwin"
	default:
		goos := t.OS
		if goos == "" {
			goos = "linux"
		}
		env[MarkerOSName] = "posix"
		env[MarkerSysPlatform] = goos
		env[MarkerPlatformSystem] = strings.ToUpper(goos[:1]) + goos[1:]
	}
	env[MarkerPlatformMachine] = machineName(t.OS, t.Arch)
	return env
}

func machineName(goos, goarch string) string {
	switch {
	case goos == "windows" && goarch == "amd64":
		return "AMD64"
	case goos == "windows" && goarch == "arm64":
		return "ARM64"
	case goos == "darwin" && goarch == "arm64":
		return "arm64"
	case goarch == "arm64":
		return "aarch64"
	case goarch == "386":
		return "i686"
	default:
		return "x86_64"
	}
}

// CompatibleTags returns the wheel tags the target accepts, most preferred first.
func (t Target) CompatibleTags() []Tag {
	major, minor := t.pythonMajorMinor()
	interp := t.interpreterTag()
	abi := t.ABI
	if abi == "" {
		abi = interp
	}

	var tags []Tag
	add := func(py, a string, platforms []string) {
		for _, p := range platforms {
			tags = append(tags, Tag{Python: py, ABI: a, Platform: p})
		}
	}

	add(interp, abi, t.Platforms)
	add(interp, "abi3", t.Platforms)
	add(interp, "none", t.Platforms)
	for m := minor - 1; m >= 2; m-- {
		add(fmt.Sprintf("cp%d%d", major, m), "abi3", t.Platforms)
	}

	pyVersions := []string{fmt.Sprintf("py%d%d", major, minor), "py" + strconv.Itoa(major)}
	for m := minor - 1; m >= 0; m-- {
		pyVersions = append(pyVersions, fmt.Sprintf("py%d%d", major, m))
	}
	for _, py := range pyVersions {
		add(py, "none", t.Platforms)
	}
	tags = append(tags, Tag{Python: interp, ABI: "none", Platform: "any"})
	for _, py := range pyVersions {
		tags = append(tags, Tag{Python: py, ABI: "none", Platform: "any"})
	}
	return tags
}

// TagIndex ranks wheel tags for a target; lower is better.
type TagIndex map[Tag]int

// TagIndex precomputes tag priorities for repeated lookups.
func (t Target) TagIndex() TagIndex {
	tags := t.CompatibleTags()
	idx := make(TagIndex, len(tags))
	for i, tag := range tags {
		if _, seen := idx[tag]; !seen {
			idx[tag] = i
		}
	}
	return idx
}

// Best returns the best priority among tags and whether any is compatible.
func (ti TagIndex) Best(tags []Tag) (int, bool) {
	best, found := 0, false
	for _, tag := range tags {
		if i, ok := ti[tag]; ok && (!found || i < best) {
			best, found = i, true
		}
	}
	return best, found
}

// DefaultPlatforms lists the platform tags for os/arch, most specific first.
func DefaultPlatforms(goos, goarch string) []string {
	switch goos {
	case "linux":
		arch := map[string]string{"amd64": "x86_64", "arm64": "aarch64", "386": "i686"}[goarch]
		if arch == "" {
			arch = goarch
		}
		var out []string
		for glibc := 39; glibc >= 17; glibc-- {
			out = append(out, fmt.Sprintf("manylinux_2_%d_%s", glibc, arch))
			if glibc == 17 {
				out = append(out, "manylinux2014_"+arch)
			}
		}
		if arch == "x86_64" || arch == "i686" {
			out = append(out, "manylinux_2_12_"+arch, "manylinux2010_"+arch, "manylinux_2_5_"+arch, "manylinux1_"+arch)
		}
		return append(out, "linux_"+arch)
	case "darwin":
		var out []string
		arches := []string{"arm64"}
		if goarch == "amd64" {
			arches = []string{"x86_64", "intel"}
		}
		for major := 15; major >= 11; major-- {
			for _, a := range append(slices.Clone(arches), "universal2") {
				out = append(out, fmt.Sprintf("macosx_%d_0_%s", major, a))
			}
		}
		if goarch == "amd64" {
			for minor := 16; minor >= 9; minor-- {
				for _, a := range []string{"x86_64", "intel", "universal2"} {
					out = append(out, fmt.Sprintf("macosx_10_%d_%s", minor, a))
				}
			}
		}
		return out
	case "windows":
		switch goarch {
		case "arm64":
			return []string{"win_arm64"}
		case "386":
			return []string{"win32"}
		default:
			return []string{"win_amd64"}
		}
	default:
		return []string{goos + "_" + goarch}
	}
}
