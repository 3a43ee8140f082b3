package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/core/domain"
)

func TestParseRequirement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        string
		name      string
		extras    []string
		spec      string
		marker    string
		canonical string
	}{
		{
			in:        "requests",
			name:      "requests",
			canonical: "requests",
		},
		{
			in:        "Django (>=3.0)",
			name:      "django",
			spec:      ">=3.0",
			canonical: "django>=3.0",
		},
		{
			in:        "requests[security,Socks]>=2.8.1,==2.8.* ; python_version < '2.7'",
			name:      "requests",
			extras:    []string{"security", "socks"},
			spec:      "==2.8.*,>=2.8.1",
			marker:    `python_version < "2.7"`,
			canonical: `requests[security,socks]==2.8.*,>=2.8.1; python_version < "2.7"`,
		},
		{
			in:        "zope.interface>=5",
			name:      "zope-interface",
			spec:      ">=5",
			canonical: "zope-interface>=5",
		},
		{
			in:        `pywin32>=300; sys_platform == "win32"`,
			name:      "pywin32",
			spec:      ">=300",
			marker:    `sys_platform == "win32"`,
			canonical: `pywin32>=300; sys_platform == "win32"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			r, err := domain.ParseRequirement(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.name, r.Name.String())
			assert.Equal(t, tt.extras, r.Extras)
			assert.Equal(t, tt.spec, r.Specifier.String())
			assert.Equal(t, tt.marker, r.Marker.String())
			assert.Equal(t, tt.canonical, r.String())
		})
	}
}

func TestParseRequirement_Errors(t *testing.T) {
	t.Parallel()

	_, err := domain.ParseRequirement("pkg @ https://example.com/pkg-1.0.whl")
	require.ErrorIs(t, err, domain.ErrDirectURLRequirement)

	_, err = domain.ParseRequirement("")
	require.ErrorIs(t, err, domain.ErrInvalidRequirement)

	_, err = domain.ParseRequirement("foo>=1.0; bogus == '1'")
	require.ErrorIs(t, err, domain.ErrInvalidMarker)

	_, err = domain.ParseRequirement("foo>=x.y")
	require.ErrorIs(t, err, domain.ErrInvalidSpecifier)

	_, err = domain.ParseRequirement("foo[bad extra]")
	require.ErrorIs(t, err, domain.ErrInvalidRequirement)
}

func TestRequirement_AppliesTo(t *testing.T) {
	t.Parallel()

	r := domain.MustParseRequirement(`pysocks; extra == "socks"`)
	assert.False(t, r.AppliesTo(linuxEnv()))
	assert.True(t, r.AppliesTo(linuxEnv(), "socks"))
}

func TestSortRequirements(t *testing.T) {
	t.Parallel()

	reqs := []domain.Requirement{
		domain.MustParseRequirement("zeta"),
		domain.MustParseRequirement("Alpha>=1"),
	}
	domain.SortRequirements(reqs)
	assert.Equal(t, "alpha>=1", reqs[0].String())
	assert.Equal(t, "zeta", reqs[1].String())
}

func TestPackageName(t *testing.T) {
	t.Parallel()

	a, err := domain.ParsePackageName("Foo.Bar__baz")
	require.NoError(t, err)
	assert.Equal(t, "foo-bar-baz", a.String())
	assert.Equal(t, a, domain.NewPackageName("foo-bar-baz"))
	assert.False(t, a.IsZero())
	assert.True(t, domain.PackageName{}.IsZero())

	_, err = domain.ParsePackageName("-bad")
	require.ErrorIs(t, err, domain.ErrInvalidPackageName)
}
