package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sa/internal/core/domain"
)

func TestParseVersion_Normalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"1.0", "1.0"},
		{"v1.0", "1.0"},
		{"1!2.0", "1!2.0"},
		{"1.0alpha1", "1.0a1"},
		{"1.0.RC1", "1.0rc1"},
		{"1.0c1", "1.0rc1"},
		{"1.0a", "1.0a0"},
		{"1.0-1", "1.0.post1"},
		{"1.0-r4", "1.0.post4"},
		{"1.0.post", "1.0.post0"},
		{"1.0-dev", "1.0.dev0"},
		{"1.0+Ubuntu-1", "1.0+ubuntu.1"},
		{" 2.31.0 ", "2.31.0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			v, err := domain.ParseVersion(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "abc", "1.0.", "1..0", "1.0+", "1.0 beta"} {
		_, err := domain.ParseVersion(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, domain.ErrInvalidVersion)
	}
}

func TestVersion_Ordering(t *testing.T) {
	t.Parallel()

	ordered := []string{
		"1.0.dev1",
		"1.0a1.dev1",
		"1.0a1",
		"1.0a2",
		"1.0b1",
		"1.0rc1",
		"1.0",
		"1.0.post1.dev1",
		"1.0.post1",
		"1.0.post1+local",
		"1.0.post1+local.7",
		"1.1.dev1",
		"1.1",
		"2.0",
		"1!0.1",
	}
	for i := 0; i < len(ordered)-1; i++ {
		a := domain.MustParseVersion(ordered[i])
		b := domain.MustParseVersion(ordered[i+1])
		assert.Equal(t, -1, a.Compare(b), "%s < %s", ordered[i], ordered[i+1])
		assert.Equal(t, 1, b.Compare(a), "%s > %s", ordered[i+1], ordered[i])
	}
}

func TestVersion_LargePreReleaseNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct{ lower, higher string }{
		{"1.0a4294967296", "1.0b0"},
		{"1.0b4294967296", "1.0rc0"},
		{"1.0rc99999999999", "1.0"},
		{"1.0a4294967295", "1.0a4294967296"},
	}
	for _, tt := range tests {
		lo := domain.MustParseVersion(tt.lower)
		hi := domain.MustParseVersion(tt.higher)
		assert.Equal(t, -1, lo.Compare(hi), "%s < %s", tt.lower, tt.higher)
		assert.Equal(t, 1, hi.Compare(lo), "%s > %s", tt.higher, tt.lower)
	}
}

func TestVersion_TrailingZerosAreInsignificant(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.MustParseVersion("1.0").Equal(domain.MustParseVersion("1.0.0")))
	assert.True(t, domain.MustParseVersion("1").Equal(domain.MustParseVersion("1.0.0.0")))
	assert.False(t, domain.MustParseVersion("1.0").Equal(domain.MustParseVersion("1.0.1")))
}

func TestVersion_LocalOrdering(t *testing.T) {
	t.Parallel()

	// Numeric local segments sort above alphanumeric ones.
	alpha := domain.MustParseVersion("1.0+abc")
	num := domain.MustParseVersion("1.0+5")
	assert.Equal(t, -1, alpha.Compare(num))
}

func TestVersion_Predicates(t *testing.T) {
	t.Parallel()

	v := domain.MustParseVersion("2.0rc1")
	assert.True(t, v.IsPreRelease())
	assert.False(t, v.IsPostRelease())
	assert.Equal(t, "2.0", v.Base().String())

	dev := domain.MustParseVersion("2.0.dev3")
	assert.True(t, dev.IsPreRelease())
	assert.True(t, dev.IsDevRelease())

	local := domain.MustParseVersion("2.0+cpu")
	assert.True(t, local.HasLocal())
	assert.Equal(t, "2.0", local.Public().String())
	assert.False(t, local.IsPreRelease())
}

func TestVersion_TextRoundTrip(t *testing.T) {
	t.Parallel()

	var v domain.Version
	require.NoError(t, v.UnmarshalText([]byte("1.2.3.post4")))
	text, err := v.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.post4", string(text))

	require.Error(t, v.UnmarshalText([]byte("nope")))
}
