// Package output builds termenv outputs with a shared colour profile so that
// log lines and command reports render identically.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// NoColorEnv disables all colouring when set to any non-empty value.
const NoColorEnv = "NO_COLOR"

// ColorProfile detects the terminal profile, honouring NO_COLOR.
func ColorProfile() termenv.Profile {
	if os.Getenv(NoColorEnv) != "" {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// New returns an output for w. A nil writer selects stderr.
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	return NewWithProfile(w, ColorProfile, opts...)
}

// NewWithProfile is New with a caller supplied profile selector.
func NewWithProfile(w io.Writer, profileFn func() termenv.Profile, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}
	opts = append(opts, termenv.WithProfile(profileFn()), termenv.WithTTY(true))
	return termenv.NewOutput(w, opts...)
}

// Paint renders s in the given hex colour using out's profile.
func Paint(out *termenv.Output, hex, s string) string {
	return out.String(s).Foreground(out.Color(hex)).String()
}
