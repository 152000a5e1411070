package interp

import (
	"io"
	"time"

	"github.com/tamarin-lang/tamarin/internal/logio"
)

// Option configures an Interp at construction time, in the teacher's
// functional-options style (compare gothird's VMOption).
type Option func(*Interp)

// WithRecursionLimit overrides the default call-depth guard (§4.8).
func WithRecursionLimit(n int) Option {
	return func(i *Interp) { i.recursionLimit = n }
}

// WithLogOutput directs the interpreter's diagnostic logger at w, wrapping
// it as a WriteCloser if it isn't already one.
func WithLogOutput(w io.Writer) Option {
	return func(i *Interp) {
		i.log = &logio.Logger{}
		if wc, ok := w.(io.WriteCloser); ok {
			i.log.SetOutput(wc)
		} else {
			i.log.SetOutput(discardCloser{w})
		}
	}
}

// WithClock overrides the interpreter's notion of wall time, for
// deterministic tests of the reference GC's time-based pacing (§4.9).
func WithClock(now func() time.Time) Option {
	return func(i *Interp) { i.clock = now }
}

// WithStdout directs `puts` output at w (default io.Discard, so embedding
// a script that writes output is opt-in).
func WithStdout(w io.Writer) Option {
	return func(i *Interp) { i.stdout = w }
}
