package interp

import (
	"context"
	"io"
	"time"

	"github.com/tamarin-lang/tamarin/internal/logio"
	"github.com/tamarin-lang/tamarin/internal/panicerr"
)

// discardCloser adapts io.Discard to io.WriteCloser for Logger.SetOutput,
// the default sink until a host wires WithLogOutput.
type discardCloser struct{ io.Writer }

func (discardCloser) Close() error { return nil }

// Interp is one interpreter instance (§3.2): its commands table, frame
// stack, live-value list, reference table, and ambient configuration. All
// of its public methods assume single-goroutine use, except where noted
// (Collect, via singleflight in gc.go).
type Interp struct {
	commands  map[string]*Command
	procEpoch uint64

	topFrame     *CallFrame
	currentFrame *CallFrame
	nextFrameID  uint64
	frameEpoch   uint64

	localProcsStack []map[string]bool

	liveHead  *Value
	liveCount int

	refs             map[int64]*refRecord
	nextRefID        int64
	lastCollectID    int64
	lastCollectTime  time.Time
	collectGroup     collectGroup

	result *Value

	recursionLimit int
	depth          int

	clock func() time.Time

	log    *logio.Logger
	stdout io.Writer
}

// defaultRecursionLimit mirrors the teacher's conservative default stack
// guard; callers needing more depth pass WithRecursionLimit.
const defaultRecursionLimit = 1000

// New creates an interpreter with the core command set registered.
func New(opts ...Option) *Interp {
	i := &Interp{
		commands:       make(map[string]*Command),
		refs:           make(map[int64]*refRecord),
		recursionLimit: defaultRecursionLimit,
		clock:          time.Now,
		stdout:         io.Discard,
	}
	i.topFrame = newCallFrame(0, 0, nil)
	i.currentFrame = i.topFrame
	i.nextFrameID = 1

	for _, opt := range opts {
		opt(i)
	}
	i.lastCollectTime = i.clock()
	if i.log == nil {
		i.log = &logio.Logger{}
		i.log.SetOutput(discardCloser{io.Discard})
	}
	registerBuiltins(i)
	return i
}

func (i *Interp) now() time.Time { return i.clock() }

func (i *Interp) inLocalScope() bool { return len(i.localProcsStack) > 0 }

func (i *Interp) markLocal(name string) {
	if len(i.localProcsStack) == 0 {
		return
	}
	top := i.localProcsStack[len(i.localProcsStack)-1]
	top[name] = true
}

func (i *Interp) pushLocalScope() { i.localProcsStack = append(i.localProcsStack, map[string]bool{}) }

// popLocalScope restores every command the top local scope shadowed, via
// each Command's prevCmd link (§3.4 `local`).
func (i *Interp) popLocalScope() {
	n := len(i.localProcsStack)
	if n == 0 {
		return
	}
	scope := i.localProcsStack[n-1]
	i.localProcsStack = i.localProcsStack[:n-1]
	for name := range scope {
		if cmd, ok := i.commands[name]; ok && cmd.prevCmd != nil {
			i.commands[name] = cmd.prevCmd
		} else if ok {
			delete(i.commands, name)
		}
	}
	i.bumpProcEpoch()
}

func (i *Interp) bumpFrameEpoch() { i.frameEpoch++ }

// Result returns the value of the last successful evaluation.
func (i *Interp) Result() *Value { return i.result }

// Eval compiles and runs src as a script in the top-level frame, returning
// the final command's result as a string (§3.2 embedding surface).
func (i *Interp) Eval(src string) (string, error) {
	return i.EvalNamed(src, "")
}

// EvalContext runs EvalNamed on its own goroutine and returns early with
// ctx's error if it is cancelled first. The interpreter itself has no
// internal cancellation checks (§9 Non-goals), so a cancelled run leaves
// the goroutine to finish on its own; callers that need a hard deadline
// should pair this with a recursion limit tight enough to bound runaway
// scripts.
func (i *Interp) EvalContext(ctx context.Context, src, file string) (string, error) {
	type outcome struct {
		s   string
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		s, err := i.EvalNamed(src, file)
		done <- outcome{s, err}
	}()
	select {
	case o := <-done:
		return o.s, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// EvalNamed is Eval with an explicit source name for error messages.
// Callers that need multi-file source tracking load file
// content themselves and pass it here; srcio.Queue is the one place that
// understands queuing several sources together (cmd/tamarin wires this).
//
// A host-level invariant violation (panicInternal, a corrupt script-shape,
// a negative refcount) is recovered via internal/panicerr rather than
// crashing the embedding host's goroutine, matching the teacher's own
// VM.Run wrapping of vm.run.
func (i *Interp) EvalNamed(src, file string) (string, error) {
	var result string
	err := panicerr.Recover("Interp", func() error {
		v, err := i.EvalValue(i.currentFrame, NewString(src), file)
		v, err = i.finalizeTopLevel(v, err)
		if err != nil {
			return err
		}
		i.result = v
		result = v.String()
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// finalizeTopLevel interprets the control codes that are only meaningful
// once they reach the outermost script: a bare `return` or the exit code at
// this level completes the script rather than unwinding further, while a
// `break`/`continue` with no enclosing loop is a user error. Nested script
// evaluation (proc bodies, command substitution) must NOT apply this
// translation -- it intercepts the signal before callProc/a loop builtin
// ever sees it, so this lives only here and nowhere EvalValue is reused.
func (i *Interp) finalizeTopLevel(v *Value, err error) (*Value, error) {
	cs, ok := err.(controlSignal)
	if !ok {
		return v, err
	}
	switch cs.code {
	case CodeReturn:
		return cs.val, nil
	case CodeExit:
		code, _ := AsInt(cs.val)
		return nil, ExitRequest{Code: int(code)}
	case CodeBreak, CodeContinue:
		return nil, NewError("invoked %q outside of a loop", cs.code.String())
	}
	return v, err
}

// EvalValue compiles (caching the compiled ScriptShape on v) and runs a
// script held in a Value, in the given frame (§4.3: "compile once, cache
// on the value").
func (i *Interp) EvalValue(cf *CallFrame, v *Value, file string) (*Value, error) {
	shape, err := i.scriptShapeOf(v, file)
	if err != nil {
		return nil, err
	}
	return i.runShape(cf, shape)
}

// evalScriptSource compiles and runs src fresh, without caching -- used for
// transient sources like an expr's `[...]` command substitution.
func (i *Interp) evalScriptSource(cf *CallFrame, src, file string) (*Value, error) {
	shape, err := CompileScript(src, file)
	if err != nil {
		return nil, err
	}
	return i.runShape(cf, shape)
}

// scriptShapeOf returns v's cached ScriptShape, compiling and installing it
// on first use. The source Value's string bytes are left untouched
// (installed by writing rep directly rather than through SetRep) so error
// messages and `info body` can still recover the original text.
func (i *Interp) scriptShapeOf(v *Value, file string) (*ScriptShape, error) {
	if shape, ok := v.rep.(*ScriptShape); ok {
		return shape, nil
	}
	src := v.String()
	shape, err := CompileScript(src, file)
	if err != nil {
		return nil, err
	}
	v.rep = shape // deliberately bypasses SetRep: keep v.bytes/bytesValid intact
	return shape, nil
}

