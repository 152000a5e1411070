// Command tamarin runs a script written in the tamarin language: a small,
// embeddable Tcl-family interpreter (see interp.Interp).
//
// It is a script runner, not a REPL: it reads one or more source files (or
// stdin, if none are given), evaluates them as a single concatenated
// script, and reports the result or error.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/tamarin-lang/tamarin/interp"
	"github.com/tamarin-lang/tamarin/internal/flushio"
	"github.com/tamarin-lang/tamarin/internal/logio"
	"github.com/tamarin-lang/tamarin/internal/srcio"
)

func main() {
	var (
		recursionLimit uint
		timeout        time.Duration
		trace          bool
		dump           bool
	)
	flag.UintVar(&recursionLimit, "recursion-limit", 1000, "maximum nested procedure calls")
	flag.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flag.BoolVar(&trace, "trace", false, "log each top-level result to stderr")
	flag.BoolVar(&dump, "dump", false, "log interpreter state to stderr after running")
	flag.Parse()

	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer func() { os.Exit(log.ExitCode()) }()

	var q srcio.Queue
	args := flag.Args()
	if len(args) == 0 {
		q.Push(namedReader{os.Stdin, "<stdin>"})
	}
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		defer f.Close()
		q.Push(namedReader{f, path})
	}

	src, file, err := q.ReadAll()
	if err != nil {
		log.Errorf("%v", err)
		return
	}

	out := flushio.NewWriteFlusher(os.Stdout)
	vm := interp.New(
		interp.WithRecursionLimit(int(recursionLimit)),
		interp.WithStdout(out),
		interp.WithLogOutput(os.Stderr),
	)

	ctx := context.Background()
	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := vm.EvalContext(ctx, src, file)
	out.Flush()
	if trace {
		log.Leveledf("TRACE")("result %q", result)
	}
	if dump {
		log.Leveledf("DUMP")("values=%d commands=%d refs=%d", vm.LiveCount(), vm.CommandCount(), vm.RefCount())
	}
	if exitErr, ok := err.(interp.ExitRequest); ok {
		log.Close()
		os.Exit(exitErr.Code)
	}
	log.ErrorIf(err)
}

// namedReader pairs a reader with the name srcio.Queue reports for it.
type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }
