// Package srcio tracks source location across a queue of script inputs.
//
// It is the multi-file analogue of the parser's own single-string cursor
// (the interp package's parser tracks byte offset and line within one
// script): srcio sits one level up, at the embedding boundary, where the
// CLI needs to know which file and line a read came from before a parser
// has even been constructed.
package srcio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tamarin-lang/tamarin/internal/runeio"
)

// Location names a line in a named input.
type Location struct {
	Name string
	Line int
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v", loc.Name, loc.Line) }

// Line pairs a Location with the bytes scanned for it so far.
type Line struct {
	Location
	bytes.Buffer
}

func (il Line) String() string { return fmt.Sprintf("%v %q", il.Location, il.Buffer.String()) }

// Queue reads runes sequentially from a queue of named sources, tracking
// the current and last-completed line for error reporting.
type Queue struct {
	rr    io.RuneReader
	queue []io.Reader
	Last  Line
	Scan  Line
}

// Push appends a source to the read queue.
func (q *Queue) Push(r io.Reader) { q.queue = append(q.queue, r) }

// ReadRune reads the next rune, rolling the current Scan line into Last on
// each line feed and advancing to the next queued source at EOF.
func (q *Queue) ReadRune() (rune, int, error) {
	if q.rr == nil && !q.nextSource() {
		return 0, 0, io.EOF
	}
	r, n, err := q.rr.ReadRune()
	if r == '\n' {
		q.nextLine()
	} else if r != 0 {
		q.Scan.WriteRune(r)
	}
	if r != 0 {
		return r, n, nil
	}
	if err == io.EOF && q.nextSource() {
		return q.ReadRune()
	}
	return 0, n, err
}

// ReadAll drains the queue into a single string, along with the name of the
// first source (used as the script's reported file name).
func (q *Queue) ReadAll() (string, string, error) {
	var buf bytes.Buffer
	name := ""
	for {
		r, _, err := q.ReadRune()
		if name == "" {
			name = q.Scan.Name
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", name, err
		}
		buf.WriteRune(r)
	}
	return buf.String(), name, nil
}

func (q *Queue) nextLine() {
	q.Last.Reset()
	q.Last.Name = q.Scan.Name
	q.Last.Line = q.Scan.Line
	q.Last.Write(q.Scan.Bytes())
	q.Scan.Reset()
	q.Scan.Line++
}

func (q *Queue) nextSource() bool {
	q.nextLine()
	if q.rr != nil {
		if cl, ok := q.rr.(io.Closer); ok {
			cl.Close()
		}
		q.rr = nil
	}
	if len(q.queue) > 0 {
		r := q.queue[0]
		q.queue = q.queue[1:]
		q.rr = runeio.NewReader(r)
		q.Scan.Name = nameOf(r)
		q.Scan.Line = 1
	}
	return q.rr != nil
}

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}
