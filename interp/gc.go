package interp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	handleTagLen    = 7
	handleIDLen     = 20
	handlePrefix    = "<reference.<"
	handleTagEnd    = ">."
	handleSuffix    = ">"
	handleTotalLen  = len(handlePrefix) + handleTagLen + len(handleTagEnd) + handleIDLen + len(handleSuffix)
	collectEveryIDs = 5000
	collectEvery    = 300 * time.Second
)

// refRecord is one entry of the reference table (§4.9).
type refRecord struct {
	value     *Value
	finalizer string
	handle    string // the exact handle string returned by `ref`
}

// ReferenceRep is the Reference variant of §3.1: an id plus the handle
// string it formats to.
type ReferenceRep struct {
	ID     int64
	Handle string
}

func (ReferenceRep) Name() string           { return "reference" }
func (r ReferenceRep) Dup() Rep             { return r }
func (r ReferenceRep) UpdateString() string { return r.Handle }

// padTag pads/truncates tag to the fixed 7-byte handle tag, using '_' for
// padding, per §4.9.
func padTag(tag string) string {
	if len(tag) > handleTagLen {
		tag = tag[:handleTagLen]
	}
	for len(tag) < handleTagLen {
		tag += "_"
	}
	return tag
}

func formatHandle(tag string, id int64) string {
	return fmt.Sprintf("%s%s%s%0*d%s", handlePrefix, padTag(tag), handleTagEnd, handleIDLen, id, handleSuffix)
}

// parseHandle validates the exact fixed-width shape and extracts the id.
// Any reader accepting a shorter string must reject it (§6).
func parseHandle(s string) (id int64, ok bool) {
	if len(s) != handleTotalLen {
		return 0, false
	}
	if !strings.HasPrefix(s, handlePrefix) || !strings.HasSuffix(s, handleSuffix) {
		return 0, false
	}
	tag := s[len(handlePrefix) : len(handlePrefix)+handleTagLen]
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return 0, false
		}
	}
	rest := s[len(handlePrefix)+handleTagLen:]
	if !strings.HasPrefix(rest, handleTagEnd) {
		return 0, false
	}
	digits := rest[len(handleTagEnd) : len(rest)-len(handleSuffix)]
	if len(digits) != handleIDLen {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NewReference creates a reference value (`ref value tag ?finalizer?`).
func (i *Interp) NewReference(value *Value, tag, finalizer string) *Value {
	id := i.nextRefID
	i.nextRefID++
	handle := formatHandle(tag, id)
	i.refs[id] = &refRecord{value: value, finalizer: finalizer, handle: handle}
	v := i.NewValue(NewRep(ReferenceRep{ID: id, Handle: handle}))
	v.SetString(handle)
	i.collectIfNeeded()
	return v
}

// GetRef resolves a reference handle to its stored value.
func (i *Interp) GetRef(handle string) (*Value, error) {
	rec, err := i.lookupRef(handle)
	if err != nil {
		return nil, err
	}
	return rec.value, nil
}

// SetRef updates the value stored under a reference handle.
func (i *Interp) SetRef(handle string, value *Value) error {
	rec, err := i.lookupRef(handle)
	if err != nil {
		return err
	}
	rec.value = value
	return nil
}

// SetFinalizer sets/clears the finalizer command name for a reference.
func (i *Interp) SetFinalizer(handle, finalizer string) error {
	rec, err := i.lookupRef(handle)
	if err != nil {
		return err
	}
	rec.finalizer = finalizer
	return nil
}

// GetFinalizer returns the finalizer command name for a reference.
func (i *Interp) GetFinalizer(handle string) (string, error) {
	rec, err := i.lookupRef(handle)
	if err != nil {
		return "", err
	}
	return rec.finalizer, nil
}

// RefCount returns the number of live entries in the reference table, for
// -dump.
func (i *Interp) RefCount() int { return len(i.refs) }

func (i *Interp) lookupRef(handle string) (*refRecord, error) {
	id, ok := parseHandle(handle)
	if !ok {
		return nil, NewError("not a reference: %q", handle)
	}
	rec, ok := i.refs[id]
	if !ok {
		return nil, NewError("invalid reference id %q", handle)
	}
	return rec, nil
}

// mayContainRef reports whether v's representation type could embed a
// reference handle in its string form, governing whether Collect scans it
// (§4.9's "any reachable string may contain them").
func mayContainRef(v *Value) bool {
	switch v.rep.(type) {
	case *ScriptShape, *ExprProgram:
		return false // these never round-trip to/from a handle-bearing string
	default:
		return true
	}
}

// Collect runs an explicit mark-sweep pass: scan every live value's string
// representation for handle-shaped substrings, mark those ids live, then
// finalize and delete every unmarked reference (§4.9). Non-reentrant: a
// finalizer invoked mid-collection must not trigger a nested collection.
func (i *Interp) Collect() int {
	if i.lastCollectID == -1 {
		return 0 // a finalizer called collect during a collection
	}
	v, _, _ := i.collectGroup.Do("collect", func() (interface{}, error) {
		return i.collectLocked(), nil
	})
	return v.(int)
}

func (i *Interp) collectLocked() int {
	if i.lastCollectID == -1 {
		return 0 // non-reentrant: a finalizer triggered a nested collect
	}
	marked := make(map[int64]bool, len(i.refs))
	i.eachLive(func(v *Value) {
		if _, ok := v.rep.(ReferenceRep); ok {
			id, _ := parseHandle(v.String())
			marked[id] = true
			return
		}
		if !mayContainRef(v) {
			return
		}
		scanForHandles(v.String(), marked)
	})

	var dead []int64
	for id := range i.refs {
		if !marked[id] {
			dead = append(dead, id)
		}
	}

	saved := i.lastCollectID
	i.lastCollectID = -1 // guard against reentrant collection from a finalizer
	collected := 0
	for _, id := range dead {
		rec := i.refs[id]
		delete(i.refs, id)
		if rec.finalizer != "" {
			i.invokeFinalizer(rec.finalizer, rec.handle, rec.value)
		}
		collected++
	}
	i.lastCollectID = saved
	if i.nextRefID > i.lastCollectID {
		i.lastCollectID = i.nextRefID
	}
	i.lastCollectTime = i.now()
	return collected
}

func (i *Interp) invokeFinalizer(cmdName, handle string, value *Value) {
	savedResult := i.result
	cmd := i.LookupCommand(cmdName)
	if cmd != nil {
		args := []*Value{NewString(cmdName), NewString(handle), value}
		_, _ = i.dispatch(i.currentFrame, cmd, args)
	}
	i.result = savedResult
}

// collectIfNeeded runs Collect when the implicit pacing thresholds are
// crossed (§4.9 Pacing): either 5000 new ids since the last collection, or
// 300 seconds of wall time.
func (i *Interp) collectIfNeeded() {
	if i.lastCollectID == -1 {
		return
	}
	if i.nextRefID-i.lastCollectID > collectEveryIDs || i.now().Sub(i.lastCollectTime) > collectEvery {
		i.Collect()
	}
}

// scanForHandles finds every fixed-width `<reference.<...>...>` substring
// in s and marks its id live, bounding scan cost by the handle's constant
// width (§4.9 rationale).
func scanForHandles(s string, marked map[int64]bool) {
	for start := strings.Index(s, handlePrefix); start >= 0; {
		end := start + handleTotalLen
		if end > len(s) {
			break
		}
		if id, ok := parseHandle(s[start:end]); ok {
			marked[id] = true
		}
		next := strings.Index(s[start+1:], handlePrefix)
		if next < 0 {
			break
		}
		start = start + 1 + next
	}
}

// collectGroup coalesces concurrent Collect calls: the interpreter's
// evaluation loop is single-threaded per §5, but Collect is also reachable
// directly through the embedding API (the `collect` command and
// collect_if_needed), which a host may invoke from more than one goroutine
// around the same *Interp (e.g. a finalizer scheduled off a signal
// handler goroutine racing a foreground eval). singleflight ensures only
// one mark-sweep pass actually runs for overlapping callers.
type collectGroup = singleflight.Group
