// Package interp implements the core of an embeddable, Tcl-family
// scripting language: a reference-counted value, a context-driven parser,
// a script compiler, an evaluator, an expression engine, and a
// mark-sweep reference/finalizer collector for opaque handles.
package interp

// Rep is the internal (typed) representation a Value may shimmer into. A
// Value holding a Rep always has a name for diagnostics, a way to
// regenerate its canonical string form on demand, and a way to be copied
// when shared. Go's own GC reclaims the payload, so unlike a C Jim_ObjType
// there is no separate free hook here.
type Rep interface {
	Name() string
	UpdateString() string
	Dup() Rep
}

// Value is the central entity of the language: a heap cell carrying an
// optional cached string representation and an optional typed internal
// representation. Either may be absent, but never both.
type Value struct {
	bytes      string
	bytesValid bool
	charLen    int // -1 if unknown, lazily computed from the UTF-8 string rep

	rep Rep

	refCount int

	// live-list links, used by the reference GC's mark-sweep walk (§4.9).
	prev, next *Value
}

// NewString creates a pure-string value with no internal representation.
func NewString(s string) *Value {
	return &Value{bytes: s, bytesValid: true, charLen: -1}
}

// NewEmpty creates the canonical empty-string value.
func NewEmpty() *Value { return NewString("") }

// NewRep creates a value whose internal representation is rep, with no
// string representation cached yet.
func NewRep(rep Rep) *Value {
	return &Value{rep: rep, charLen: -1}
}

// String returns the canonical string representation, regenerating it from
// the internal representation if necessary (shimmering invariant #1 of
// spec.md §8: exactly one of the two reps may be authoritative at a time,
// but String() always reconciles them).
func (v *Value) String() string {
	if v == nil {
		return ""
	}
	if !v.bytesValid {
		if v.rep == nil {
			return ""
		}
		v.bytes = v.rep.UpdateString()
		v.bytesValid = true
		v.charLen = -1
	}
	return v.bytes
}

// TypeName reports the name of the internal representation, or "string"
// for a pure string value.
func (v *Value) TypeName() string {
	if v == nil || v.rep == nil {
		return "string"
	}
	return v.rep.Name()
}

// Rep returns the current internal representation, or nil for a pure
// string value. Callers must not retain it past a mutation of v.
func (v *Value) Rep() Rep { return v.rep }

// SetRep installs a new internal representation and invalidates the
// cached string; the string is regenerated lazily on next String().
func (v *Value) SetRep(rep Rep) {
	v.rep = rep
	v.bytesValid = false
	v.charLen = -1
}

// SetString replaces both representations with a pure string.
func (v *Value) SetString(s string) {
	v.rep = nil
	v.bytes = s
	v.bytesValid = true
	v.charLen = -1
}

// Invalidate discards the cached string representation, forcing it to be
// regenerated from rep on next access. Call after mutating rep in place.
func (v *Value) Invalidate() {
	v.bytesValid = false
	v.charLen = -1
}

// IsShared reports whether more than one owner holds this value, per the
// invariant that a shared value must be duplicated before mutation.
func (v *Value) IsShared() bool { return v.refCount > 1 }

// IncrRef bumps the reference count.
func (v *Value) IncrRef() {
	if v != nil {
		v.refCount++
	}
}

// DecrRef drops the reference count and, on reaching zero, unlinks v from
// the interpreter's live list. There is no explicit free step beyond that:
// Go's GC reclaims the cell once nothing else references it.
func (v *Value) DecrRef(i *Interp) {
	if v == nil {
		return
	}
	v.refCount--
	if v.refCount < 0 {
		panicInternal("negative refcount")
	}
	if v.refCount <= 0 {
		i.unlinkLive(v)
	}
}

// RefCount returns the current reference count (for tests and dump).
func (v *Value) RefCount() int { return v.refCount }

// Dup creates an independent copy: the string rep is copied verbatim, and
// the internal rep is either bit-copied (value Rep implementations) or
// produced by the type's own Dup hook (reference Rep implementations).
func (v *Value) Dup() *Value {
	out := &Value{bytes: v.bytes, bytesValid: v.bytesValid, charLen: v.charLen}
	if v.rep != nil {
		out.rep = v.rep.Dup()
	}
	return out
}

// DupShared returns v unchanged if it isn't shared (refcount <= 1),
// otherwise an independent, zero-refcount duplicate -- the standard
// Jim/Tcl copy-on-write guard used before any in-place mutation.
func (i *Interp) DupShared(v *Value) *Value {
	if v == nil || !v.IsShared() {
		return v
	}
	d := v.Dup()
	i.linkLive(d)
	return d
}

// linkLive inserts v at the head of the interpreter's live-value list.
func (i *Interp) linkLive(v *Value) {
	v.prev = nil
	v.next = i.liveHead
	if i.liveHead != nil {
		i.liveHead.prev = v
	}
	i.liveHead = v
	i.liveCount++
}

// unlinkLive removes v from the live-value list, if it is linked.
func (i *Interp) unlinkLive(v *Value) {
	if i.liveHead != v && v.prev == nil && v.next == nil {
		return // never linked (e.g. a value that never left refcount 0)
	}
	if v.prev != nil {
		v.prev.next = v.next
	} else if i.liveHead == v {
		i.liveHead = v.next
	}
	if v.next != nil {
		v.next.prev = v.prev
	}
	v.prev, v.next = nil, nil
	i.liveCount--
}

// NewValue creates a value, registers it in the live list with refcount 1,
// and returns it. All long-lived values the evaluator hands out should be
// minted this way so the reference GC can see them.
func (i *Interp) NewValue(v *Value) *Value {
	v.refCount = 1
	i.linkLive(v)
	return v
}

// LiveCount returns the number of values currently linked into the live
// list (spec.md §8 invariant #4: this must return to its pre-evaluation
// level after an explicit collect once all transient values are released).
func (i *Interp) LiveCount() int { return i.liveCount }

// eachLive calls fn for every value currently in the live list. Used by
// the reference GC's mark phase.
func (i *Interp) eachLive(fn func(*Value)) {
	for v := i.liveHead; v != nil; v = v.next {
		fn(v)
	}
}
