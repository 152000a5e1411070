package interp

import "strings"

// varSlot is one variable binding. A direct slot owns a value; a link
// slot forwards reads/writes to a name in another frame (§4.6, upvar).
type varSlot struct {
	val       *Value
	linkFrame *CallFrame
	linkName  string
}

func (s *varSlot) isLink() bool { return s.linkFrame != nil }

// CallFrame is one activation record (§3.3).
type CallFrame struct {
	id     uint64
	level  int
	vars   map[string]*varSlot
	static *DictRep // procedure's static vars, shared across invocations

	parent *CallFrame

	argv []*Value
	proc *Procedure // the procedure being run in this frame, if any

	callerFile string
	callerLine int
}

func newCallFrame(id uint64, level int, parent *CallFrame) *CallFrame {
	return &CallFrame{id: id, level: level, vars: make(map[string]*varSlot), parent: parent}
}

// splitArrayName splits "name(key)" into name, key, true, or returns
// ("", "", false) for a plain scalar name.
func splitArrayName(name string) (base, key string, isArray bool) {
	if !strings.HasSuffix(name, ")") {
		return "", "", false
	}
	i := strings.IndexByte(name, '(')
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+1 : len(name)-1], true
}

// resolveFrame returns the frame a name should resolve in: the top frame
// for a "::"-prefixed name, else the given frame.
func (i *Interp) resolveFrame(cf *CallFrame, name string) (*CallFrame, string) {
	if strings.HasPrefix(name, "::") {
		return i.topFrame, strings.TrimPrefix(name, "::")
	}
	return cf, name
}

// lookupSlot looks name up in a frame's variable hash, following link
// chains (§4.6); procedure static vars are checked by GetVar, not here.
func (i *Interp) lookupSlot(cf *CallFrame, name string) *varSlot {
	slot, ok := cf.vars[name]
	if !ok {
		return nil
	}
	seen := map[*varSlot]bool{}
	for slot.isLink() {
		if seen[slot] {
			return nil // cyclic link, treat as unresolved
		}
		seen[slot] = true
		target, ok := slot.linkFrame.vars[slot.linkName]
		if !ok {
			return nil
		}
		slot = target
	}
	return slot
}

// GetVar reads a variable (or array element) by name, resolving "::" and
// array sugar, and following upvar links (§4.6).
func (i *Interp) GetVar(cf *CallFrame, name string) (*Value, error) {
	if base, key, isArray := splitArrayName(name); isArray {
		return i.getArrayElement(cf, base, key)
	}
	frame, local := i.resolveFrame(cf, name)
	if slot := i.lookupSlot(frame, local); slot != nil {
		return slot.val, nil
	}
	if frame.proc != nil && frame.proc.static != nil {
		if v, ok := frame.proc.static.Items[local]; ok {
			return v, nil
		}
	}
	return nil, NewError("can't read %q: no such variable", name)
}

// SetVar writes a variable (or array element), creating it if absent.
func (i *Interp) SetVar(cf *CallFrame, name string, val *Value) error {
	if base, key, isArray := splitArrayName(name); isArray {
		return i.setArrayElement(cf, base, key, val)
	}
	frame, local := i.resolveFrame(cf, name)
	slot := i.lookupTargetSlot(frame, local)
	if slot.isLink() {
		target := i.lookupTargetSlot(slot.linkFrame, slot.linkName)
		target.val = val
		return nil
	}
	slot.val = val
	return nil
}

// lookupTargetSlot returns the frame's slot for name, creating a fresh
// direct slot if none exists yet (does not follow link chains itself;
// callers that need the final target call this again after seeing isLink).
func (i *Interp) lookupTargetSlot(cf *CallFrame, name string) *varSlot {
	if slot, ok := cf.vars[name]; ok {
		return slot
	}
	slot := &varSlot{}
	cf.vars[name] = slot
	return slot
}

// UnsetVar removes a variable (or array element) from a frame.
func (i *Interp) UnsetVar(cf *CallFrame, name string) error {
	if base, key, isArray := splitArrayName(name); isArray {
		return i.unsetArrayElement(cf, base, key)
	}
	frame, local := i.resolveFrame(cf, name)
	if _, ok := frame.vars[local]; !ok {
		return NewError("can't unset %q: no such variable", name)
	}
	delete(frame.vars, local)
	i.bumpFrameEpoch()
	return nil
}

// LinkVar implements upvar/global: bind localName in cf to targetName in
// targetFrame. Refuses a same-frame self link (cycle guard, §4.6).
func (i *Interp) LinkVar(cf *CallFrame, localName string, targetFrame *CallFrame, targetName string) error {
	if cf == targetFrame && localName == targetName {
		return NewError("can't upvar from variable to itself")
	}
	cf.vars[localName] = &varSlot{linkFrame: targetFrame, linkName: targetName}
	return nil
}

// --- array sugar (§4.6.1) ---------------------------------------------------

func (i *Interp) getArrayElement(cf *CallFrame, base, key string) (*Value, error) {
	arrVal, err := i.GetVar(cf, base)
	if err != nil {
		return nil, NewError("can't read %q: no such variable", base+"("+key+")")
	}
	d, err := AsDict(arrVal)
	if err != nil {
		return nil, err
	}
	v, ok := d.Items[key]
	if !ok {
		return nil, NewError("can't read %q: no such element in array", base+"("+key+")")
	}
	return v, nil
}

func (i *Interp) setArrayElement(cf *CallFrame, base, key string, val *Value) error {
	frame, local := i.resolveFrame(cf, base)
	slot := i.lookupTargetSlot(frame, local)
	if slot.isLink() {
		target := i.lookupTargetSlot(slot.linkFrame, slot.linkName)
		slot = target
	}
	if slot.val == nil {
		slot.val = i.NewValue(NewRep(NewDictRep()))
	}
	slot.val = i.DupShared(slot.val)
	d, err := AsDict(slot.val)
	if err != nil {
		return NewError("can't set %q: variable isn't array", base)
	}
	d.Set(key, val)
	slot.val.Invalidate()
	return nil
}

func (i *Interp) unsetArrayElement(cf *CallFrame, base, key string) error {
	frame, local := i.resolveFrame(cf, base)
	slot := i.lookupSlot(frame, local)
	if slot == nil {
		return NewError("can't unset %q: no such variable", base)
	}
	d, err := AsDict(slot.val)
	if err != nil {
		return err
	}
	slot.val = i.DupShared(slot.val)
	d, _ = AsDict(slot.val)
	if !d.Unset(key) {
		return NewError("can't unset %q: no such element in array", base+"("+key+")")
	}
	slot.val.Invalidate()
	return nil
}
