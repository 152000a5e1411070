package interp

import "strconv"

func registerListBuiltins(i *Interp) {
	i.RegisterNative("list", biList)
	i.RegisterNative("concat", biConcat)
	i.RegisterNative("llength", biLlength)
	i.RegisterNative("lindex", biLindex)
	i.RegisterNative("lset", biLset)
	i.RegisterNative("linsert", biLinsert)
	i.RegisterNative("lrange", biLrange)
	i.RegisterNative("lappend", biLappend)
	i.RegisterNative("lassign", biLassign)
}

// resolveIndex parses a list index argument: a plain integer, "end", or
// "end-N" (§4.6's list-index sugar, shared by lindex/lset/linsert/lrange).
func resolveIndex(v *Value, length int) (int, error) {
	s := v.String()
	if s == "end" {
		return length - 1, nil
	}
	if len(s) > 4 && s[:4] == "end-" {
		n, err := strconv.Atoi(s[4:])
		if err != nil {
			return 0, NewError("bad index %q: must be end?-integer?", s)
		}
		return length - 1 - n, nil
	}
	n, err := AsInt(v)
	if err != nil {
		return 0, NewError("bad index %q: must be integer?, end, or end-integer", s)
	}
	return int(n), nil
}

func biList(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	return NewRep(ListRep(append([]*Value(nil), args[1:]...))), nil
}

func biConcat(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	var all []*Value
	for _, a := range args[1:] {
		items, err := AsList(a)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return NewRep(ListRep(all)), nil
}

func biLlength(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) != 2 {
		return nil, NewError("wrong # args: should be \"llength list\"")
	}
	items, err := AsList(args[1])
	if err != nil {
		return nil, err
	}
	return NewRep(IntRep(int64(len(items)))), nil
}

// biLindex implements `lindex list ?index ...?`, descending one level of
// nesting per index argument, as a string-list it reparses on each step.
func biLindex(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"lindex list ?index ...?\"")
	}
	items, err := AsList(args[1])
	if err != nil {
		return nil, err
	}
	if len(args) == 2 {
		return NewRep(ListRep(items)), nil
	}
	var result *Value = NewRep(ListRep(items))
	cur := items
	for _, idxArg := range args[2:] {
		idx, err := resolveIndex(idxArg, len(cur))
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(cur) {
			return NewEmpty(), nil
		}
		result = cur[idx]
		cur, err = AsList(result)
		if err != nil {
			cur = nil
		}
	}
	return result, nil
}

func biLset(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 4 {
		return nil, NewError("wrong # args: should be \"lset listVar index value\"")
	}
	if len(args) != 4 {
		return nil, NewError("lset: nested indices are not supported")
	}
	name := args[1].String()
	cur, err := i.GetVar(cf, name)
	if err != nil {
		return nil, err
	}
	cur = i.DupShared(cur)
	items, err := AsList(cur)
	if err != nil {
		return nil, err
	}
	idx, err := resolveIndex(args[2], len(items))
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(items) {
		return nil, NewError("list index out of range")
	}
	items = append([]*Value(nil), items...)
	items[idx] = args[3]
	cur.SetRep(ListRep(items))
	if err := i.SetVar(cf, name, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func biLinsert(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 3 {
		return nil, NewError("wrong # args: should be \"linsert list index element ?element ...?\"")
	}
	items, err := AsList(args[1])
	if err != nil {
		return nil, err
	}
	idx, err := resolveIndex(args[2], len(items))
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		idx = 0
	}
	if idx > len(items) {
		idx = len(items)
	}
	out := make([]*Value, 0, len(items)+len(args)-3)
	out = append(out, items[:idx]...)
	out = append(out, args[3:]...)
	out = append(out, items[idx:]...)
	return NewRep(ListRep(out)), nil
}

func biLrange(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) != 4 {
		return nil, NewError("wrong # args: should be \"lrange list first last\"")
	}
	items, err := AsList(args[1])
	if err != nil {
		return nil, err
	}
	first, err := resolveIndex(args[2], len(items))
	if err != nil {
		return nil, err
	}
	last, err := resolveIndex(args[3], len(items))
	if err != nil {
		return nil, err
	}
	if first < 0 {
		first = 0
	}
	if last >= len(items) {
		last = len(items) - 1
	}
	if first > last || first >= len(items) {
		return NewRep(ListRep(nil)), nil
	}
	out := append([]*Value(nil), items[first:last+1]...)
	return NewRep(ListRep(out)), nil
}

func biLappend(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"lappend varName ?value ...?\"")
	}
	name := args[1].String()
	cur, err := i.GetVar(cf, name)
	if err != nil {
		cur = NewRep(ListRep(nil))
	} else {
		cur = i.DupShared(cur)
	}
	items, err := AsList(cur)
	if err != nil {
		return nil, err
	}
	items = append(append([]*Value(nil), items...), args[2:]...)
	cur.SetRep(ListRep(items))
	if err := i.SetVar(cf, name, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func biLassign(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"lassign list ?varName ...?\"")
	}
	items, err := AsList(args[1])
	if err != nil {
		return nil, err
	}
	names := args[2:]
	for k, name := range names {
		val := NewEmpty()
		if k < len(items) {
			val = items[k]
		}
		if err := i.SetVar(cf, name.String(), val); err != nil {
			return nil, err
		}
	}
	var rest []*Value
	if len(names) < len(items) {
		rest = append([]*Value(nil), items[len(names):]...)
	}
	return NewRep(ListRep(rest)), nil
}
