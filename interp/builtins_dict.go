package interp

func registerDictBuiltins(i *Interp) {
	i.RegisterNative("dict", biDict)
}

// biDict implements the `dict` subcommand family used by §4.6.1's array
// sugar and general map manipulation: create, get, set, size, exists, keys,
// values, for. `dict get` accepts a key path into nested dicts; `dict set`
// takes exactly one key and returns an error for a nested key path.
func biDict(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"dict subcommand ?arg ...?\"")
	}
	switch args[1].String() {
	case "create":
		return dictCreate(args[2:])
	case "get":
		return dictGet(args[2:])
	case "set":
		return dictSet(i, cf, args[2:])
	case "size":
		return dictSize(args[2:])
	case "exists":
		return dictExists(args[2:])
	case "keys":
		return dictKeys(args[2:])
	case "values":
		return dictValues(args[2:])
	case "for":
		return dictFor(i, cf, args[2:])
	}
	return nil, NewError("unknown or ambiguous subcommand %q: must be create, exists, for, get, keys, set, size, or values", args[1].String())
}

func dictCreate(rest []*Value) (*Value, error) {
	if len(rest)%2 != 0 {
		return nil, NewError("missing value to go with key")
	}
	d := NewDictRep()
	for k := 0; k < len(rest); k += 2 {
		d.Set(rest[k].String(), rest[k+1])
	}
	return NewRep(d), nil
}

func dictGet(rest []*Value) (*Value, error) {
	if len(rest) < 1 {
		return nil, NewError("wrong # args: should be \"dict get dictionary ?key ...?\"")
	}
	d, err := AsDict(rest[0])
	if err != nil {
		return nil, err
	}
	keys := rest[1:]
	if len(keys) == 0 {
		return NewRep(d), nil
	}
	var val *Value
	for ki, k := range keys {
		v, ok := d.Items[k.String()]
		if !ok {
			return nil, NewError("key %q not known in dictionary", k.String())
		}
		val = v
		if ki < len(keys)-1 {
			d, err = AsDict(v)
			if err != nil {
				return nil, err
			}
		}
	}
	return val, nil
}

func dictSet(i *Interp, cf *CallFrame, rest []*Value) (*Value, error) {
	if len(rest) < 3 {
		return nil, NewError("wrong # args: should be \"dict set varName key ?key ...? value\"")
	}
	name := rest[0].String()
	cur, err := i.GetVar(cf, name)
	if err != nil {
		cur = NewRep(NewDictRep())
	} else {
		cur = i.DupShared(cur)
	}
	d, err := AsDict(cur)
	if err != nil {
		return nil, err
	}
	keys := rest[1 : len(rest)-1]
	val := rest[len(rest)-1]
	if len(keys) != 1 {
		return nil, NewError("dict set: nested keys are not supported")
	}
	d.Set(keys[0].String(), val)
	cur.SetRep(d)
	if err := i.SetVar(cf, name, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func dictSize(rest []*Value) (*Value, error) {
	if len(rest) != 1 {
		return nil, NewError("wrong # args: should be \"dict size dictionary\"")
	}
	d, err := AsDict(rest[0])
	if err != nil {
		return nil, err
	}
	return NewRep(IntRep(int64(len(d.Items)))), nil
}

func dictExists(rest []*Value) (*Value, error) {
	if len(rest) != 2 {
		return nil, NewError("wrong # args: should be \"dict exists dictionary key\"")
	}
	d, err := AsDict(rest[0])
	if err != nil {
		return nil, err
	}
	_, ok := d.Items[rest[1].String()]
	return boolValue(ok), nil
}

func dictKeys(rest []*Value) (*Value, error) {
	if len(rest) != 1 {
		return nil, NewError("wrong # args: should be \"dict keys dictionary\"")
	}
	d, err := AsDict(rest[0])
	if err != nil {
		return nil, err
	}
	out := make([]*Value, len(d.Order))
	for k, name := range d.Order {
		out[k] = NewString(name)
	}
	return NewRep(ListRep(out)), nil
}

func dictValues(rest []*Value) (*Value, error) {
	if len(rest) != 1 {
		return nil, NewError("wrong # args: should be \"dict values dictionary\"")
	}
	d, err := AsDict(rest[0])
	if err != nil {
		return nil, err
	}
	out := make([]*Value, len(d.Order))
	for k, name := range d.Order {
		out[k] = d.Items[name]
	}
	return NewRep(ListRep(out)), nil
}

func dictFor(i *Interp, cf *CallFrame, rest []*Value) (*Value, error) {
	if len(rest) != 3 {
		return nil, NewError("wrong # args: should be \"dict for {keyVar valueVar} dictionary body\"")
	}
	pair, err := AsList(rest[0])
	if err != nil {
		return nil, err
	}
	if len(pair) != 2 {
		return nil, NewError("must have exactly two variable names")
	}
	d, err := AsDict(rest[1])
	if err != nil {
		return nil, err
	}
	body := rest[2].String()
	keyVar, valVar := pair[0].String(), pair[1].String()
	for _, key := range d.Order {
		if err := i.SetVar(cf, keyVar, NewString(key)); err != nil {
			return nil, err
		}
		if err := i.SetVar(cf, valVar, d.Items[key]); err != nil {
			return nil, err
		}
		_, err := i.evalScriptSource(cf, body, "")
		if err != nil {
			if code, ok := isLoopSignal(err); ok {
				if code == CodeBreak {
					break
				}
				continue
			}
			return nil, err
		}
	}
	return NewEmpty(), nil
}
