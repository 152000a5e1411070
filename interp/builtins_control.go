package interp

func registerControlBuiltins(i *Interp) {
	i.RegisterNative("if", biIf)
	i.RegisterNative("while", biWhile)
	i.RegisterNative("for", biFor)
	i.RegisterNative("foreach", biForeach)
	i.RegisterNative("break", biBreak)
	i.RegisterNative("continue", biContinue)
}

// evalExprArg evaluates v as an expression, reusing its compiled ExprProgram
// across repeated passes through the same compiled condition (a `while`'s
// test token is the same stable Value on every iteration).
func evalExprArg(i *Interp, cf *CallFrame, v *Value) (*Value, error) {
	prog, err := i.exprProgramOf(v)
	if err != nil {
		return nil, err
	}
	return i.EvalExprProgram(cf, prog)
}

func isLoopSignal(err error) (Code, bool) {
	cs, ok := err.(controlSignal)
	if !ok {
		return CodeOK, false
	}
	if cs.code == CodeBreak || cs.code == CodeContinue {
		return cs.code, true
	}
	return CodeOK, false
}

// biIf implements `if test ?then? body ?elseif test ?then? body ...? ?else? body`.
func biIf(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	idx := 1
	for {
		if idx >= len(args) {
			return nil, NewError("wrong # args: no expression after \"if\"")
		}
		cond, err := evalExprArg(i, cf, args[idx])
		if err != nil {
			return nil, err
		}
		idx++
		if idx < len(args) && args[idx].String() == "then" {
			idx++
		}
		if idx >= len(args) {
			return nil, NewError("wrong # args: no script following condition")
		}
		ok, err := AsBool(cond)
		if err != nil {
			return nil, err
		}
		if ok {
			return i.evalScriptSource(cf, args[idx].String(), "")
		}
		idx++
		if idx >= len(args) {
			return NewEmpty(), nil
		}
		switch args[idx].String() {
		case "elseif":
			idx++
			continue
		case "else":
			idx++
			if idx >= len(args) {
				return nil, NewError("wrong # args: no script following \"else\"")
			}
			return i.evalScriptSource(cf, args[idx].String(), "")
		default:
			return NewEmpty(), nil
		}
	}
}

func biWhile(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) != 3 {
		return nil, NewError("wrong # args: should be \"while test body\"")
	}
	for {
		cond, err := evalExprArg(i, cf, args[1])
		if err != nil {
			return nil, err
		}
		b, err := AsBool(cond)
		if err != nil {
			return nil, err
		}
		if !b {
			break
		}
		_, err = i.evalScriptSource(cf, args[2].String(), "")
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

func biFor(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) != 5 {
		return nil, NewError("wrong # args: should be \"for start test next body\"")
	}
	if _, err := i.evalScriptSource(cf, args[1].String(), ""); err != nil {
		return nil, err
	}
	for {
		cond, err := evalExprArg(i, cf, args[2])
		if err != nil {
			return nil, err
		}
		b, err := AsBool(cond)
		if err != nil {
			return nil, err
		}
		if !b {
			break
		}
		_, err = i.evalScriptSource(cf, args[4].String(), "")
		if err != nil {
			if code, ok := isLoopSignal(err); ok {
				if code == CodeBreak {
					break
				}
			} else {
				return nil, err
			}
		}
		if _, err := i.evalScriptSource(cf, args[3].String(), ""); err != nil {
			return nil, err
		}
	}
	return NewEmpty(), nil
}

// biForeach implements `foreach varList list ?varList list ...? body`,
// iterating as many rounds as the longest varList/list pair requires,
// filling short lists with empty strings (§3.4/§4.8 list iteration).
func biForeach(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 4 || len(args)%2 != 0 {
		return nil, NewError("wrong # args: should be \"foreach varList list ?varList list ...? body\"")
	}
	body := args[len(args)-1]
	nPairs := (len(args) - 2) / 2
	varLists := make([][]string, nPairs)
	valLists := make([][]*Value, nPairs)
	rounds := 0
	for p := 0; p < nPairs; p++ {
		vl, err := AsList(args[1+2*p])
		if err != nil {
			return nil, err
		}
		names := make([]string, len(vl))
		for k, v := range vl {
			names[k] = v.String()
		}
		if len(names) == 0 {
			return nil, NewError("foreach varlist is empty")
		}
		varLists[p] = names
		items, err := AsList(args[2+2*p])
		if err != nil {
			return nil, err
		}
		valLists[p] = items
		r := (len(items) + len(names) - 1) / len(names)
		if r > rounds {
			rounds = r
		}
	}

	for round := 0; round < rounds; round++ {
		for p := range varLists {
			names := varLists[p]
			items := valLists[p]
			for k, name := range names {
				pos := round*len(names) + k
				val := NewEmpty()
				if pos < len(items) {
					val = items[pos]
				}
				if err := i.SetVar(cf, name, val); err != nil {
					return nil, err
				}
			}
		}
		_, err := i.evalScriptSource(cf, body.String(), "")
		if err != nil {
			if code, ok := isLoopSignal(err); ok {
				if code == CodeBreak {
					return NewEmpty(), nil
				}
				continue
			}
			return nil, err
		}
	}
	return NewEmpty(), nil
}

func biBreak(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	return nil, controlSignal{code: CodeBreak, val: NewEmpty()}
}

func biContinue(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	return nil, controlSignal{code: CodeContinue, val: NewEmpty()}
}
