package interp

import "strings"

// ExitRequest is returned by the top-level Eval/EvalNamed entry points when
// the exit return code reaches the top level; a host decides what "exit"
// means (os.Exit, stop a request handler, ...) rather than the interpreter
// doing it directly.
type ExitRequest struct{ Code int }

func (e ExitRequest) Error() string { return "script requested exit" }

// runShape walks a compiled script's flat instruction array (§4.3),
// dispatching one command per InstrLine and returning the last command's
// result. Errors and control signals (break/continue/return/exit) are
// propagated to the caller unchanged -- only the top-level Eval/EvalNamed
// wrapper and callProc interpret them.
func (i *Interp) runShape(cf *CallFrame, shape *ScriptShape) (*Value, error) {
	result := NewEmpty()
	idx := 0
	instrs := shape.instrs
	for idx < len(instrs) {
		in := instrs[idx]
		if in.Kind != InstrLine {
			panicInternal("script shape out of sync: expected InstrLine at %d", idx)
		}
		argc := in.Argc
		idx++

		args := make([]*Value, 0, argc)
		for w := 0; w < argc; w++ {
			word := instrs[idx]
			if word.Kind == InstrWord {
				idx++
				count := word.Count
				expand := count < 0
				if expand {
					count = -count
				}
				toks := instrs[idx : idx+count]
				idx += count
				val, err := i.evalWordTokens(cf, toks)
				if err != nil {
					return nil, err
				}
				if expand {
					items, err := AsList(val)
					if err != nil {
						return nil, err
					}
					args = append(args, items...)
				} else {
					args = append(args, val)
				}
				continue
			}
			val, err := i.evalToken(cf, word)
			idx++
			if err != nil {
				return nil, err
			}
			args = append(args, val)
		}

		if len(args) == 0 {
			continue
		}
		cmd := i.resolveCommand(args[0])
		res, err := i.dispatch(cf, cmd, args)
		if err != nil {
			return nil, err
		}
		result = res
	}
	return result, nil
}

// evalToken produces the runtime value of one compiled token (§4.2's
// "word interpolation" step). Literal tokens (STR/ESC) were already fully
// resolved at compile time; VAR/DICTSUGAR/CMD/EXPRSUGAR resolve now,
// against the live frame.
func (i *Interp) evalToken(cf *CallFrame, in Instr) (*Value, error) {
	switch in.TokType {
	case TokStr, TokEsc:
		return in.Val, nil
	case TokVar:
		return i.GetVar(cf, in.Val.String())
	case TokDictSugar:
		ds, ok := in.Val.Rep().(DictSubstRep)
		if !ok {
			panicInternal("DICTSUGAR token missing its DictSubstRep")
		}
		key, err := i.substWord(cf, ds.Index.String())
		if err != nil {
			return nil, err
		}
		return i.GetVar(cf, ds.VarName.String()+"("+key.String()+")")
	case TokCmd:
		return i.evalCmdSubst(cf, in.Val)
	case TokExprSugar:
		return i.evalExprSugarValue(cf, in.Val)
	}
	return in.Val, nil
}

// evalWordTokens concatenates a multi-token word's pieces into one value
// (§4.2: a word made of mixed literal/var/cmd pieces is joined as a
// string, the {*}-expand decision happens one level up in runShape).
func (i *Interp) evalWordTokens(cf *CallFrame, toks []Instr) (*Value, error) {
	if len(toks) == 1 {
		return i.evalToken(cf, toks[0])
	}
	var b strings.Builder
	for _, t := range toks {
		v, err := i.evalToken(cf, t)
		if err != nil {
			return nil, err
		}
		b.WriteString(v.String())
	}
	return NewString(b.String()), nil
}

// evalCmdSubst evaluates a `[...]` command-substitution body cached on a
// compiled token's Value (§4.3: compiled once, the same as a procedure
// body, since the token's Value is stable across repeated executions of
// its enclosing loop).
func (i *Interp) evalCmdSubst(cf *CallFrame, v *Value) (*Value, error) {
	shape, err := i.scriptShapeOf(v, "")
	if err != nil {
		return nil, err
	}
	return i.runShape(cf, shape)
}

func (i *Interp) evalCmdSubstSrc(cf *CallFrame, src string) (*Value, error) {
	return i.evalScriptSource(cf, src, "")
}

// evalExprSugarValue evaluates a `$(...)` inline-expression token, caching
// the compiled ExprProgram on the token's Value the same way evalCmdSubst
// caches a ScriptShape.
func (i *Interp) evalExprSugarValue(cf *CallFrame, v *Value) (*Value, error) {
	prog, err := i.exprProgramOf(v)
	if err != nil {
		return nil, err
	}
	return i.EvalExprProgram(cf, prog)
}

func (i *Interp) exprProgramOf(v *Value) (*ExprProgram, error) {
	if prog, ok := v.rep.(*ExprProgram); ok {
		return prog, nil
	}
	src := v.String()
	prog, err := CompileExpr(src, "")
	if err != nil {
		return nil, err
	}
	v.rep = prog // bypass SetRep: keep the original expr source text intact
	return prog, nil
}

// resolveCommand looks up a command by its first-word value, consulting
// (and refreshing) the per-call-site inline cache the same value carries
// across repeated executions of the word it came from (§4.3 "cmd cache").
func (i *Interp) resolveCommand(nameVal *Value) *Command {
	if cc, ok := nameVal.Rep().(CmdCacheRep); ok && cc.Epoch == i.procEpoch {
		return cc.Cmd
	}
	name := nameVal.String()
	cmd := i.LookupCommand(name)
	nameVal.SetRep(CmdCacheRep{Epoch: i.procEpoch, Cmd: cmd, Name: name})
	return cmd
}

// dispatch invokes cmd (native or a procedure) with args (args[0] is the
// command name). Exported to the reference GC's finalizer invocation path.
func (i *Interp) dispatch(cf *CallFrame, cmd *Command, args []*Value) (*Value, error) {
	if cmd == nil {
		name := ""
		if len(args) > 0 {
			name = args[0].String()
		}
		return nil, NewError("invalid command name %q", name)
	}
	cmd.IncrRef()
	defer cmd.DecrRef()
	if cmd.native != nil {
		return cmd.native(i, cf, args)
	}
	return i.callProc(cf, cmd, args)
}

// callProc runs a user-defined procedure (§4.8): binds parameters into a
// fresh frame, runs the body, and interprets the control codes that may
// escape it. A tailcall re-binds in place instead of recursing the Go call
// stack (§4.7/§9 "coroutine-free tailcall").
func (i *Interp) callProc(cf *CallFrame, cmd *Command, args []*Value) (*Value, error) {
	proc := cmd.proc
	if i.depth+1 > i.recursionLimit {
		return nil, NewError("too many nested evaluations (infinite loop?)")
	}
	i.depth++
	defer func() { i.depth-- }()

	curArgs := args
	for {
		frame := newCallFrame(i.nextFrameID, cf.level+1, cf)
		i.nextFrameID++
		frame.proc = proc
		frame.argv = curArgs
		frame.callerFile = ""
		if err := bindParams(i, frame, proc, curArgs); err != nil {
			return nil, err
		}

		saved := i.currentFrame
		i.currentFrame = frame
		i.pushLocalScope()
		result, err := i.EvalValue(frame, proc.body, "")
		i.popLocalScope()
		i.currentFrame = saved

		if err == nil {
			return result, nil
		}

		if cs, ok := err.(controlSignal); ok {
			switch cs.code {
			case CodeReturn:
				return cs.val, nil
			case CodeExit:
				return cs.val, err
			case CodeBreak, CodeContinue:
				return nil, NewError("invoked %q outside of a loop", cs.code.String())
			case codeEval:
				newArgs, lerr := AsList(cs.val)
				if lerr != nil {
					return nil, lerr
				}
				if len(newArgs) == 0 {
					return nil, NewError("tailcall: empty command")
				}
				newCmd := i.LookupCommand(newArgs[0].String())
				if newCmd == nil {
					return nil, NewError("invalid command name %q", newArgs[0].String())
				}
				if newCmd.proc == nil {
					return i.dispatch(cf, newCmd, newArgs)
				}
				proc = newCmd.proc
				curArgs = newArgs
				continue
			}
		}

		if se, ok := err.(*ScriptError); ok {
			se.addTrace(proc.name, frame.callerFile, frame.callerLine)
		}
		return nil, err
	}
}

// bindParams binds a procedure's formal parameters to the caller's
// arguments (§3.4, §4.8): required, then defaulted, then a trailing "args"
// catch-all; a "&name" parameter auto-upvars the caller's variable of that
// name instead of taking a value.
func bindParams(i *Interp, frame *CallFrame, proc *Procedure, args []*Value) error {
	positional := args[1:]
	n := len(positional)
	if proc.argsPos < 0 && (n < proc.reqArity || n > proc.reqArity+proc.optArity) {
		return NewError("wrong # args: should be \"%s %s\"", proc.name, formatParamUsage(proc))
	}
	if proc.argsPos >= 0 && n < proc.reqArity {
		return NewError("wrong # args: should be \"%s %s\"", proc.name, formatParamUsage(proc))
	}

	idx := 0
	for _, p := range proc.params {
		if p.Name == "args" && proc.argsPos >= 0 {
			rest := append([]*Value(nil), positional[idx:]...)
			frame.vars["args"] = &varSlot{val: NewRep(ListRep(rest))}
			idx = n
			continue
		}
		if idx < n {
			if p.IsRef {
				frame.vars[p.Name] = &varSlot{linkFrame: frame.parent, linkName: positional[idx].String()}
			} else {
				frame.vars[p.Name] = &varSlot{val: positional[idx]}
			}
			idx++
			continue
		}
		if p.Default != nil {
			frame.vars[p.Name] = &varSlot{val: p.Default}
			continue
		}
		return NewError("wrong # args: should be \"%s %s\"", proc.name, formatParamUsage(proc))
	}
	return nil
}

func formatParamUsage(proc *Procedure) string {
	var b strings.Builder
	for idx, p := range proc.params {
		if idx > 0 {
			b.WriteByte(' ')
		}
		switch {
		case p.Name == "args":
			b.WriteString("?arg ...?")
		case p.Default != nil:
			b.WriteString("?" + p.Name + "?")
		default:
			b.WriteString(p.Name)
		}
	}
	return b.String()
}
