package interp

import (
	"io"
	"strings"
)

func registerCoreBuiltins(i *Interp) {
	i.RegisterNative("set", biSet)
	i.RegisterNative("unset", biUnset)
	i.RegisterNative("incr", biIncr)
	i.RegisterNative("global", biGlobal)
	i.RegisterNative("local", biLocal)
	i.RegisterNative("rename", biRename)
	i.RegisterNative("proc", biProc)
	i.RegisterNative("return", biReturn)
	i.RegisterNative("catch", biCatch)
	i.RegisterNative("uplevel", biUplevel)
	i.RegisterNative("upvar", biUpvar)
	i.RegisterNative("tailcall", biTailcall)
	i.RegisterNative("eval", biEval)
	i.RegisterNative("expr", biExpr)
	i.RegisterNative("subst", biSubst)
	i.RegisterNative("info", biInfo)
	i.RegisterNative("puts", biPuts)
	i.RegisterNative("error", biError)
	i.RegisterNative("ref", biRef)
	i.RegisterNative("getref", biGetref)
	i.RegisterNative("setref", biSetref)
	i.RegisterNative("finalize", biFinalize)
	i.RegisterNative("collect", biCollect)
}

func biSet(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, NewError("wrong # args: should be \"set varName ?newValue?\"")
	}
	name := args[1].String()
	if len(args) == 3 {
		if err := i.SetVar(cf, name, args[2]); err != nil {
			return nil, err
		}
		return args[2], nil
	}
	return i.GetVar(cf, name)
}

func biUnset(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	for _, a := range args[1:] {
		if err := i.UnsetVar(cf, a.String()); err != nil {
			return nil, err
		}
	}
	return NewEmpty(), nil
}

func biIncr(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, NewError("wrong # args: should be \"incr varName ?increment?\"")
	}
	delta := int64(1)
	if len(args) == 3 {
		n, err := AsInt(args[2])
		if err != nil {
			return nil, err
		}
		delta = n
	}
	name := args[1].String()
	var n int64
	if cur, err := i.GetVar(cf, name); err == nil {
		n, err = AsInt(cur)
		if err != nil {
			return nil, err
		}
	}
	nv := NewRep(IntRep(n + delta))
	if err := i.SetVar(cf, name, nv); err != nil {
		return nil, err
	}
	return nv, nil
}

func biGlobal(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	for _, a := range args[1:] {
		name := a.String()
		if err := i.LinkVar(cf, name, i.topFrame, name); err != nil {
			return nil, err
		}
	}
	return NewEmpty(), nil
}

// biLocal implements `local cmd ?arg ...?` (§3.4): it dispatches cmd as an
// ordinary command (typically `proc name args body`) and, if that command
// defined a new name, marks it to be undone when the enclosing procedure
// returns (popLocalScope, in eval.go's callProc).
func biLocal(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"local cmd ?arg ...?\"")
	}
	sub := args[1:]
	cmd := i.resolveCommand(sub[0])
	res, err := i.dispatch(cf, cmd, sub)
	if err != nil {
		return nil, err
	}
	if len(sub) >= 3 {
		i.markLocal(sub[1].String())
	}
	return res, nil
}

func biRename(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) != 3 {
		return nil, NewError("wrong # args: should be \"rename oldName newName\"")
	}
	if err := i.RenameCommand(args[1].String(), args[2].String()); err != nil {
		return nil, err
	}
	return NewEmpty(), nil
}

func biProc(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) != 4 {
		return nil, NewError("wrong # args: should be \"proc name args body\"")
	}
	name := args[1].String()
	params, req, opt, argsPos, err := parseParamList(args[2])
	if err != nil {
		return nil, err
	}
	proc := &Procedure{name: name, params: params, argsPos: argsPos, body: args[3], arglist: args[2], reqArity: req, optArity: opt}
	i.DefineProc(name, proc)
	return NewEmpty(), nil
}

// biReturn implements `return ?-code code? ?-level n? ?value?` (§3.4, §7).
// -level is accepted for compatibility but this interpreter's call stack
// always unwinds exactly one procedure frame per return, since tailcall
// (not a manual -level N) is the mechanism for skipping frames (§4.7).
func biReturn(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	val := NewEmpty()
	code := CodeReturn
	idx := 1
	for idx+1 < len(args) {
		switch args[idx].String() {
		case "-code":
			code = parseReturnCode(args[idx+1].String())
			idx += 2
		case "-level":
			idx += 2
		default:
			idx = len(args)
		}
	}
	if idx < len(args) {
		val = args[idx]
	}
	if code == CodeError {
		return nil, NewError("%s", val.String())
	}
	return nil, controlSignal{code: code, val: val}
}

func parseReturnCode(s string) Code {
	switch s {
	case "ok":
		return CodeOK
	case "error":
		return CodeError
	case "return":
		return CodeReturn
	case "break":
		return CodeBreak
	case "continue":
		return CodeContinue
	}
	if n, err := parseInt(s); err == nil {
		return Code(n)
	}
	return CodeReturn
}

func biCatch(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 || len(args) > 4 {
		return nil, NewError("wrong # args: should be \"catch script ?resultVarName? ?optionsVarName?\"")
	}
	res, err := i.evalScriptSource(cf, args[1].String(), "")
	code := CodeOK
	result := res
	switch e := err.(type) {
	case nil:
	case controlSignal:
		code = e.code
		result = e.val
	case *ScriptError:
		code = CodeError
		result = NewString(e.Message)
	default:
		return nil, err // internal error: not catchable
	}
	if len(args) >= 3 {
		if err := i.SetVar(cf, args[2].String(), result); err != nil {
			return nil, err
		}
	}
	if len(args) == 4 {
		opts := NewDictRep()
		opts.Set("-code", NewRep(IntRep(int64(code))))
		opts.Set("-level", NewRep(IntRep(0)))
		if se, ok := err.(*ScriptError); ok {
			opts.Set("-errorinfo", NewString(se.FormatTrace()+se.Message))
			opts.Set("-errorcode", NewRep(ListRep(stringsToValues(se.ErrorCode))))
		}
		if err := i.SetVar(cf, args[3].String(), NewRep(opts)); err != nil {
			return nil, err
		}
	}
	return NewRep(IntRep(int64(code))), nil
}

func frameAtLevel(cf *CallFrame, n int) *CallFrame {
	f := cf
	for k := 0; k < n && f.parent != nil; k++ {
		f = f.parent
	}
	return f
}

func biUplevel(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"uplevel ?level? script\"")
	}
	target := cf.parent
	if target == nil {
		target = i.topFrame
	}
	scriptIdx := 1
	if args[1].String() == "#0" {
		target = i.topFrame
		scriptIdx = 2
	} else if n, err := AsInt(args[1]); err == nil {
		target = frameAtLevel(cf, int(n))
		scriptIdx = 2
	}
	if scriptIdx >= len(args) {
		return nil, NewError("wrong # args: should be \"uplevel ?level? script\"")
	}
	return i.evalScriptSource(target, args[scriptIdx].String(), "")
}

func biUpvar(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	idx := 1
	target := cf.parent
	if target == nil {
		target = i.topFrame
	}
	if len(args) > 1 {
		if args[1].String() == "#0" {
			target = i.topFrame
			idx = 2
		} else if n, err := AsInt(args[1]); err == nil {
			target = frameAtLevel(cf, int(n))
			idx = 2
		}
	}
	rest := args[idx:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return nil, NewError("wrong # args: should be \"upvar ?level? otherVar localVar ?otherVar localVar ...?\"")
	}
	for k := 0; k < len(rest); k += 2 {
		if err := i.LinkVar(cf, rest[k+1].String(), target, rest[k].String()); err != nil {
			return nil, err
		}
	}
	return NewEmpty(), nil
}

func biTailcall(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"tailcall command ?arg ...?\"")
	}
	return nil, controlSignal{code: codeEval, val: NewRep(ListRep(append([]*Value(nil), args[1:]...)))}
}

func joinedArgSource(args []*Value) string {
	if len(args) == 1 {
		return args[0].String()
	}
	parts := make([]string, len(args))
	for k, a := range args {
		parts[k] = a.String()
	}
	return strings.Join(parts, " ")
}

func biEval(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"eval arg ?arg ...?\"")
	}
	return i.evalScriptSource(cf, joinedArgSource(args[1:]), "")
}

func biExpr(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"expr arg ?arg ...?\"")
	}
	target := args[1]
	if len(args) > 2 {
		target = NewString(joinedArgSource(args[1:]))
	}
	prog, err := i.exprProgramOf(target)
	if err != nil {
		return nil, err
	}
	return i.EvalExprProgram(cf, prog)
}

func biSubst(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	noVar, noCmd, noEsc := false, false, false
	idx := 1
	for idx < len(args)-1 {
		s := args[idx].String()
		if s != "-nobackslashes" && s != "-nocommands" && s != "-novariables" {
			break
		}
		switch s {
		case "-nobackslashes":
			noEsc = true
		case "-nocommands":
			noCmd = true
		case "-novariables":
			noVar = true
		}
		idx++
	}
	if idx != len(args)-1 {
		return nil, NewError("wrong # args: should be \"subst ?-nobackslashes? ?-nocommands? ?-novariables? string\"")
	}
	return i.substString(cf, args[idx].String(), noVar, noCmd, noEsc)
}

func stringsToValues(ss []string) []*Value {
	out := make([]*Value, len(ss))
	for k, s := range ss {
		out[k] = NewString(s)
	}
	return out
}

func biInfo(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 {
		return nil, NewError("wrong # args: should be \"info subcommand ?arg ...?\"")
	}
	switch args[1].String() {
	case "commands":
		return NewRep(ListRep(stringsToValues(i.CommandNames(false)))), nil
	case "procs":
		return NewRep(ListRep(stringsToValues(i.CommandNames(true)))), nil
	case "exists":
		if len(args) != 3 {
			return nil, NewError("wrong # args: should be \"info exists varName\"")
		}
		_, err := i.GetVar(cf, args[2].String())
		return boolValue(err == nil), nil
	case "level":
		if len(args) == 2 {
			return NewRep(IntRep(int64(cf.level))), nil
		}
		return nil, NewError("info level: only the no-argument form is supported")
	case "body":
		if len(args) != 3 {
			return nil, NewError("wrong # args: should be \"info body procName\"")
		}
		cmd := i.LookupCommand(args[2].String())
		if cmd == nil || cmd.proc == nil {
			return nil, NewError("%q isn't a procedure", args[2].String())
		}
		return cmd.proc.body, nil
	case "args":
		if len(args) != 3 {
			return nil, NewError("wrong # args: should be \"info args procName\"")
		}
		cmd := i.LookupCommand(args[2].String())
		if cmd == nil || cmd.proc == nil {
			return nil, NewError("%q isn't a procedure", args[2].String())
		}
		names := make([]*Value, len(cmd.proc.params))
		for k, p := range cmd.proc.params {
			names[k] = NewString(p.Name)
		}
		return NewRep(ListRep(names)), nil
	}
	return nil, NewError("unknown or ambiguous subcommand %q: must be args, body, commands, exists, level, or procs", args[1].String())
}

func biPuts(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, NewError("wrong # args: should be \"puts ?-nonewline? string\"")
	}
	nl := true
	idx := 1
	if args[1].String() == "-nonewline" {
		nl = false
		idx = 2
	}
	if idx >= len(args) {
		return nil, NewError("wrong # args: should be \"puts ?-nonewline? string\"")
	}
	s := args[idx].String()
	if nl {
		s += "\n"
	}
	io.WriteString(i.stdout, s)
	return NewEmpty(), nil
}

// biError implements `error message ?errorInfo? ?errorCode?` (§3.4, §7):
// raises a user error that `catch` can intercept.
func biError(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 || len(args) > 4 {
		return nil, NewError("wrong # args: should be \"error message ?errorInfo? ?errorCode?\"")
	}
	se := NewError("%s", args[1].String())
	if len(args) == 4 {
		se.ErrorCode = strings.Fields(args[3].String())
	}
	return nil, se
}

func biRef(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 3 || len(args) > 4 {
		return nil, NewError("wrong # args: should be \"ref value tag ?finalizer?\"")
	}
	finalizer := ""
	if len(args) == 4 {
		finalizer = args[3].String()
	}
	return i.NewReference(args[1], args[2].String(), finalizer), nil
}

func biGetref(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) != 2 {
		return nil, NewError("wrong # args: should be \"getref reference\"")
	}
	return i.GetRef(args[1].String())
}

func biSetref(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) != 3 {
		return nil, NewError("wrong # args: should be \"setref reference value\"")
	}
	if err := i.SetRef(args[1].String(), args[2]); err != nil {
		return nil, err
	}
	return args[2], nil
}

func biFinalize(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, NewError("wrong # args: should be \"finalize reference ?finalizerCommand?\"")
	}
	if len(args) == 3 {
		if err := i.SetFinalizer(args[1].String(), args[2].String()); err != nil {
			return nil, err
		}
		return NewEmpty(), nil
	}
	f, err := i.GetFinalizer(args[1].String())
	if err != nil {
		return nil, err
	}
	return NewString(f), nil
}

func biCollect(i *Interp, cf *CallFrame, args []*Value) (*Value, error) {
	return NewRep(IntRep(int64(i.Collect()))), nil
}
