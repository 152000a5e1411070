package interp

import "strings"

// NativeFunc implements a built-in command (§3.4). args includes argv[0],
// the command name. A non-nil error should normally be a *ScriptError or
// a controlSignal (break/continue/return/...); anything else is treated
// as an internal error.
type NativeFunc func(i *Interp, cf *CallFrame, args []*Value) (*Value, error)

// Param is one formal parameter of a procedure.
type Param struct {
	Name    string
	Default *Value // nil if required
	IsRef   bool   // "&name" triggers an automatic upvar of the caller's variable
}

// Procedure is a user-defined command body (§3.4).
type Procedure struct {
	name     string
	params   []Param
	argsPos  int // index of a catch-all "args" parameter, or -1
	body     *Value
	arglist  *Value
	static   *DictRep
	reqArity int
	optArity int
	upcall   int
}

// Command is one entry of the commands table (§3.4): either native or a
// procedure, reference counted because the evaluator holds a reference
// across a dispatch even if the command is concurrently renamed/deleted.
type Command struct {
	name     string
	native   NativeFunc
	priv     interface{}
	proc     *Procedure
	prevCmd  *Command // shadowed definition, restored when `local` scope exits
	refCount int
}

func (c *Command) IncrRef() { c.refCount++ }
func (c *Command) DecrRef() { c.refCount-- }

// RegisterNative installs a native command, bumping the procedure epoch so
// cached CmdCacheRep lookups of this name are invalidated.
func (i *Interp) RegisterNative(name string, fn NativeFunc) {
	i.RegisterNativeData(name, fn, nil)
}

// RegisterNativeData installs a native command with opaque private data,
// retrievable by the command implementation via cmd.priv (§6 embedding API
// "command ops: create (native)").
func (i *Interp) RegisterNativeData(name string, fn NativeFunc, priv interface{}) {
	i.commands[name] = &Command{name: name, native: fn, priv: priv}
	i.bumpProcEpoch()
}

// DefineProc installs (or shadows, via `local`) a user-defined procedure.
func (i *Interp) DefineProc(name string, proc *Procedure) {
	existing := i.commands[name]
	cmd := &Command{name: name, proc: proc}
	if i.inLocalScope() {
		cmd.prevCmd = existing
		i.markLocal(name)
	}
	i.commands[name] = cmd
	i.bumpProcEpoch()
}

// DeleteCommand removes a command, restoring any shadowed definition.
func (i *Interp) DeleteCommand(name string) bool {
	cmd, ok := i.commands[name]
	if !ok {
		return false
	}
	if cmd.prevCmd != nil {
		i.commands[name] = cmd.prevCmd
	} else {
		delete(i.commands, name)
	}
	i.bumpProcEpoch()
	return true
}

// RenameCommand renames src to dst ("" dst deletes src).
func (i *Interp) RenameCommand(src, dst string) error {
	cmd, ok := i.commands[src]
	if !ok {
		return NewError("can't rename %q: command doesn't exist", src)
	}
	delete(i.commands, src)
	if dst != "" {
		i.commands[dst] = cmd
	}
	i.bumpProcEpoch()
	return nil
}

// LookupCommand resolves name directly against the commands table (no
// inline cache consultation -- that happens in eval.go's dispatch path,
// which is the only place that has access to the name Value to cache on).
func (i *Interp) LookupCommand(name string) *Command {
	return i.commands[name]
}

func (i *Interp) bumpProcEpoch() { i.procEpoch++ }

// CommandCount returns the number of currently defined commands, for -dump.
func (i *Interp) CommandCount() int { return len(i.commands) }

// CommandNames returns all currently defined command names, for `info
// commands`/`info procs`.
func (i *Interp) CommandNames(procsOnly bool) []string {
	out := make([]string, 0, len(i.commands))
	for name, cmd := range i.commands {
		if procsOnly && cmd.proc == nil {
			continue
		}
		out = append(out, name)
	}
	return out
}

// parseParamList parses a proc arglist value into Params, computing
// reqArity/optArity/argsPos (§3.4, §4.8).
func parseParamList(arglist *Value) ([]Param, int, int, int, error) {
	items, err := AsList(arglist)
	if err != nil {
		return nil, 0, 0, -1, err
	}
	var params []Param
	req, opt, argsPos := 0, 0, -1
	for idx, it := range items {
		sub, err := AsList(it)
		if err == nil && len(sub) >= 1 {
			if len(sub) >= 2 {
				name := sub[0].String()
				params = append(params, Param{Name: trimRef(name), IsRef: strings.HasPrefix(name, "&"), Default: sub[1]})
				opt++
				continue
			}
		}
		name := it.String()
		if name == "args" && idx == len(items)-1 {
			argsPos = len(params)
			params = append(params, Param{Name: "args"})
			continue
		}
		params = append(params, Param{Name: trimRef(name), IsRef: strings.HasPrefix(name, "&")})
		req++
	}
	return params, req, opt, argsPos, nil
}

func trimRef(name string) string { return strings.TrimPrefix(name, "&") }
