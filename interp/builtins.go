package interp

// registerBuiltins installs the full native command set an Interp starts
// with. Each family lives in its own file (builtins_core.go, _control.go,
// _list.go, _dict.go) the way gothird groups its opcode handlers by
// concern rather than in one monolithic switch.
func registerBuiltins(i *Interp) {
	registerCoreBuiltins(i)
	registerControlBuiltins(i)
	registerListBuiltins(i)
	registerDictBuiltins(i)
}
