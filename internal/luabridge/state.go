package luabridge

import (
	lua "github.com/yuin/gopher-lua"
)

// blockedGlobals load code from disk or strings and are removed from every
// state.
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// NewState returns a Lua state with only the base, table, string and math
// libraries. io, os, debug and package are never opened.
func NewState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
