package luaplugin

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/goliatone/go-datagrid/pkg/dom"
	"github.com/goliatone/go-datagrid/pkg/grid"
)

func (rt *runtime) newAPI() *lua.LTable {
	api := rt.L.NewTable()
	funcs := map[string]lua.LGFunction{
		"id":          rt.luaID,
		"key":         rt.luaKey,
		"option":      rt.luaOption,
		"request_url": rt.luaRequestURL,
		"query":       rt.luaQuery,
		"set_query":   rt.luaSetQuery,
		"results":     rt.luaResults,
		"set_results": rt.luaSetResults,
		"meta":        rt.luaMeta,
		"set_meta":    rt.luaSetMeta,
		"extra":       rt.luaExtra,
		"set_extra":   rt.luaSetExtra,
		"fire":        rt.luaFire,
		"on":          rt.luaOn,
		"on_action":   rt.luaOnAction,
		"run":         rt.luaRun,
		"refresh":     rt.luaRefresh,
		"log":         rt.luaLog,
	}
	for name, fn := range funcs {
		api.RawSetString(name, rt.L.NewFunction(fn))
	}
	return api
}

func (rt *runtime) luaID(L *lua.LState) int {
	L.Push(lua.LString(rt.grid.ID()))
	return 1
}

func (rt *runtime) luaKey(L *lua.LState) int {
	L.Push(lua.LString(rt.grid.Key()))
	return 1
}

func (rt *runtime) luaOption(L *lua.LState) int {
	name := L.CheckString(1)
	fallback := rt.bridge.ToGo(L.Get(2))
	L.Push(rt.bridge.ToLua(rt.grid.Option(name, fallback)))
	return 1
}

func (rt *runtime) luaRequestURL(L *lua.LState) int {
	L.Push(lua.LString(rt.grid.RequestURL()))
	return 1
}

func (rt *runtime) luaQuery(L *lua.LState) int {
	L.Push(rt.bridge.ToLua(rt.grid.Query().Map()))
	return 1
}

func (rt *runtime) luaSetQuery(L *lua.LState) int {
	key := L.CheckString(1)
	value := rt.bridge.ToGo(L.Get(2))
	if value == nil {
		rt.grid.Query().Delete(key)
		return 0
	}
	rt.grid.SetQuery(key, value)
	return 0
}

func (rt *runtime) luaResults(L *lua.LState) int {
	L.Push(rt.bridge.ToLua(rt.grid.Fetched()))
	return 1
}

func (rt *runtime) luaSetResults(L *lua.LState) int {
	records, err := rt.bridge.ToSlice(L.CheckTable(1))
	if err != nil {
		L.RaiseError("set_results: %s", err.Error())
		return 0
	}
	rt.grid.SetFetched(records)
	return 0
}

func (rt *runtime) luaMeta(L *lua.LState) int {
	L.Push(rt.bridge.ToLua(rt.grid.Meta()))
	return 1
}

func (rt *runtime) luaSetMeta(L *lua.LState) int {
	meta, err := rt.bridge.ToMap(L.CheckTable(1))
	if err != nil {
		L.RaiseError("set_meta: %s", err.Error())
		return 0
	}
	rt.grid.SetMeta(meta)
	return 0
}

func (rt *runtime) luaExtra(L *lua.LState) int {
	L.Push(rt.bridge.ToLua(rt.grid.Extra()))
	return 1
}

func (rt *runtime) luaSetExtra(L *lua.LState) int {
	rt.grid.SetExtra(L.CheckString(1), rt.bridge.ToGo(L.Get(2)))
	return 0
}

func (rt *runtime) luaFire(L *lua.LState) int {
	name := L.CheckString(1)
	detail, err := rt.bridge.ToMap(L.Get(2))
	if err != nil {
		L.RaiseError("fire: %s", err.Error())
		return 0
	}
	rt.grid.Fire(name, detail)
	return 0
}

func (rt *runtime) luaOn(L *lua.LState) int {
	event := L.CheckString(1)
	fn := L.CheckFunction(2)
	rt.grid.On(event, func(ev *dom.Event) {
		rt.dispatch(fn, "event", event, ev.Detail)
	})
	return 0
}

func (rt *runtime) luaOnAction(L *lua.LState) int {
	event := L.CheckString(1)
	action := L.CheckString(2)
	fn := L.CheckFunction(3)
	rt.grid.Listen([]string{event}, action, func(ev *dom.Event) {
		rt.dispatch(fn, "action", action, ev.Detail, ev.Target.Dataset())
	})
	return 0
}

func (rt *runtime) dispatch(fn *lua.LFunction, kind, name string, args ...any) {
	if _, err := rt.call(fn, args...); err != nil {
		rt.log.Error(err, "lua handler failed", kind, name)
	}
}

func (rt *runtime) luaRun(L *lua.LState) int {
	return pushError(L, rt.grid.Run(rt.grid.Context()))
}

func (rt *runtime) luaRefresh(L *lua.LState) int {
	return pushError(L, rt.grid.Refresh())
}

func (rt *runtime) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	var kv []any
	for i := 2; i+1 <= L.GetTop(); i += 2 {
		kv = append(kv, L.Get(i).String(), rt.bridge.ToGo(L.Get(i+1)))
	}
	rt.log.Info(msg, kv...)
	return 0
}

func pushError(L *lua.LState, err error) int {
	if err == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(err.Error()))
	return 1
}

var _ grid.Initializer = (*script)(nil)
var _ grid.Modifier = (*modifyingScript)(nil)
