// Package luabridge converts values between Go and gopher-lua and builds the
// restricted Lua states used by script plugins.
package luabridge

import (
	"fmt"
	"reflect"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Bridge converts values for one Lua state.
type Bridge struct {
	L *lua.LState
}

// New returns a bridge bound to L.
func New(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGo converts a Lua value. Integral numbers become int64, sequences become
// []any and other tables map[string]any. Functions convert to nil.
func (b *Bridge) ToGo(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func (b *Bridge) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		out := make([]any, n)
		for i := 1; i <= n; i++ {
			out[i-1] = b.toGo(t.RawGetInt(i), visited)
		}
		return out
	}

	out := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = kv.String()
		default:
			key = k.String()
		}
		out[key] = b.toGo(v, visited)
	})
	return out
}

// ToSlice converts a Lua value expected to hold a sequence. Empty tables
// yield an empty slice.
func (b *Bridge) ToSlice(lv lua.LValue) ([]any, error) {
	switch v := b.ToGo(lv).(type) {
	case []any:
		return v, nil
	case map[string]any:
		if len(v) == 0 {
			return []any{}, nil
		}
		return nil, fmt.Errorf("luabridge: expected a sequence, got a table with keys %v", keys(v))
	case nil:
		return []any{}, nil
	default:
		return nil, fmt.Errorf("luabridge: expected a sequence, got %T", v)
	}
}

// ToMap converts a Lua value expected to hold a table. Sequences are keyed
// by their 1-based index.
func (b *Bridge) ToMap(lv lua.LValue) (map[string]any, error) {
	switch v := b.ToGo(lv).(type) {
	case map[string]any:
		return v, nil
	case []any:
		out := make(map[string]any, len(v))
		for i, item := range v {
			out[fmt.Sprint(i+1)] = item
		}
		return out, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("luabridge: expected a table, got %T", v)
	}
}

// ToLua converts a Go value.
func (b *Bridge) ToLua(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case error:
		return lua.LString(val.Error())
	case []any:
		t := b.L.CreateTable(len(val), 0)
		for i, item := range val {
			t.RawSetInt(i+1, b.ToLua(item))
		}
		return t
	case map[string]any:
		t := b.L.CreateTable(0, len(val))
		for key, item := range val {
			t.RawSetString(key, b.ToLua(item))
		}
		return t
	case map[string]string:
		t := b.L.CreateTable(0, len(val))
		for key, item := range val {
			t.RawSetString(key, lua.LString(item))
		}
		return t
	default:
		return b.reflectToLua(v)
	}
}

func (b *Bridge) reflectToLua(v any) lua.LValue {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return b.ToLua(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		t := b.L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.ToLua(rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		t := b.L.CreateTable(0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(b.ToLua(iter.Key().Interface()), b.ToLua(iter.Value().Interface()))
		}
		return t
	default:
		ud := b.L.NewUserData()
		ud.Value = v
		return ud
	}
}

// Call invokes fn with Go arguments and returns its results as Go values.
// Lua errors and panics raised inside fn are returned.
func (b *Bridge) Call(fn *lua.LFunction, args ...any) (results []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("luabridge: lua panic: %v", r)
		}
	}()

	top := b.L.GetTop()
	b.L.Push(fn)
	for _, arg := range args {
		b.L.Push(b.ToLua(arg))
	}
	if err := b.L.PCall(len(args), lua.MultRet, nil); err != nil {
		b.L.SetTop(top)
		return nil, err
	}

	n := b.L.GetTop() - top
	if n <= 0 {
		return nil, nil
	}
	results = make([]any, n)
	for i := 0; i < n; i++ {
		results[i] = b.ToGo(b.L.Get(top + i + 1))
	}
	b.L.Pop(n)
	return results, nil
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
