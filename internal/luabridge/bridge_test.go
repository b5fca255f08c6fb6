package luabridge

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	lua "github.com/yuin/gopher-lua"
)

func newBridge(t *testing.T) *Bridge {
	t.Helper()
	L := NewState()
	t.Cleanup(L.Close)
	return New(L)
}

func TestBridge_RoundTrip(t *testing.T) {
	b := newBridge(t)
	in := map[string]any{
		"name":  "grid",
		"count": int64(3),
		"ratio": 0.5,
		"ok":    true,
		"items": []any{int64(1), "two", map[string]any{"three": int64(3)}},
	}
	got := b.ToGo(b.ToLua(in))
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBridge_ReflectsTypedCollections(t *testing.T) {
	b := newBridge(t)
	got := b.ToGo(b.ToLua(map[string][]int{"pages": {1, 2}}))
	want := map[string]any{"pages": []any{int64(1), int64(2)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if v := b.ToLua(errors.New("boom")); v.String() != "boom" {
		t.Fatalf("error conversion: got %v", v)
	}
}

func TestBridge_ToSliceAndMap(t *testing.T) {
	b := newBridge(t)
	if err := b.L.DoString(`empty = {}; seq = {10, 20}; rec = {a = 1}`); err != nil {
		t.Fatalf("do string: %v", err)
	}

	slice, err := b.ToSlice(b.L.GetGlobal("empty"))
	if err != nil || len(slice) != 0 {
		t.Fatalf("empty slice: %v %v", slice, err)
	}
	slice, err = b.ToSlice(b.L.GetGlobal("seq"))
	if err != nil {
		t.Fatalf("seq: %v", err)
	}
	if diff := cmp.Diff([]any{int64(10), int64(20)}, slice); diff != "" {
		t.Fatalf("seq mismatch (-want +got):\n%s", diff)
	}
	if _, err := b.ToSlice(b.L.GetGlobal("rec")); err == nil {
		t.Fatal("expected error converting a record to a slice")
	}

	m, err := b.ToMap(b.L.GetGlobal("rec"))
	if err != nil || m["a"] != int64(1) {
		t.Fatalf("rec map: %v %v", m, err)
	}
}

func TestBridge_Call(t *testing.T) {
	b := newBridge(t)
	if err := b.L.DoString(`
function add(a, b) return a + b, "done" end
function fail() error("nope") end
`); err != nil {
		t.Fatalf("do string: %v", err)
	}

	results, err := b.Call(b.L.GetGlobal("add").(*lua.LFunction), 2, 3)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if diff := cmp.Diff([]any{int64(5), "done"}, results); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}

	top := b.L.GetTop()
	if _, err := b.Call(b.L.GetGlobal("fail").(*lua.LFunction)); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected lua error, got %v", err)
	}
	if b.L.GetTop() != top {
		t.Fatal("stack not restored after error")
	}
}

func TestNewState_IsRestricted(t *testing.T) {
	L := NewState()
	defer L.Close()

	for _, name := range []string{"io", "os", "debug", "package", "dofile", "loadfile", "load", "require"} {
		if L.GetGlobal(name) != lua.LNil {
			t.Errorf("%s should not be available", name)
		}
	}
	if err := L.DoString(`x = string.upper("a") .. table.concat({"b"}) .. math.floor(1.5)`); err != nil {
		t.Fatalf("safe libraries missing: %v", err)
	}
	if got := L.GetGlobal("x").String(); got != "Ab1" {
		t.Fatalf("x: got %q", got)
	}
}
