package grid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestQuery_EncodesInInsertionOrder(t *testing.T) {
	q := NewQuery().Set("page", 2).Set("limit", 10)
	if got := q.Encode(); got != "page=2&limit=10" {
		t.Fatalf("encode: got %q", got)
	}

	q.Set("page", 3)
	if diff := cmp.Diff([]string{"page", "limit"}, q.Keys()); diff != "" {
		t.Fatalf("re-set key moved (-want +got):\n%s", diff)
	}
	if got := q.Encode(); got != "page=3&limit=10" {
		t.Fatalf("encode after re-set: got %q", got)
	}
}

func TestQuery_PercentEncodes(t *testing.T) {
	q := NewQuery().Set("q", "a b&c").Set("sort by", "név")
	if got := q.Encode(); got != "q=a%20b%26c&sort%20by=n%C3%A9v" {
		t.Fatalf("encode: got %q", got)
	}
}

func TestQuery_AppendTo(t *testing.T) {
	cases := []struct {
		name string
		base string
		q    *Query
		want string
	}{
		{name: "empty query", base: "/api", q: NewQuery(), want: "/api"},
		{name: "plain base", base: "/api", q: NewQuery().Set("page", 1), want: "/api?page=1"},
		{name: "base with query", base: "/api?x=1", q: NewQuery().Set("page", 1), want: "/api?x=1&page=1"},
		{name: "trailing separator", base: "/api?", q: NewQuery().Set("page", 1), want: "/api?page=1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.q.AppendTo(tc.base); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestQuery_Delete(t *testing.T) {
	q := NewQuery().Set("a", 1).Set("b", 2).Set("c", 3)
	q.Delete("b")
	if got := q.Encode(); got != "a=1&c=3" {
		t.Fatalf("encode: got %q", got)
	}
	if _, ok := q.Get("b"); ok {
		t.Fatal("deleted key still present")
	}
	if q.Len() != 2 {
		t.Fatalf("len: got %d", q.Len())
	}
}
