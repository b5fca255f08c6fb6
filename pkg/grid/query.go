package grid

import (
	"fmt"
	"net/url"
	"strings"
)

// Query is an insertion-ordered set of request parameters. Setting an
// existing key keeps its position.
type Query struct {
	keys   []string
	values map[string]any
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{values: make(map[string]any)}
}

// Set stores value under key.
func (q *Query) Set(key string, value any) *Query {
	if _, exists := q.values[key]; !exists {
		q.keys = append(q.keys, key)
	}
	q.values[key] = value
	return q
}

// Get returns the value stored under key.
func (q *Query) Get(key string) (any, bool) {
	value, ok := q.values[key]
	return value, ok
}

// Delete removes key.
func (q *Query) Delete(key string) {
	if _, exists := q.values[key]; !exists {
		return
	}
	delete(q.values, key)
	for i, k := range q.keys {
		if k == key {
			q.keys = append(q.keys[:i], q.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (q *Query) Keys() []string {
	return append([]string(nil), q.keys...)
}

// Len reports the number of parameters.
func (q *Query) Len() int {
	return len(q.keys)
}

// Map returns a copy of the parameters.
func (q *Query) Map() map[string]any {
	out := make(map[string]any, len(q.values))
	for key, value := range q.values {
		out[key] = value
	}
	return out
}

// Encode serialises the parameters as percent-encoded key=value pairs joined
// by & in insertion order.
func (q *Query) Encode() string {
	parts := make([]string, 0, len(q.keys))
	for _, key := range q.keys {
		parts = append(parts, escape(key)+"="+escape(formatValue(q.values[key])))
	}
	return strings.Join(parts, "&")
}

// AppendTo joins the encoded parameters onto base.
func (q *Query) AppendTo(base string) string {
	if q.Len() == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			sep = ""
		}
	}
	return base + sep + q.Encode()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
