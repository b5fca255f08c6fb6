package transport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Default payload paths.
const (
	ResultsPath = "results"
	MetaPath    = "meta"
)

// ErrMalformedResponse reports a body that is not JSON or lacks a results
// array.
var ErrMalformedResponse = errors.New("transport: malformed response")

// Payload is the decoded grid response.
type Payload struct {
	Results []any
	Meta    map[string]any
}

// Decode extracts results and meta from the default paths.
func Decode(body []byte) (Payload, error) {
	return DecodePaths(body, ResultsPath, MetaPath)
}

// DecodePaths extracts results and meta using gjson paths. A missing or
// non-object meta decodes to an empty map.
func DecodePaths(body []byte, resultsPath, metaPath string) (Payload, error) {
	if !gjson.ValidBytes(body) {
		return Payload{}, fmt.Errorf("%w: body is not valid JSON", ErrMalformedResponse)
	}

	results := gjson.GetBytes(body, resultsPath)
	if !results.IsArray() {
		return Payload{}, fmt.Errorf("%w: %q is not an array", ErrMalformedResponse, resultsPath)
	}

	payload := Payload{
		Results: toSlice(results),
		Meta:    map[string]any{},
	}
	if meta := gjson.GetBytes(body, metaPath); meta.IsObject() {
		payload.Meta = toMap(meta)
	}
	return payload, nil
}

// Value converts a gjson result into plain Go values. Integral numbers
// become int64 so templates print them without a fraction.
func Value(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return r.Str
	case gjson.Number:
		if !strings.ContainsAny(r.Raw, ".eE") {
			if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
				return i
			}
		}
		return r.Num
	case gjson.JSON:
		if r.IsArray() {
			return toSlice(r)
		}
		return toMap(r)
	default:
		return nil
	}
}

func toSlice(r gjson.Result) []any {
	out := make([]any, 0)
	r.ForEach(func(_, value gjson.Result) bool {
		out = append(out, Value(value))
		return true
	})
	return out
}

func toMap(r gjson.Result) map[string]any {
	out := make(map[string]any)
	r.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = Value(value)
		return true
	})
	return out
}
