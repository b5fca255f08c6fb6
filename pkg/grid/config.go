package grid

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-datagrid/pkg/dom"
)

// Recognised option names. Plugins may read any other name through the same
// cascade.
const (
	OptionURL              = "url"
	OptionID               = "id"
	OptionTarget           = "target"
	OptionTemplate         = "template"
	OptionFetchMethod      = "fetchMethod"
	OptionFetchHeaders     = "fetchHeaders"
	OptionFetchBody        = "fetchBody"
	OptionFetchMode        = "fetchMode"
	OptionFetchCredentials = "fetchCredentials"
	OptionResultsPath      = "resultsPath"
	OptionMetaPath         = "metaPath"
	OptionTheme            = "theme"
	OptionThemeVariant     = "themeVariant"
)

// Options holds configuration keyed by camelCase option name.
type Options map[string]any

// DefaultOptions returns the class-wide defaults.
func DefaultOptions() Options {
	return Options{
		OptionFetchMethod:      "GET",
		OptionFetchHeaders:     map[string]string{},
		OptionFetchMode:        "same-origin",
		OptionFetchCredentials: "same-origin",
	}
}

func (o Options) clone() Options {
	out := make(Options, len(o))
	for key, value := range o {
		out[key] = value
	}
	return out
}

// Source identifies which layer of the cascade answered a lookup.
type Source int

const (
	SourceFallback Source = iota
	SourceDefault
	SourceOption
	SourceAttribute
)

func (s Source) String() string {
	switch s {
	case SourceAttribute:
		return "attribute"
	case SourceOption:
		return "option"
	case SourceDefault:
		return "default"
	default:
		return "fallback"
	}
}

// ConfigResolver resolves option names against the container's data-
// attributes, the instance options and the class defaults, in that order.
// Nothing is cached: attributes may change between reads.
type ConfigResolver struct {
	container *dom.Node
	options   Options
	defaults  Options
}

// NewConfigResolver builds a resolver. Any source may be nil.
func NewConfigResolver(container *dom.Node, options, defaults Options) *ConfigResolver {
	return &ConfigResolver{
		container: container,
		options:   options,
		defaults:  defaults,
	}
}

// Resolve returns the first non-empty value for name, or fallback.
func (r *ConfigResolver) Resolve(name string, fallback any) any {
	value, _ := r.Explain(name, fallback)
	return value
}

// Explain resolves name and reports which source answered.
func (r *ConfigResolver) Explain(name string, fallback any) (any, Source) {
	if r.container != nil {
		if value, ok := r.container.Data(name); ok && value != "" {
			return value, SourceAttribute
		}
	}
	if value, ok := r.options[name]; ok && !isEmpty(value) {
		return value, SourceOption
	}
	if value, ok := r.defaults[name]; ok && !isEmpty(value) {
		return value, SourceDefault
	}
	return fallback, SourceFallback
}

// String resolves name as a string.
func (r *ConfigResolver) String(name, fallback string) string {
	switch v := r.Resolve(name, nil).(type) {
	case nil:
		return fallback
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int resolves name as an integer; unparsable values yield fallback.
func (r *ConfigResolver) Int(name string, fallback int) int {
	switch v := r.Resolve(name, nil).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fallback
		}
		return n
	default:
		return fallback
	}
}

// StringMap resolves name as a string mapping. String values (typically
// data attributes) are parsed as YAML, which also accepts JSON objects.
func (r *ConfigResolver) StringMap(name string) (map[string]string, error) {
	switch v := r.Resolve(name, nil).(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		out := make(map[string]string, len(v))
		for key, value := range v {
			out[key] = value
		}
		return out, nil
	case map[string]any:
		return stringifyMap(v), nil
	case string:
		var parsed map[string]any
		if err := yaml.Unmarshal([]byte(v), &parsed); err != nil {
			return map[string]string{}, fmt.Errorf("grid: option %q: %w", name, err)
		}
		return stringifyMap(parsed), nil
	default:
		return map[string]string{}, fmt.Errorf("grid: option %q: unsupported type %T", name, v)
	}
}

func stringifyMap(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		if value == nil {
			out[key] = ""
			continue
		}
		out[key] = fmt.Sprint(value)
	}
	return out
}

// isEmpty mirrors the cascade's notion of "not set": nil or the empty
// string. Zero numbers and false are values.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		return false
	}
}
