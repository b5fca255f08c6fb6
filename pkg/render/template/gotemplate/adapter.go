package gotemplate

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-datagrid/pkg/render/template"
)

// DefaultExtension is appended to template names that carry none.
const DefaultExtension = ".tpl"

// ErrNoTemplates reports a named render on an engine built without WithDir or
// WithFS.
var ErrNoTemplates = errors.New("gotemplate: no template source configured")

// empty backs engines that only render inline source.
var empty embed.FS

// Option configures the pongo2 adapter before construction.
type Option func(*config)

type config struct {
	dir       string
	files     fs.FS
	extension string
	globals   map[string]any
}

// WithDir loads named templates from a directory. Names are resolved inside
// it; paths escaping the directory are rejected.
func WithDir(dir string) Option {
	return func(cfg *config) {
		cfg.dir = strings.TrimSpace(dir)
	}
}

// WithFS loads named templates from files.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.files = files
	}
}

// WithExtension overrides DefaultExtension.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.extension = ext
	}
}

// WithGlobals seeds values every template can read.
func WithGlobals(values map[string]any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(values))
		}
		for key, value := range values {
			cfg.globals[key] = value
		}
	}
}

// Engine renders grid templates with pongo2. Inline sources are compiled
// once and cached by content; named templates go through the set's cache.
type Engine struct {
	mu      sync.RWMutex
	set     *pongo2.TemplateSet
	inline  map[string]*pongo2.Template
	ext     string
	hasFile bool
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New builds an Engine. Without WithDir or WithFS it renders inline source
// only and every Lookup fails with ErrNoTemplates.
func New(options ...Option) (*Engine, error) {
	cfg := &config{extension: DefaultExtension}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	files := cfg.files
	if cfg.dir != "" {
		info, err := os.Stat(cfg.dir)
		if err != nil {
			return nil, fmt.Errorf("gotemplate: template dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("gotemplate: template dir %q is not a directory", cfg.dir)
		}
		files = os.DirFS(cfg.dir)
	}

	source := fs.FS(empty)
	if files != nil {
		source = files
	}

	e := &Engine{
		set:     pongo2.NewSet("datagrid", pongo2.NewFSLoader(source)),
		inline:  make(map[string]*pongo2.Template),
		ext:     cfg.extension,
		hasFile: files != nil,
	}
	registerFilters()

	if err := e.GlobalContext(cfg.globals); err != nil {
		return nil, err
	}
	return e, nil
}

// RenderString renders inline template source.
func (e *Engine) RenderString(source string, data any, out ...io.Writer) (string, error) {
	tmpl, err := e.compile(source)
	if err != nil {
		return "", err
	}
	return e.execute(tmpl, data, out)
}

// Lookup loads name, adding the engine extension when it has none, and
// reports whether it parsed.
func (e *Engine) Lookup(name string) error {
	_, err := e.named(name)
	return err
}

// RenderTemplate renders the named template.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	tmpl, err := e.named(name)
	if err != nil {
		return "", err
	}
	rendered, err := e.execute(tmpl, data, out)
	if err != nil {
		return "", fmt.Errorf("gotemplate: template %q: %w", name, err)
	}
	return rendered, nil
}

// RegisterFilter makes fn available to every template as name. Filters are
// process-wide in pongo2, so a name can only be registered once.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("gotemplate: filter name and function required")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("gotemplate: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, func(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var arg any
		if param != nil {
			arg = param.Interface()
		}
		result, err := fn(in.Interface(), arg)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	})
}

// GlobalContext merges data into the values shared by every render. data is
// a map or anything that encodes to a JSON object.
func (e *Engine) GlobalContext(data any) error {
	if data == nil {
		return nil
	}
	values, err := toContext(data)
	if err != nil {
		return fmt.Errorf("gotemplate: global context: %w", err)
	}
	e.mu.Lock()
	e.set.Globals.Update(values)
	e.mu.Unlock()
	return nil
}

func (e *Engine) named(name string) (*pongo2.Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("gotemplate: template name required")
	}
	if !e.hasFile {
		return nil, fmt.Errorf("%w: %q", ErrNoTemplates, name)
	}
	if !strings.HasSuffix(name, e.ext) {
		name += e.ext
	}
	tmpl, err := e.set.FromCache(name)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: load %q: %w", name, err)
	}
	return tmpl, nil
}

func (e *Engine) compile(source string) (*pongo2.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.inline[source]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if tmpl, ok := e.inline[source]; ok {
		return tmpl, nil
	}
	tmpl, err := e.set.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: parse template string: %w", err)
	}
	e.inline[source] = tmpl
	return tmpl, nil
}

func (e *Engine) execute(tmpl *pongo2.Template, data any, out []io.Writer) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: convert data: %w", err)
	}

	var buf bytes.Buffer
	e.mu.RLock()
	err = tmpl.ExecuteWriter(ctx, &buf)
	e.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("gotemplate: execute: %w", err)
	}

	rendered := buf.String()
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

// toContext accepts maps as they are and round-trips anything else through
// JSON, so structs render by their json field names.
func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return v, nil
	case map[string]any:
		return pongo2.Context(v), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := pongo2.Context{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func registerFilters() {
	if !pongo2.FilterExists("tojson") {
		_ = pongo2.RegisterFilter("tojson", filterToJSON)
	}
}

func filterToJSON(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	payload, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:tojson", OrigError: err}
	}
	return pongo2.AsSafeValue(string(payload)), nil
}
