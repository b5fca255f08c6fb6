// Package luaplugin runs grid plugins written in Lua.
//
// A script may define global functions init(grid) and modify(grid); both are
// optional. The grid table handed to them exposes the instance:
//
//	grid.id()                     grid.key()
//	grid.option(name, fallback)   grid.request_url()
//	grid.query()                  grid.set_query(key, value)
//	grid.results()                grid.set_results(list)
//	grid.meta()                   grid.set_meta(table)
//	grid.extra()                  grid.set_extra(key, value)
//	grid.fire(name, detail)       grid.on(event, fn(detail))
//	grid.on_action(event, action, fn(detail, dataset))
//	grid.run()                    grid.refresh()
//	grid.log(message, key, value, ...)
//
// run and refresh return nil or an error message. Each grid gets its own Lua
// state; scripts only see the base, table, string and math libraries.
package luaplugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/goliatone/go-datagrid/internal/luabridge"
	"github.com/goliatone/go-datagrid/pkg/grid"
)

// ErrEmptyName is returned when a script has no plugin name.
var ErrEmptyName = errors.New("luaplugin: name is required")

// DefaultTimeout bounds a single call into a script.
const DefaultTimeout = 2 * time.Second

// Option configures a Script.
type Option func(*config)

type config struct {
	logger  logr.Logger
	timeout time.Duration
}

// WithLogger receives script load failures. Runtime messages go to the
// grid's logger.
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithTimeout bounds every call into the script. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = d
	}
}

// Script is compiled Lua source that can be instantiated per grid.
type Script struct {
	name  string
	proto *lua.FunctionProto
	cfg   config
}

// Compile parses and compiles source. Syntax errors surface here rather than
// at grid construction.
func Compile(name, source string, options ...Option) (*Script, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("luaplugin: parse %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("luaplugin: compile %s: %w", name, err)
	}

	cfg := config{logger: logr.Discard(), timeout: DefaultTimeout}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return &Script{name: name, proto: proto, cfg: cfg}, nil
}

// FromFile compiles the script at path, named after the file without its
// extension.
func FromFile(path string, options ...Option) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("luaplugin: read %s: %w", path, err)
	}
	base := filepath.Base(path)
	return Compile(strings.TrimSuffix(base, filepath.Ext(base)), string(data), options...)
}

// Name returns the registry key of the script.
func (s *Script) Name() string { return s.name }

// Register adds the script to registry under its name.
func (s *Script) Register(registry *grid.PluginRegistry) bool {
	return registry.Register(s.name, s.Factory)
}

// Factory builds a fresh Lua state running the script. Scripts defining
// modify yield a plugin with a modify hook; others only initialise. Load
// failures are logged and yield nil, which the grid reports and skips.
func (s *Script) Factory() grid.Plugin {
	L := luabridge.NewState()
	rt := &runtime{
		name:    s.name,
		L:       L,
		bridge:  luabridge.New(L),
		timeout: s.cfg.timeout,
		log:     s.cfg.logger.WithValues("plugin", s.name),
	}

	load := L.NewFunctionFromProto(s.proto)
	if _, err := rt.call(load); err != nil {
		rt.log.Error(err, "lua plugin failed to load")
		L.Close()
		return nil
	}

	rt.initFn, _ = L.GetGlobal("init").(*lua.LFunction)
	if fn, ok := L.GetGlobal("modify").(*lua.LFunction); ok {
		rt.modifyFn = fn
		return &modifyingScript{script{rt}}
	}
	return &script{rt}
}

type runtime struct {
	name     string
	L        *lua.LState
	bridge   *luabridge.Bridge
	timeout  time.Duration
	log      logr.Logger
	grid     *grid.Grid
	api      *lua.LTable
	initFn   *lua.LFunction
	modifyFn *lua.LFunction
	closed   bool
}

// call runs fn under the call timeout. Nested calls, such as an event
// handler triggered by grid.refresh, share the outermost deadline.
func (rt *runtime) call(fn *lua.LFunction, args ...any) ([]any, error) {
	if rt.closed {
		return nil, fmt.Errorf("luaplugin: %s: state closed", rt.name)
	}
	if rt.timeout > 0 && rt.L.Context() == nil {
		base := context.Background()
		if rt.grid != nil {
			base = rt.grid.Context()
		}
		ctx, cancel := context.WithTimeout(base, rt.timeout)
		rt.L.SetContext(ctx)
		defer func() {
			rt.L.RemoveContext()
			cancel()
		}()
	}
	return rt.bridge.Call(fn, args...)
}

// script is a Lua plugin without a modify function.
type script struct {
	*runtime
}

// Init binds the grid API and runs the script's init, if any.
func (s *script) Init(g *grid.Grid) {
	s.grid = g
	s.log = g.Logger().WithValues("plugin", s.name)
	s.api = s.newAPI()
	s.L.SetGlobal("grid", s.api)

	if s.initFn == nil {
		return
	}
	if _, err := s.call(s.initFn, s.api); err != nil {
		s.log.Error(err, "lua init failed")
	}
}

// Close releases the Lua state.
func (s *script) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.L.Close()
	return nil
}

type modifyingScript struct {
	script
}

// Modify runs the script's modify function.
func (s *modifyingScript) Modify() {
	if s.api == nil {
		return
	}
	if _, err := s.call(s.modifyFn, s.api); err != nil {
		s.log.Error(err, "lua modify failed")
	}
}
