package grid

import (
	"strings"
	"sync"

	"github.com/go-logr/logr"
)

// Plugin is any value built by a Factory. Its capabilities are detected with
// the Initializer and Modifier interfaces; a plugin may implement both,
// either or neither. Plugins that implement io.Closer are closed with their
// grid.
type Plugin any

// Initializer is implemented by plugins that need the owning grid at
// construction, typically to keep a reference and bind listeners.
type Initializer interface {
	Init(g *Grid)
}

// Modifier is implemented by plugins that adjust instance state between
// fetch and render.
type Modifier interface {
	Modify()
}

// Factory builds a fresh plugin for one grid.
type Factory func() Plugin

// RegistryOption configures a registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	logger logr.Logger
}

// WithRegistryLogger routes registry warnings to logger.
func WithRegistryLogger(logger logr.Logger) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.logger = logger
	}
}

func newRegistryConfig(options []RegistryOption) registryConfig {
	cfg := registryConfig{logger: logr.Discard()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

// PluginRegistry maps plugin names to factories in registration order. Every
// grid built against a registry activates all of its plugins.
type PluginRegistry struct {
	mu        sync.RWMutex
	names     []string
	factories map[string]Factory
	logger    logr.Logger
}

// NewPluginRegistry creates an empty registry.
func NewPluginRegistry(options ...RegistryOption) *PluginRegistry {
	cfg := newRegistryConfig(options)
	return &PluginRegistry{
		factories: make(map[string]Factory),
		logger:    cfg.logger,
	}
}

// SetLogger replaces the logger used for registration warnings.
func (r *PluginRegistry) SetLogger(logger logr.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds factory under name. Duplicate names are rejected without
// overwriting the existing entry; the rejection is logged and reported
// through the return value.
func (r *PluginRegistry) Register(name string, factory Factory) bool {
	trimmed := strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if trimmed == "" || factory == nil {
		r.logger.Info("plugin registration ignored", "plugin", name, "reason", "name and factory required", "severity", "warning")
		return false
	}
	if _, exists := r.factories[trimmed]; exists {
		r.logger.Info("plugin already registered", "plugin", trimmed, "severity", "warning")
		return false
	}

	r.names = append(r.names, trimmed)
	r.factories[trimmed] = factory
	return true
}

// Names returns registered names in registration order.
func (r *PluginRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Factory returns the factory registered under name.
func (r *PluginRegistry) Factory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	return factory, ok
}

// Has reports whether name is registered.
func (r *PluginRegistry) Has(name string) bool {
	_, ok := r.Factory(name)
	return ok
}

// Len reports the number of registered plugins.
func (r *PluginRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Reset drops every registration. Intended for tests.
func (r *PluginRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = nil
	r.factories = make(map[string]Factory)
}

type activePlugin struct {
	name   string
	plugin Plugin
}

var defaultPlugins = NewPluginRegistry()

// DefaultPluginRegistry returns the process-wide registry used by grids that
// are not given one through WithPluginRegistry.
func DefaultPluginRegistry() *PluginRegistry {
	return defaultPlugins
}

// RegisterPlugin registers factory on the process-wide registry.
func RegisterPlugin(name string, factory Factory) bool {
	return defaultPlugins.Register(name, factory)
}
