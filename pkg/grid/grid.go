package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	theme "github.com/goliatone/go-theme"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-datagrid/pkg/dom"
	"github.com/goliatone/go-datagrid/pkg/render/sanitize"
	"github.com/goliatone/go-datagrid/pkg/render/template"
	"github.com/goliatone/go-datagrid/pkg/render/template/gotemplate"
	"github.com/goliatone/go-datagrid/pkg/transport"
)

// ThemeSelector resolves a theme and variant. go-theme selectors satisfy it.
type ThemeSelector interface {
	Select(name, variant string, opts ...theme.QueryOption) (*theme.Selection, error)
}

// Option customises grid construction.
type Option func(*settings)

type settings struct {
	ctx       context.Context
	logger    logr.Logger
	fetcher   transport.Fetcher
	renderer  template.StringRenderer
	sanitizer sanitize.Sanitizer
	themes    ThemeSelector
	tracer    trace.Tracer
	plugins   *PluginRegistry
	instances *InstanceRegistry
	defaults  Options
}

// WithContext sets the base context handed to DOM-triggered work. Close
// cancels it.
func WithContext(ctx context.Context) Option {
	return func(s *settings) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithLogger routes warnings and failures to logger.
func WithLogger(logger logr.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithFetcher replaces the HTTP transport.
func WithFetcher(fetcher transport.Fetcher) Option {
	return func(s *settings) {
		s.fetcher = fetcher
	}
}

// WithRenderer replaces the pongo2 template engine.
func WithRenderer(renderer template.StringRenderer) Option {
	return func(s *settings) {
		s.renderer = renderer
	}
}

// WithSanitizer cleans rendered markup before it is stored and inserted.
func WithSanitizer(sanitizer sanitize.Sanitizer) Option {
	return func(s *settings) {
		s.sanitizer = sanitizer
	}
}

// WithThemeSelector exposes the selected theme to templates as `theme`.
func WithThemeSelector(selector ThemeSelector) Option {
	return func(s *settings) {
		s.themes = selector
	}
}

// WithTracer replaces the OTel tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = tracer
	}
}

// WithPluginRegistry selects the registry whose plugins the grid activates.
func WithPluginRegistry(registry *PluginRegistry) Option {
	return func(s *settings) {
		s.plugins = registry
	}
}

// WithInstanceRegistry selects the registry guarding container bindings.
func WithInstanceRegistry(registry *InstanceRegistry) Option {
	return func(s *settings) {
		s.instances = registry
	}
}

// WithDefaults replaces the class defaults consulted by the cascade.
func WithDefaults(defaults Options) Option {
	return func(s *settings) {
		s.defaults = defaults
	}
}

// Grid is one data grid bound to one container.
type Grid struct {
	doc       *dom.Document
	key       string
	container *dom.Node
	target    *dom.Node
	options   Options
	config    *ConfigResolver

	url         string
	id          string
	template    string
	templateRef string
	fetchParams transport.FetchParams
	query       *Query
	fetched     []any
	meta        map[string]any
	extra       map[string]any
	rendered    string
	state       State
	plugins     []activePlugin

	log       logr.Logger
	fetcher   transport.Fetcher
	renderer  template.StringRenderer
	sanitizer sanitize.Sanitizer
	themes    ThemeSelector
	tracer    trace.Tracer
	instances *InstanceRegistry

	ctx    context.Context
	cancel context.CancelFunc
	runID  string
	closed bool
}

// New binds a grid to the node matching selector in doc and initialises
// every plugin of the configured registry. When the selector is already
// bound it logs a warning and returns ErrAlreadyBound without touching any
// state. New does not fetch; call Run, or use Mount.
func New(doc *dom.Document, selector string, options Options, opts ...Option) (*Grid, error) {
	s := settings{
		ctx:       context.Background(),
		logger:    logr.Discard(),
		plugins:   defaultPlugins,
		instances: defaultInstances,
		defaults:  DefaultOptions(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&s)
	}

	if doc == nil {
		return nil, ErrNilDocument
	}

	key := strings.TrimSpace(selector)
	logger := s.logger.WithValues("container", key)
	if !s.instances.Bind(key) {
		logger.Info("container already bound to a grid", "severity", "warning")
		return nil, fmt.Errorf("%w: %q", ErrAlreadyBound, key)
	}

	g, err := build(doc, key, options, s, logger)
	if err != nil {
		s.instances.Release(key)
		return nil, err
	}

	g.initPlugins(s.plugins)
	return g, nil
}

// Mount is New followed by Run. A failed first run still returns the grid so
// callers can retry.
func Mount(ctx context.Context, doc *dom.Document, selector string, options Options, opts ...Option) (*Grid, error) {
	g, err := New(doc, selector, options, opts...)
	if err != nil {
		return nil, err
	}
	if err := g.Run(ctx); err != nil {
		return g, err
	}
	return g, nil
}

func build(doc *dom.Document, key string, options Options, s settings, logger logr.Logger) (*Grid, error) {
	container, err := doc.QuerySelector(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerNotFound, err)
	}
	if container == nil {
		return nil, fmt.Errorf("%w: %q", ErrContainerNotFound, key)
	}

	if s.fetcher == nil {
		s.fetcher = transport.NewHTTP()
	}
	if s.renderer == nil {
		engine, err := gotemplate.New()
		if err != nil {
			return nil, fmt.Errorf("grid: default template engine: %w", err)
		}
		s.renderer = engine
	}
	if s.tracer == nil {
		s.tracer = defaultTracer()
	}

	if options == nil {
		options = Options{}
	}
	options = options.clone()

	g := &Grid{
		doc:       doc,
		key:       key,
		container: container,
		options:   options,
		config:    NewConfigResolver(container, options, s.defaults),
		query:     NewQuery(),
		fetched:   []any{},
		meta:      map[string]any{},
		extra:     map[string]any{},
		state:     StateIdle,
		log:       logger,
		fetcher:   s.fetcher,
		renderer:  s.renderer,
		sanitizer: s.sanitizer,
		themes:    s.themes,
		tracer:    s.tracer,
		instances: s.instances,
	}
	g.ctx, g.cancel = context.WithCancel(s.ctx)

	g.url = g.config.String(OptionURL, "")
	g.id = g.config.String(OptionID, "")

	targetSelector := g.config.String(OptionTarget, "")
	target, err := lookup(doc, targetSelector)
	if err != nil || target == nil {
		g.cancel()
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, targetSelector)
	}
	g.target = target

	if err := g.SetTemplate(g.config.String(OptionTemplate, "")); err != nil {
		g.cancel()
		return nil, err
	}

	g.fetchParams = g.resolveFetchParams()
	return g, nil
}

func lookup(doc *dom.Document, selector string) (*dom.Node, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, nil
	}
	return doc.QuerySelector(selector)
}

func (g *Grid) resolveFetchParams() transport.FetchParams {
	headers, err := g.config.StringMap(OptionFetchHeaders)
	if err != nil {
		g.warn("fetch headers ignored", "error", err.Error())
	}
	return g.bufferParams(transport.FetchParams{
		Method:      g.config.String(OptionFetchMethod, "GET"),
		Headers:     headers,
		Body:        g.config.Resolve(OptionFetchBody, nil),
		Mode:        g.config.String(OptionFetchMode, transport.ModeSameOrigin),
		Credentials: g.config.String(OptionFetchCredentials, transport.CredentialsSameOrigin),
	})
}

// bufferParams reads a reader body once so every run sends the same bytes.
// An unreadable body is dropped with a warning.
func (g *Grid) bufferParams(params transport.FetchParams) transport.FetchParams {
	buffered, err := params.Buffered()
	if err != nil {
		g.warn("fetch body ignored", "error", err.Error())
		buffered.Body = nil
	}
	return buffered
}

func (g *Grid) initPlugins(registry *PluginRegistry) {
	if registry == nil {
		return
	}
	for _, name := range registry.Names() {
		factory, ok := registry.Factory(name)
		if !ok {
			continue
		}
		plugin := factory()
		if plugin == nil {
			g.warn("plugin factory returned nil", "plugin", name)
			continue
		}
		g.plugins = append(g.plugins, activePlugin{name: name, plugin: plugin})

		initializer, ok := plugin.(Initializer)
		if !ok {
			g.warn("plugin has no init hook", "plugin", name)
			continue
		}
		initializer.Init(g)
	}
}

func (g *Grid) warn(msg string, keysAndValues ...any) {
	g.log.Info(msg, append(keysAndValues, "severity", "warning")...)
}

// Close releases the container binding, closes plugins implementing
// io.Closer and cancels the grid context.
func (g *Grid) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.cancel()
	g.instances.Release(g.key)

	var errs []error
	for _, p := range g.plugins {
		closer, ok := p.plugin.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("grid: close plugin %q: %w", p.name, err))
		}
	}
	return errors.Join(errs...)
}

// Key returns the container selector the grid is bound to.
func (g *Grid) Key() string { return g.key }

// ID returns the correlation id used to find external trigger elements.
func (g *Grid) ID() string { return g.id }

// Document returns the document the grid lives in.
func (g *Grid) Document() *dom.Document { return g.doc }

// Container returns the bound container node.
func (g *Grid) Container() *dom.Node { return g.container }

// Target returns the node whose content is replaced on insert.
func (g *Grid) Target() *dom.Node { return g.target }

// Context returns the grid's base context, cancelled by Close.
func (g *Grid) Context() context.Context { return g.ctx }

// Logger returns the grid logger, for plugins that want to log alongside it.
func (g *Grid) Logger() logr.Logger { return g.log }

// Config returns the cascade resolver for this grid.
func (g *Grid) Config() *ConfigResolver { return g.config }

// Option resolves name through the cascade.
func (g *Grid) Option(name string, fallback any) any {
	return g.config.Resolve(name, fallback)
}

// URL returns the base data URL.
func (g *Grid) URL() string { return g.url }

// SetURL replaces the base data URL.
func (g *Grid) SetURL(url string) *Grid {
	g.url = url
	return g
}

// RequestURL returns the base URL with the query appended.
func (g *Grid) RequestURL() string {
	return g.query.AppendTo(g.url)
}

// Query returns the live query parameters.
func (g *Grid) Query() *Query { return g.query }

// SetQuery stores a query parameter.
func (g *Grid) SetQuery(key string, value any) *Grid {
	g.query.Set(key, value)
	return g
}

// FetchParams returns the request settings.
func (g *Grid) FetchParams() transport.FetchParams {
	params := g.fetchParams
	params.Headers = make(map[string]string, len(g.fetchParams.Headers))
	for key, value := range g.fetchParams.Headers {
		params.Headers[key] = value
	}
	return params
}

// SetFetchParams replaces the request settings. A reader body is buffered.
func (g *Grid) SetFetchParams(params transport.FetchParams) *Grid {
	g.fetchParams = g.bufferParams(params)
	return g
}

// Template returns the inline template source, empty when the grid renders a
// named template.
func (g *Grid) Template() string { return g.template }

// TemplateName returns the engine template the grid renders, empty when it
// renders inline source.
func (g *Grid) TemplateName() string { return g.templateRef }

// SetTemplate loads the template source from the element matching selector.
// When no element matches and the renderer loads templates by name, selector
// is taken as a template name instead.
func (g *Grid) SetTemplate(selector string) error {
	node, err := lookup(g.doc, selector)
	if err == nil && node != nil {
		g.template = node.InnerHTML()
		g.templateRef = ""
		return nil
	}
	if named, ok := g.renderer.(template.NamedRenderer); ok && strings.TrimSpace(selector) != "" {
		lerr := named.Lookup(selector)
		if lerr == nil {
			g.template = ""
			g.templateRef = selector
			return nil
		}
		g.log.V(1).Info("named template lookup failed", "template", selector, "error", lerr.Error())
	}
	return fmt.Errorf("%w: %q", ErrTemplateNotFound, selector)
}

// SetTemplateSource replaces the template with inline source.
func (g *Grid) SetTemplateSource(source string) *Grid {
	g.template = source
	g.templateRef = ""
	return g
}

// Fetched returns the records of the last successful fetch.
func (g *Grid) Fetched() []any {
	return append([]any(nil), g.fetched...)
}

// SetFetched replaces the records.
func (g *Grid) SetFetched(records []any) *Grid {
	if records == nil {
		records = []any{}
	}
	g.fetched = records
	return g
}

// Meta returns a copy of the server metadata.
func (g *Grid) Meta() map[string]any {
	return copyMap(g.meta)
}

// SetMeta replaces the server metadata.
func (g *Grid) SetMeta(meta map[string]any) *Grid {
	if meta == nil {
		meta = map[string]any{}
	}
	g.meta = meta
	return g
}

// Extra returns a copy of the plugin-contributed template data.
func (g *Grid) Extra() map[string]any {
	return copyMap(g.extra)
}

// SetExtra stores plugin-contributed template data under key.
func (g *Grid) SetExtra(key string, value any) *Grid {
	g.extra[key] = value
	return g
}

// Rendered returns the markup produced by the last render.
func (g *Grid) Rendered() string { return g.rendered }

// State returns the pipeline stage the grid is in.
func (g *Grid) State() State { return g.state }

// Plugin returns the active plugin registered under name.
func (g *Grid) Plugin(name string) (Plugin, bool) {
	for _, p := range g.plugins {
		if p.name == name {
			return p.plugin, true
		}
	}
	return nil, false
}

// Plugins returns the active plugin names in initialisation order.
func (g *Grid) Plugins() []string {
	names := make([]string, 0, len(g.plugins))
	for _, p := range g.plugins {
		names = append(names, p.name)
	}
	return names
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
