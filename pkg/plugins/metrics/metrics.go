// Package metrics exports grid lifecycle activity as Prometheus metrics.
//
// A Collector owns the metric vectors; its Factory builds plugins that
// observe one grid each. Register the collector with a prometheus
// Registerer and its plugin with a grid.PluginRegistry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-datagrid/pkg/dom"
	"github.com/goliatone/go-datagrid/pkg/grid"
)

// Name is the registry key of the plugin.
const Name = "metrics"

// Fetch outcomes used as the outcome label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Option configures a Collector.
type Option func(*config)

type config struct {
	namespace string
	buckets   []float64
	now       func() time.Time
}

// WithNamespace prefixes every metric name.
func WithNamespace(namespace string) Option {
	return func(cfg *config) {
		cfg.namespace = namespace
	}
}

// WithBuckets overrides the fetch latency histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(cfg *config) {
		if len(buckets) > 0 {
			cfg.buckets = buckets
		}
	}
}

// WithClock replaces time.Now for latency measurements.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) {
		if now != nil {
			cfg.now = now
		}
	}
}

// Collector aggregates lifecycle metrics across grids.
type Collector struct {
	events        *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	modifyPasses  *prometheus.CounterVec
	now           func() time.Time
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector constructs a collector. Metric names default to the
// datagrid namespace.
func NewCollector(options ...Option) *Collector {
	cfg := config{
		namespace: "datagrid",
		buckets:   prometheus.DefBuckets,
		now:       time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	return &Collector{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "lifecycle_events_total",
				Help:      "Lifecycle events fired by grid instances.",
			},
			[]string{"grid", "event"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Latency of the grid fetch stage in seconds.",
				Buckets:   cfg.buckets,
			},
			[]string{"grid", "outcome"},
		),
		modifyPasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "modify_passes_total",
				Help:      "Plugin modify passes run by grid instances.",
			},
			[]string{"grid"},
		),
		now: cfg.now,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.events.Describe(ch)
	c.fetchDuration.Describe(ch)
	c.modifyPasses.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.events.Collect(ch)
	c.fetchDuration.Collect(ch)
	c.modifyPasses.Collect(ch)
}

// Register adds the collector's plugin to registry under Name.
func (c *Collector) Register(registry *grid.PluginRegistry) bool {
	return registry.Register(Name, c.Factory)
}

// Factory builds a plugin reporting to c.
func (c *Collector) Factory() grid.Plugin {
	return &plugin{collector: c}
}

type plugin struct {
	collector *Collector
	label     string
	started   time.Time
}

func (p *plugin) Init(g *grid.Grid) {
	p.label = g.ID()
	if p.label == "" {
		p.label = g.Key()
	}

	c := p.collector
	for _, name := range grid.LifecycleEvents {
		counter := c.events.WithLabelValues(p.label, name)
		g.On(name, func(*dom.Event) { counter.Inc() })
	}
	g.On(grid.EventFetchBefore, func(*dom.Event) { p.started = c.now() })
	g.On(grid.EventFetchAfter, func(*dom.Event) { p.observe(OutcomeSuccess) })
	g.On(grid.EventFetchFail, func(*dom.Event) { p.observe(OutcomeFailure) })
}

func (p *plugin) Modify() {
	p.collector.modifyPasses.WithLabelValues(p.label).Inc()
}

func (p *plugin) observe(outcome string) {
	if p.started.IsZero() {
		return
	}
	elapsed := p.collector.now().Sub(p.started)
	p.collector.fetchDuration.WithLabelValues(p.label, outcome).Observe(elapsed.Seconds())
	p.started = time.Time{}
}
