package grid

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/goliatone/go-datagrid/pkg/render/template"
	"github.com/goliatone/go-datagrid/pkg/transport"
)

// State reports which pipeline stage a grid is in.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateModifying
	StateRendering
	StateInserted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateModifying:
		return "modifying"
	case StateRendering:
		return "rendering"
	case StateInserted:
		return "inserted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Run executes fetch, modify, render and insert in order. Any failing stage
// stops the run and leaves the target untouched.
func (g *Grid) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("grid: context is nil")
	}
	if g.closed {
		return ErrClosed
	}

	g.runID = uuid.NewString()
	ctx, span := g.startSpan(ctx, "datagrid.Run")
	defer span.End()

	if err := g.Fetch(ctx); err != nil {
		recordSpanError(span, err)
		return err
	}
	if err := g.refresh(ctx); err != nil {
		recordSpanError(span, err)
		return err
	}
	return nil
}

// Refresh re-runs modify, render and insert against the data already held.
// No request is made.
func (g *Grid) Refresh() error {
	if g.closed {
		return ErrClosed
	}
	ctx, span := g.startSpan(g.ctx, "datagrid.Refresh")
	defer span.End()

	err := g.refresh(ctx)
	recordSpanError(span, err)
	return err
}

func (g *Grid) refresh(ctx context.Context) error {
	g.PassThroughPlugins()
	if err := g.render(ctx); err != nil {
		g.state = StateIdle
		return err
	}
	return g.Insert()
}

// Fetch requests RequestURL with the grid's fetch params and stores the
// decoded results and meta. Failures fire grid:fetch:fail and return an
// error wrapping ErrFetchFailed; previous data is kept.
func (g *Grid) Fetch(ctx context.Context) error {
	if ctx == nil {
		return errors.New("grid: context is nil")
	}
	if g.closed {
		return ErrClosed
	}

	requestURL := g.RequestURL()
	params := g.FetchParams()

	ctx, span := g.startSpan(ctx, "datagrid.Fetch",
		attribute.String("http.request.method", params.Method),
		attribute.String("url.full", requestURL),
	)
	defer span.End()

	g.state = StateFetching
	g.Fire(EventFetchBefore, map[string]any{"url": requestURL, "run": g.runID})

	payload, err := g.fetch(ctx, requestURL, params)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		g.state = StateIdle
		recordSpanError(span, err)
		g.log.Error(err, "fetch failed", "url", requestURL, "run", g.runID)
		g.Fire(EventFetchFail, map[string]any{"url": requestURL, "error": err, "run": g.runID})
		return err
	}

	g.fetched = payload.Results
	g.meta = payload.Meta
	span.SetAttributes(attribute.Int("datagrid.results", len(payload.Results)))
	g.Fire(EventFetchAfter, map[string]any{"url": requestURL, "count": len(payload.Results), "run": g.runID})
	return nil
}

func (g *Grid) fetch(ctx context.Context, requestURL string, params transport.FetchParams) (transport.Payload, error) {
	body, err := g.fetcher.Fetch(ctx, requestURL, params)
	if err != nil {
		return transport.Payload{}, err
	}
	return transport.DecodePaths(body,
		g.config.String(OptionResultsPath, transport.ResultsPath),
		g.config.String(OptionMetaPath, transport.MetaPath),
	)
}

// PassThroughPlugins calls Modify on every active plugin in initialisation
// order. Plugins without a modify hook are reported and skipped.
func (g *Grid) PassThroughPlugins() {
	g.state = StateModifying
	for _, p := range g.plugins {
		modifier, ok := p.plugin.(Modifier)
		if !ok {
			g.warn("plugin has no modify hook", "plugin", p.name)
			continue
		}
		modifier.Modify()
	}
}

// Render renders the template with results, meta and extra and stores the
// output. The target is not touched.
func (g *Grid) Render() error {
	if g.closed {
		return ErrClosed
	}
	err := g.render(g.ctx)
	g.state = StateIdle
	return err
}

func (g *Grid) render(ctx context.Context) error {
	_, span := g.startSpan(ctx, "datagrid.Render")
	defer span.End()

	g.state = StateRendering
	g.Fire(EventRenderBefore, nil)

	out, err := g.execute(g.renderContext())
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRenderFailed, err)
		recordSpanError(span, err)
		g.log.Error(err, "render failed")
		return err
	}
	if g.sanitizer != nil {
		out = g.sanitizer.Sanitize(out)
	}

	g.rendered = out
	g.Fire(EventRenderAfter, map[string]any{"rendered": out})
	return nil
}

func (g *Grid) execute(data map[string]any) (string, error) {
	if g.templateRef != "" {
		if named, ok := g.renderer.(template.NamedRenderer); ok {
			return named.RenderTemplate(g.templateRef, data)
		}
	}
	return g.renderer.RenderString(g.template, data)
}

func (g *Grid) renderContext() map[string]any {
	data := map[string]any{
		"results": g.fetched,
		"meta":    g.meta,
		"extra":   g.extra,
	}
	if themeData, ok := g.themeContext(); ok {
		data["theme"] = themeData
	}
	return data
}

func (g *Grid) themeContext() (map[string]any, bool) {
	if g.themes == nil {
		return nil, false
	}
	name := g.config.String(OptionTheme, "")
	variant := g.config.String(OptionThemeVariant, "")
	selection, err := g.themes.Select(name, variant)
	if err != nil {
		g.warn("theme selection failed", "theme", name, "variant", variant, "error", err.Error())
		return nil, false
	}
	if selection == nil {
		return nil, false
	}

	tokens := map[string]any{}
	if manifest := selection.Manifest; manifest != nil {
		for key, value := range manifest.Tokens {
			tokens[key] = value
		}
		for key, value := range manifest.Variants[selection.Variant].Tokens {
			tokens[key] = value
		}
	}
	return map[string]any{
		"name":    selection.Theme,
		"variant": selection.Variant,
		"tokens":  tokens,
	}, true
}

// Insert replaces the target's children with the rendered markup. Listeners
// attached to the replaced nodes are dropped.
func (g *Grid) Insert() error {
	if g.closed {
		return ErrClosed
	}
	g.Fire(EventInsertBefore, nil)
	if err := g.target.SetInnerHTML(g.rendered); err != nil {
		g.state = StateIdle
		return fmt.Errorf("grid: insert: %w", err)
	}
	g.state = StateInserted
	g.Fire(EventInsertAfter, nil)
	return nil
}
