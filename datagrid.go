// Package datagrid is the top-level entry point for building data grids over
// an in-memory HTML document. It re-exports the pieces most callers need from
// pkg/grid and wires the default transport and template engine.
package datagrid

import (
	"context"
	"strings"

	"github.com/goliatone/go-datagrid/pkg/dom"
	"github.com/goliatone/go-datagrid/pkg/grid"
	"github.com/goliatone/go-datagrid/pkg/render/template/gotemplate"
)

// Grid aliases grid.Grid so callers can stay on the root package.
type Grid = grid.Grid

// Options aliases grid.Options.
type Options = grid.Options

// Option aliases grid.Option.
type Option = grid.Option

// Plugin aliases grid.Plugin.
type Plugin = grid.Plugin

// Factory aliases grid.Factory.
type Factory = grid.Factory

// New binds a grid to the container matching selector without running it.
func New(doc *dom.Document, selector string, options Options, opts ...Option) (*Grid, error) {
	return grid.New(doc, selector, options, opts...)
}

// Mount binds a grid and runs the pipeline once.
func Mount(ctx context.Context, doc *dom.Document, selector string, options Options, opts ...Option) (*Grid, error) {
	return grid.Mount(ctx, doc, selector, options, opts...)
}

// MountHTML parses markup and mounts a grid on it, returning the document so
// the caller can serialise the result.
func MountHTML(ctx context.Context, markup, selector string, options Options, opts ...Option) (*dom.Document, *Grid, error) {
	doc, err := dom.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, nil, err
	}
	g, err := grid.Mount(ctx, doc, selector, options, opts...)
	return doc, g, err
}

// RegisterPlugin adds a plugin to the process-wide registry used by grids
// built without WithPluginRegistry.
func RegisterPlugin(name string, factory Factory) bool {
	return grid.RegisterPlugin(name, factory)
}

// NewTemplateEngine builds the pongo2 engine grids use by default, for
// callers that want to register filters or globals before passing it to
// grid.WithRenderer.
func NewTemplateEngine(options ...gotemplate.Option) (*gotemplate.Engine, error) {
	return gotemplate.New(options...)
}
