// Package sorting adds column sorting to a grid. Clicking an element with
// data-action-sort and data-sort="<field>" sorts by that field; clicking the
// same field again flips the order. The sort state travels to the server as
// query parameters and to templates as extra.sorting.
package sorting

import (
	"strings"

	"github.com/goliatone/go-datagrid/pkg/dom"
	"github.com/goliatone/go-datagrid/pkg/grid"
)

// Name is the registry key of the plugin.
const Name = "sorting"

// Action is the action name bound on click.
const Action = "sort"

// Option names read through the grid cascade.
const (
	OptionSortField  = "sortField"
	OptionSortOrder  = "sortOrder"
	OptionSortParam  = "sortParam"
	OptionOrderParam = "orderParam"
)

// Sort orders.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Register adds the plugin to registry under Name.
func Register(registry *grid.PluginRegistry) bool {
	return registry.Register(Name, Factory)
}

// Factory builds a fresh plugin.
func Factory() grid.Plugin {
	return &Plugin{}
}

// Plugin holds the sort state of one grid.
type Plugin struct {
	grid       *grid.Grid
	field      string
	order      string
	sortParam  string
	orderParam string
}

// Init reads the initial field and order, seeds the query and binds the sort
// action.
func (p *Plugin) Init(g *grid.Grid) {
	cfg := g.Config()
	p.grid = g
	p.field = cfg.String(OptionSortField, "")
	p.order = normalizeOrder(cfg.String(OptionSortOrder, Asc))
	p.sortParam = cfg.String(OptionSortParam, "sort")
	p.orderParam = cfg.String(OptionOrderParam, "order")
	p.sync()

	g.Listen([]string{"click"}, Action, func(ev *dom.Event) {
		field, _ := ev.Target.Data("sort")
		if err := p.Toggle(field); err != nil {
			g.Logger().Error(err, "sorting run failed", "plugin", Name, "field", field)
		}
	})
}

// Modify publishes the active field and order to extra.sorting.
func (p *Plugin) Modify() {
	p.grid.SetExtra("sorting", map[string]any{
		"field": p.field,
		"order": p.order,
	})
}

// Field returns the active sort field, empty when unsorted.
func (p *Plugin) Field() string { return p.field }

// Order returns the active sort order.
func (p *Plugin) Order() string { return p.order }

// Toggle sorts by field ascending, or flips the order when field is already
// active, and re-runs the grid. An empty field is ignored.
func (p *Plugin) Toggle(field string) error {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}
	if field == p.field {
		p.order = flip(p.order)
	} else {
		p.field, p.order = field, Asc
	}
	p.sync()
	return p.grid.Run(p.grid.Context())
}

func (p *Plugin) sync() {
	if p.field == "" {
		return
	}
	p.grid.SetQuery(p.sortParam, p.field).SetQuery(p.orderParam, p.order)
}

func flip(order string) string {
	if order == Asc {
		return Desc
	}
	return Asc
}

func normalizeOrder(order string) string {
	if strings.EqualFold(strings.TrimSpace(order), Desc) {
		return Desc
	}
	return Asc
}
