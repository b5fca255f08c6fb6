// Package pagination adds page/limit navigation to a grid.
//
// The plugin writes the page and limit query parameters before every fetch
// and exposes a summary under extra.pagination for templates. Elements
// carrying data-action-go-first, -go-prev, -go-next, -go-last or -go-page
// (with data-page) inside the container, or tagged with the grid's
// data-grid id, navigate on click.
package pagination

import (
	"errors"
	"math"
	"strconv"

	"github.com/goliatone/go-datagrid/pkg/dom"
	"github.com/goliatone/go-datagrid/pkg/grid"
)

// Name is the registry key of the plugin.
const Name = "pagination"

// Option names read through the grid cascade.
const (
	OptionPerPage    = "perPage"
	OptionPage       = "page"
	OptionPageParam  = "pageParam"
	OptionLimitParam = "limitParam"
	OptionTotalKey   = "totalKey"
	OptionWindow     = "pageWindow"
)

// Actions bound by the plugin.
const (
	ActionFirst = "go-first"
	ActionPrev  = "go-prev"
	ActionNext  = "go-next"
	ActionLast  = "go-last"
	ActionPage  = "go-page"
)

const (
	defaultPerPage = 10
	defaultWindow  = 5
	extraKey       = "pagination"
)

// Register adds the plugin to registry under Name.
func Register(registry *grid.PluginRegistry) bool {
	return registry.Register(Name, Factory)
}

// Factory builds a fresh plugin.
func Factory() grid.Plugin {
	return &Plugin{}
}

// Plugin tracks the current page for one grid.
type Plugin struct {
	grid       *grid.Grid
	page       int
	perPage    int
	pageParam  string
	limitParam string
	totalKey   string
	window     int
}

// Init reads the starting page and page size, seeds the query and binds the
// navigation actions.
func (p *Plugin) Init(g *grid.Grid) {
	cfg := g.Config()
	p.grid = g
	p.perPage = cfg.Int(OptionPerPage, defaultPerPage)
	if p.perPage <= 0 {
		p.perPage = defaultPerPage
	}
	p.page = max(cfg.Int(OptionPage, 1), 1)
	p.pageParam = cfg.String(OptionPageParam, "page")
	p.limitParam = cfg.String(OptionLimitParam, "limit")
	p.totalKey = cfg.String(OptionTotalKey, "total")
	p.window = cfg.Int(OptionWindow, defaultWindow)
	if p.window < 0 {
		p.window = defaultWindow
	}
	p.sync()

	click := []string{"click"}
	g.Listen(click, ActionFirst, p.handle(func(*dom.Event) int { return 1 }))
	g.Listen(click, ActionPrev, p.handle(func(*dom.Event) int { return p.page - 1 }))
	g.Listen(click, ActionNext, p.handle(func(*dom.Event) int { return p.page + 1 }))
	g.Listen(click, ActionLast, p.handle(func(*dom.Event) int { return p.Pages() }))
	g.Listen(click, ActionPage, p.handle(func(ev *dom.Event) int {
		raw, _ := ev.Target.Data("page")
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p.page
		}
		return n
	}))
}

// Modify publishes the pagination summary to extra.pagination. numbers holds
// the pages within pageWindow of the current one, not every page.
func (p *Plugin) Modify() {
	pages := p.Pages()
	first := max(p.page-p.window, 1)
	last := min(p.page+p.window, pages)
	numbers := make([]int, 0, max(last-first+1, 0))
	for i := first; i <= last; i++ {
		numbers = append(numbers, i)
	}
	p.grid.SetExtra(extraKey, map[string]any{
		"page":    p.page,
		"perPage": p.perPage,
		"total":   p.Total(),
		"pages":   pages,
		"numbers": numbers,
		"hasPrev": p.page > 1,
		"hasNext": p.page < pages,
	})
}

// Page returns the current page, starting at 1.
func (p *Plugin) Page() int { return p.page }

// PerPage returns the page size.
func (p *Plugin) PerPage() int { return p.perPage }

// Total returns the record count reported by the server, or -1 when the
// response carried none or a negative one. Counts past math.MaxInt saturate.
func (p *Plugin) Total() int {
	switch v := p.grid.Meta()[p.totalKey].(type) {
	case int64:
		if v > math.MaxInt {
			return math.MaxInt
		}
		return normalizeTotal(int(v))
	case int:
		return normalizeTotal(v)
	case float64:
		if math.IsNaN(v) {
			return -1
		}
		if v >= math.MaxInt {
			return math.MaxInt
		}
		return normalizeTotal(int(v))
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil || (errors.Is(err, strconv.ErrRange) && n > 0) {
			return normalizeTotal(int(min(n, int64(math.MaxInt))))
		}
	}
	return -1
}

func normalizeTotal(n int) int {
	if n < 0 {
		return -1
	}
	return n
}

// Pages returns the page count. Without a total the current page is the
// last known one.
func (p *Plugin) Pages() int {
	total := p.Total()
	if total < 0 {
		return p.page
	}
	pages := total / p.perPage
	if total%p.perPage != 0 {
		pages++
	}
	return max(pages, 1)
}

// GoTo moves to page and re-runs the grid. Pages below 1, or past the last
// page when the total is known, are clamped; moving to the current page is a
// no-op.
func (p *Plugin) GoTo(page int) error {
	page = max(page, 1)
	if p.Total() >= 0 {
		page = min(page, p.Pages())
	}
	if page == p.page {
		return nil
	}
	p.page = page
	p.sync()
	return p.grid.Run(p.grid.Context())
}

func (p *Plugin) handle(next func(*dom.Event) int) dom.Listener {
	return func(ev *dom.Event) {
		if err := p.GoTo(next(ev)); err != nil {
			p.grid.Logger().Error(err, "pagination run failed", "plugin", Name, "page", p.page)
		}
	}
}

func (p *Plugin) sync() {
	p.grid.SetQuery(p.pageParam, p.page).SetQuery(p.limitParam, p.perPage)
}
