package grid

import (
	"strings"

	"github.com/goliatone/go-datagrid/pkg/dom"
)

// Lifecycle events dispatched on the container.
const (
	EventFetchBefore  = "grid:fetch:before"
	EventFetchFail    = "grid:fetch:fail"
	EventFetchAfter   = "grid:fetch:after"
	EventRenderBefore = "grid:render:before"
	EventRenderAfter  = "grid:render:after"
	EventInsertBefore = "grid:insert:before"
	EventInsertAfter  = "grid:insert:after"
)

// LifecycleEvents lists every lifecycle event in pipeline order.
var LifecycleEvents = []string{
	EventFetchBefore,
	EventFetchFail,
	EventFetchAfter,
	EventRenderBefore,
	EventRenderAfter,
	EventInsertBefore,
	EventInsertAfter,
}

// ActionKey maps a kebab-case action name onto its dataset key:
// "go-next" becomes "actionGoNext", i.e. the data-action-go-next attribute.
func ActionKey(action string) string {
	var b strings.Builder
	b.WriteString("action")
	for _, part := range strings.Split(action, "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// Fire dispatches a non-bubbling event named name from the container.
func (g *Grid) Fire(name string, detail map[string]any) {
	if detail == nil {
		detail = map[string]any{}
	}
	g.container.Dispatch(dom.NewEvent(name, detail))
}

// On binds handler to name on the container. Lifecycle events are the usual
// subjects.
func (g *Grid) On(name string, handler dom.Listener) *Grid {
	g.container.AddEventListener(name, handler)
	return g
}

// Listen binds handler for each event type on the container and, when the
// grid has an id, on every element tagged data-grid="<id>". The handler only
// runs when the event target carries the action attribute derived from
// action (see ActionKey). Repeated calls stack handlers.
func (g *Grid) Listen(events []string, action string, handler dom.Listener) *Grid {
	if handler == nil {
		return g
	}
	key := ActionKey(action)
	gated := func(ev *dom.Event) {
		if ev.Target == nil {
			return
		}
		if _, ok := ev.Target.Data(key); ok {
			handler(ev)
		}
	}

	var external []*dom.Node
	if g.id != "" {
		nodes, err := g.doc.QuerySelectorAll(`[data-grid="` + strings.ReplaceAll(g.id, `"`, `\"`) + `"]`)
		if err != nil {
			g.warn("external trigger lookup failed", "id", g.id, "error", err.Error())
		}
		external = nodes
	}

	for _, eventType := range events {
		g.container.AddEventListener(eventType, gated)
		for _, node := range external {
			node.AddEventListener(eventType, gated)
		}
	}
	return g
}

// OnAction is Listen for a single event type.
func (g *Grid) OnAction(eventType, action string, handler dom.Listener) *Grid {
	return g.Listen([]string{eventType}, action, handler)
}
