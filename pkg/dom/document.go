package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document wraps a parsed HTML tree together with the listener table used by
// Node.AddEventListener and Node.Dispatch.
type Document struct {
	root *html.Node

	mu        sync.RWMutex
	listeners map[*html.Node]map[string][]Listener
	selectors map[string]cascadia.Selector
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}
	return newDocument(root), nil
}

// ParseString parses markup held in memory.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// MustParseString panics when markup cannot be parsed. Useful for fixtures.
func MustParseString(markup string) *Document {
	doc, err := ParseString(markup)
	if err != nil {
		panic(err)
	}
	return doc
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		listeners: make(map[*html.Node]map[string][]Listener),
		selectors: make(map[string]cascadia.Selector),
	}
}

// Root returns the document node.
func (d *Document) Root() *Node {
	return d.wrap(d.root)
}

// QuerySelector returns the first element matching selector, or nil when
// nothing matches.
func (d *Document) QuerySelector(selector string) (*Node, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	return d.wrap(sel.MatchFirst(d.root)), nil
}

// QuerySelectorAll returns every element matching selector in document order.
func (d *Document) QuerySelectorAll(selector string) ([]*Node, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	return d.wrapAll(sel.MatchAll(d.root)), nil
}

// Render serialises the document.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String returns the serialised document.
func (d *Document) String() string {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

func (d *Document) compile(selector string) (cascadia.Selector, error) {
	trimmed := strings.TrimSpace(selector)

	d.mu.RLock()
	sel, ok := d.selectors[trimmed]
	d.mu.RUnlock()
	if ok {
		return sel, nil
	}

	sel, err := cascadia.Compile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}

	d.mu.Lock()
	d.selectors[trimmed] = sel
	d.mu.Unlock()
	return sel, nil
}

func (d *Document) wrap(n *html.Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{doc: d, raw: n}
}

func (d *Document) wrapAll(nodes []*html.Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.wrap(n))
	}
	return out
}

func (d *Document) addListener(n *html.Node, eventType string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byType, ok := d.listeners[n]
	if !ok {
		byType = make(map[string][]Listener)
		d.listeners[n] = byType
	}
	byType[eventType] = append(byType[eventType], fn)
}

func (d *Document) listenersFor(n *html.Node, eventType string) []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handlers := d.listeners[n][eventType]
	if len(handlers) == 0 {
		return nil
	}
	return append([]Listener(nil), handlers...)
}

func (d *Document) listenerCount(n *html.Node, eventType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[n][eventType])
}

// forget drops listeners registered on n and its descendants.
func (d *Document) forget(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		delete(d.listeners, cur)
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
}
