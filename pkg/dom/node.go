package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// rawTextElements hold children that serialise verbatim, which is how
// templates embedded in <script type="text/template"> survive untouched.
var rawTextElements = map[string]bool{
	"iframe":    true,
	"noembed":   true,
	"noframes":  true,
	"noscript":  true,
	"plaintext": true,
	"script":    true,
	"style":     true,
	"xmp":       true,
}

// Node is a handle on an element (or the document node) of a Document. Two
// handles for the same underlying node compare equal through Same.
type Node struct {
	doc *Document
	raw *html.Node
}

// Document returns the owning document.
func (n *Node) Document() *Document {
	return n.doc
}

// Raw exposes the underlying x/net/html node.
func (n *Node) Raw() *html.Node {
	return n.raw
}

// Tag returns the lower-case element name, or "" for non-element nodes.
func (n *Node) Tag() string {
	if n.raw.Type != html.ElementNode {
		return ""
	}
	return n.raw.Data
}

// Same reports whether both handles point to the same node.
func (n *Node) Same(other *Node) bool {
	if n == nil || other == nil {
		return n == nil && other == nil
	}
	return n.raw == other.raw
}

// Parent returns the parent node, or nil for detached nodes and the root.
func (n *Node) Parent() *Node {
	return n.doc.wrap(n.raw.Parent)
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	if other == nil {
		return false
	}
	for cur := other.raw; cur != nil; cur = cur.Parent {
		if cur == n.raw {
			return true
		}
	}
	return false
}

// Attr returns the attribute value and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	key := strings.ToLower(name)
	for _, attr := range n.raw.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// SetAttr adds or replaces an attribute.
func (n *Node) SetAttr(name, value string) {
	key := strings.ToLower(name)
	for i, attr := range n.raw.Attr {
		if attr.Namespace == "" && attr.Key == key {
			n.raw.Attr[i].Val = value
			return
		}
	}
	n.raw.Attr = append(n.raw.Attr, html.Attribute{Key: key, Val: value})
}

// RemoveAttr deletes an attribute when present.
func (n *Node) RemoveAttr(name string) {
	key := strings.ToLower(name)
	kept := n.raw.Attr[:0]
	for _, attr := range n.raw.Attr {
		if attr.Namespace == "" && attr.Key == key {
			continue
		}
		kept = append(kept, attr)
	}
	n.raw.Attr = kept
}

// Data reads a dataset entry by its camelCase key.
func (n *Node) Data(key string) (string, bool) {
	return n.Attr(DataAttr(key))
}

// SetData writes a dataset entry by its camelCase key.
func (n *Node) SetData(key, value string) {
	n.SetAttr(DataAttr(key), value)
}

// Dataset returns every data- attribute keyed by its camelCase name.
func (n *Node) Dataset() map[string]string {
	out := make(map[string]string)
	for _, attr := range n.raw.Attr {
		if attr.Namespace != "" {
			continue
		}
		if key, ok := DataKey(attr.Key); ok {
			out[key] = attr.Val
		}
	}
	return out
}

// QuerySelector returns the first descendant matching selector.
func (n *Node) QuerySelector(selector string) (*Node, error) {
	sel, err := n.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	for c := n.raw.FirstChild; c != nil; c = c.NextSibling {
		if match := sel.MatchFirst(c); match != nil {
			return n.doc.wrap(match), nil
		}
	}
	return nil, nil
}

// QuerySelectorAll returns every descendant matching selector.
func (n *Node) QuerySelectorAll(selector string) ([]*Node, error) {
	sel, err := n.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	var out []*Node
	for c := n.raw.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, n.doc.wrapAll(sel.MatchAll(c))...)
	}
	return out, nil
}

// InnerHTML serialises the children of n.
func (n *Node) InnerHTML() string {
	var b strings.Builder
	literal := n.raw.Type == html.ElementNode && rawTextElements[n.raw.Data]
	for c := n.raw.FirstChild; c != nil; c = c.NextSibling {
		if literal && c.Type == html.TextNode {
			b.WriteString(c.Data)
			continue
		}
		_ = html.Render(&b, c)
	}
	return b.String()
}

// OuterHTML serialises n including its own tag.
func (n *Node) OuterHTML() string {
	var b strings.Builder
	_ = html.Render(&b, n.raw)
	return b.String()
}

// TextContent concatenates every descendant text node.
func (n *Node) TextContent() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n.raw)
	return b.String()
}

// SetInnerHTML replaces every child of n with the parsed markup. Replaced
// nodes lose their listeners.
func (n *Node) SetInnerHTML(markup string) error {
	if n.raw.Type != html.ElementNode {
		return ErrNotElement
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), n.raw)
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}

	for c := n.raw.FirstChild; c != nil; {
		next := c.NextSibling
		n.raw.RemoveChild(c)
		n.doc.forget(c)
		c = next
	}
	for _, child := range nodes {
		n.raw.AppendChild(child)
	}
	return nil
}

// AddEventListener registers fn for eventType on n. Registering the same
// function twice stacks two handlers.
func (n *Node) AddEventListener(eventType string, fn Listener) {
	if fn == nil {
		return
	}
	n.doc.addListener(n.raw, eventType, fn)
}

// ListenerCount reports how many handlers are bound to n for eventType.
func (n *Node) ListenerCount(eventType string) int {
	return n.doc.listenerCount(n.raw, eventType)
}

// Dispatch delivers ev to the listeners of n and, for bubbling events, to
// those of every ancestor until propagation is stopped. The ancestor path is
// fixed before the first listener runs, so handlers that replace markup do
// not cut the event off from outer ancestors.
func (n *Node) Dispatch(ev *Event) {
	if n == nil || ev == nil {
		return
	}
	ev.Target = n

	path := []*html.Node{n.raw}
	if ev.Bubbles {
		for cur := n.raw.Parent; cur != nil; cur = cur.Parent {
			path = append(path, cur)
		}
	}
	for _, cur := range path {
		if handlers := n.doc.listenersFor(cur, ev.Type); len(handlers) > 0 {
			ev.CurrentTarget = n.doc.wrap(cur)
			for _, fn := range handlers {
				fn(ev)
			}
		}
		if ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil
}

// Click dispatches a bubbling click event from n.
func (n *Node) Click() {
	n.Dispatch(NewBubblingEvent("click", nil))
}
