// Package dom is the document model the grid binds to. Documents are parsed
// with golang.org/x/net/html, queried with cascadia selectors and carry a
// synchronous event model (listeners, dispatch, bubbling) so containers can
// fire lifecycle events and delegate DOM-triggered actions without a browser.
package dom
