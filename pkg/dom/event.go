package dom

// Listener handles a dispatched event.
type Listener func(ev *Event)

// Event is a synchronous DOM-style event.
type Event struct {
	Type    string
	Bubbles bool
	Detail  map[string]any

	// Target is the node the event was dispatched from; CurrentTarget the
	// node whose listener is running.
	Target        *Node
	CurrentTarget *Node

	stopped bool
}

// NewEvent creates a non-bubbling event.
func NewEvent(eventType string, detail map[string]any) *Event {
	return &Event{Type: eventType, Detail: detail}
}

// NewBubblingEvent creates an event that propagates to ancestors.
func NewBubblingEvent(eventType string, detail map[string]any) *Event {
	return &Event{Type: eventType, Bubbles: true, Detail: detail}
}

// StopPropagation prevents delivery to further ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool {
	return e.stopped
}
