package dom

import "errors"

var (
	// ErrInvalidSelector reports a selector cascadia could not compile.
	ErrInvalidSelector = errors.New("dom: invalid selector")
	// ErrNotElement reports an element-only operation on another node kind.
	ErrNotElement = errors.New("dom: node is not an element")
)
