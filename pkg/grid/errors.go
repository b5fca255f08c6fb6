package grid

import "errors"

var (
	// ErrAlreadyBound is returned by New when the container selector is
	// already bound to another grid.
	ErrAlreadyBound = errors.New("grid: container already bound")
	// ErrNilDocument is returned by New without a document.
	ErrNilDocument = errors.New("grid: document is required")
	// ErrContainerNotFound reports a container selector matching no node.
	ErrContainerNotFound = errors.New("grid: container not found")
	// ErrTargetNotFound reports a target selector matching no node.
	ErrTargetNotFound = errors.New("grid: target not found")
	// ErrTemplateNotFound reports a template selector matching no node.
	ErrTemplateNotFound = errors.New("grid: template not found")
	// ErrFetchFailed wraps transport and decoding failures of the fetch stage.
	ErrFetchFailed = errors.New("grid: fetch failed")
	// ErrRenderFailed wraps template engine failures.
	ErrRenderFailed = errors.New("grid: render failed")
	// ErrClosed is returned by pipeline calls on a closed grid.
	ErrClosed = errors.New("grid: instance closed")
)
