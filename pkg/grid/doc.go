// Package grid binds a data grid to a container node of a dom.Document and
// drives its pipeline: fetch remote records, let plugins modify instance
// state, render a template and replace the target's content.
//
// Configuration cascades from the container's data- attributes through the
// instance options and the class defaults down to a caller fallback, and is
// re-resolved on every read. Plugins are registered once per process in a
// PluginRegistry and instantiated for every grid; each may implement Init,
// Modify, both or neither. Lifecycle events (grid:fetch:before,
// grid:fetch:fail, grid:fetch:after, grid:render:*, grid:insert:*) are
// dispatched on the container, and Listen delegates DOM actions tagged with
// data-action-* attributes.
//
// A Grid is driven from a single goroutine; its stages never overlap and the
// only blocking point is the network call inside Fetch.
package grid
