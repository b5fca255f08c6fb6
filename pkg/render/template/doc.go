// Package template defines the engine contract the grid renders through and
// hosts the pongo2 adapter in the gotemplate subpackage. Any engine that can
// turn template source plus a data context into markup satisfies
// StringRenderer.
package template
