package template

import (
	"io"
)

// StringRenderer renders inline template source, the form grids read from a
// template element in the page.
type StringRenderer interface {
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
}

// NamedRenderer also renders templates the engine loads itself. Grids fall
// back to it when their template option does not match an element.
type NamedRenderer interface {
	StringRenderer
	// Lookup reports whether name resolves to a loadable template.
	Lookup(name string) error
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}

// TemplateRenderer is the full engine contract: inline and named templates,
// plus filters and globals shared by every render.
type TemplateRenderer interface {
	NamedRenderer
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
