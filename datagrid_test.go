package datagrid

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-datagrid/pkg/grid"
	"github.com/goliatone/go-datagrid/pkg/transport"
)

func TestMountHTML(t *testing.T) {
	engine, err := NewTemplateEngine()
	if err != nil {
		t.Fatalf("template engine: %v", err)
	}
	if err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		s, _ := input.(string)
		return strings.ToUpper(s), nil
	}); err != nil {
		t.Fatalf("register filter: %v", err)
	}

	markup := `<div id="grid" data-url="/items" data-target="#out" data-template="#tpl">
  <script type="text/template" id="tpl">{% for r in results %}{{ r|shout }}{% endfor %}</script>
  <p id="out"></p>
</div>`

	doc, g, err := MountHTML(context.Background(), markup, "#grid", nil,
		grid.WithRenderer(engine),
		grid.WithInstanceRegistry(grid.NewInstanceRegistry()),
		grid.WithPluginRegistry(grid.NewPluginRegistry()),
		grid.WithFetcher(transport.FetcherFunc(func(context.Context, string, transport.FetchParams) ([]byte, error) {
			return []byte(`{"results":["a","b"]}`), nil
		})),
	)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer g.Close()

	if !strings.Contains(doc.String(), `<p id="out">AB</p>`) {
		t.Fatalf("unexpected document:\n%s", doc.String())
	}
}
