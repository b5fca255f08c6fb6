package luaplugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-datagrid/pkg/grid"
	"github.com/goliatone/go-datagrid/pkg/testsupport"
	"github.com/goliatone/go-datagrid/pkg/transport"
)

const page = `<html><body>
<div id="grid" data-url="/items" data-id="people" data-label="People">
  <script type="text/template" id="tpl">{{ extra.title }}:{% for r in results %}{{ r.name }};{% endfor %}</script>
  <div id="out"></div>
  <button id="star" data-action-star data-who="ada">star</button>
</div>
</body></html>`

const payload = `{"results":[{"name":"ada","age":36},{"name":"bob","age":17},{"name":"cy","age":52}],"meta":{"total":3}}`

func mount(t *testing.T, scripts ...*Script) (*grid.Grid, *testsupport.LogSink) {
	t.Helper()
	plugins := grid.NewPluginRegistry()
	for _, s := range scripts {
		if !s.Register(plugins) {
			t.Fatalf("register %s", s.Name())
		}
	}
	logger, sink := testsupport.NewLogger()
	doc := testsupport.MustParseDocument(t, page)
	g, err := grid.Mount(context.Background(), doc, "#grid", grid.Options{
		grid.OptionTarget:   "#out",
		grid.OptionTemplate: "#tpl",
	},
		grid.WithLogger(logger),
		grid.WithFetcher(transport.FetcherFunc(func(context.Context, string, transport.FetchParams) ([]byte, error) {
			return []byte(payload), nil
		})),
		grid.WithPluginRegistry(plugins),
		grid.WithInstanceRegistry(grid.NewInstanceRegistry()),
	)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })
	return g, sink
}

func mustCompile(t *testing.T, name, source string, options ...Option) *Script {
	t.Helper()
	s, err := Compile(name, source, options...)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func TestScript_InitAndModify(t *testing.T) {
	s := mustCompile(t, "adults", `
function init(g)
  g.set_query("min_age", 18)
  g.set_extra("title", g.option("label", "none"))
end

function modify(g)
  local kept = {}
  for _, r in ipairs(g.results()) do
    if r.age >= 18 then table.insert(kept, r) end
  end
  g.set_results(kept)
  g.set_meta({total = #kept})
end
`)
	g, _ := mount(t, s)

	if got := g.Target().InnerHTML(); got != "People:ada;cy;" {
		t.Fatalf("target: got %q", got)
	}
	if got := g.RequestURL(); got != "/items?min_age=18" {
		t.Fatalf("request url: got %q", got)
	}
	if diff := cmp.Diff(map[string]any{"total": int64(2)}, g.Meta()); diff != "" {
		t.Fatalf("meta mismatch (-want +got):\n%s", diff)
	}
}

func TestScript_CapabilitiesFollowDefinedFunctions(t *testing.T) {
	initOnly := mustCompile(t, "init-only", `function init(g) g.set_extra("title", "T") end`)
	bare := mustCompile(t, "bare", `local x = 1`)

	if _, ok := initOnly.Factory().(grid.Modifier); ok {
		t.Fatal("script without modify should not expose a modify hook")
	}
	p := mustCompile(t, "both", `function modify(g) end`).Factory()
	if _, ok := p.(grid.Modifier); !ok {
		t.Fatal("script with modify should expose a modify hook")
	}
	_ = p.(interface{ Close() error }).Close()

	g, sink := mount(t, initOnly, bare)
	if got := g.Target().InnerHTML(); got != "T:ada;bob;cy;" {
		t.Fatalf("target: got %q", got)
	}
	if got := sink.Count("no modify hook"); got != 2 {
		t.Fatalf("expected two missing modify warnings, got %d", got)
	}
	if got := sink.Count("no init hook"); got != 0 {
		t.Fatalf("lua plugins always initialise, got %d warnings", got)
	}
}

func TestScript_EventsAndActions(t *testing.T) {
	s := mustCompile(t, "events", `
inserts = 0
function init(g)
  g.on("grid:insert:after", function(detail) inserts = inserts + 1 end)
  g.on_action("click", "star", function(detail, data)
    g.set_extra("title", "starred " .. data.who)
    local err = g.refresh()
    if err then error(err) end
  end)
  g.on("custom", function(detail) g.log("custom fired", "value", detail.value) end)
end
`)
	g, sink := mount(t, s)

	testsupport.MustQuery(t, g.Document(), "#star").Click()
	if got := g.Target().InnerHTML(); got != "starred ada:ada;bob;cy;" {
		t.Fatalf("target: got %q", got)
	}

	g.Fire("custom", map[string]any{"value": 7})
	if got := sink.Count("custom fired", "7"); got != 1 {
		t.Fatalf("expected script log line, got %v", sink.Lines())
	}

	p, _ := g.Plugin("events")
	if got := p.(*script).L.GetGlobal("inserts").String(); got != "2" {
		t.Fatalf("inserts: got %s", got)
	}
}

func TestScript_ErrorsAreLogged(t *testing.T) {
	s := mustCompile(t, "broken", `function modify(g) error("bad modify") end`)
	g, sink := mount(t, s)

	if got := g.Target().InnerHTML(); got != ":ada;bob;cy;" {
		t.Fatalf("pipeline should continue, got %q", got)
	}
	if got := sink.Count("lua modify failed", "bad modify"); got != 1 {
		t.Fatalf("expected logged modify failure, got %v", sink.Lines())
	}
}

func TestScript_Timeout(t *testing.T) {
	s := mustCompile(t, "spin", `function init(g) while true do end end`, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, sink := mount(t, s)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("script ran for %s", elapsed)
	}
	if got := sink.Count("lua init failed"); got != 1 {
		t.Fatalf("expected logged init failure, got %v", sink.Lines())
	}
}

func TestScript_SandboxAndLoadFailures(t *testing.T) {
	logger, sink := testsupport.NewLogger()
	s := mustCompile(t, "escape", `os.exit(1)`, WithLogger(logger))
	if p := s.Factory(); p != nil {
		t.Fatal("failing chunk should yield no plugin")
	}
	if got := sink.Count("failed to load"); got != 1 {
		t.Fatalf("expected load failure log, got %v", sink.Lines())
	}

	if _, err := Compile("syntax", `function (`); err == nil {
		t.Fatal("expected syntax error")
	}
	if _, err := Compile(" ", `x = 1`); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "title.lua")
	if err := os.WriteFile(path, []byte(`function init(g) g.set_extra("title", "file") end`), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	s, err := FromFile(path)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	if s.Name() != "title" {
		t.Fatalf("name: got %q", s.Name())
	}
	g, _ := mount(t, s)
	if got := g.Target().InnerHTML(); !strings.HasPrefix(got, "file:") {
		t.Fatalf("target: got %q", got)
	}

	if _, err := FromFile(filepath.Join(dir, "missing.lua")); err == nil {
		t.Fatal("expected read error")
	}
}
