package pagination

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-datagrid/pkg/grid"
	"github.com/goliatone/go-datagrid/pkg/testsupport"
	"github.com/goliatone/go-datagrid/pkg/transport"
)

const page = `<html><body>
<div id="grid" data-url="/items" data-per-page="2">
  <script type="text/template" id="tpl">{{ extra.pagination.page }}/{{ extra.pagination.pages }}:{% for r in results %}{{ r }}{% endfor %}</script>
  <div id="out"></div>
  <button id="first" data-action-go-first>first</button>
  <button id="prev" data-action-go-prev>prev</button>
  <button id="next" data-action-go-next>next</button>
  <button id="last" data-action-go-last>last</button>
  <button id="p2" data-action-go-page data-page="2">2</button>
</div>
</body></html>`

type recordingFetcher struct {
	queries []url.Values
}

func (f *recordingFetcher) Fetch(_ context.Context, rawURL string, _ transport.FetchParams) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	f.queries = append(f.queries, u.Query())
	switch u.Query().Get("page") {
	case "1":
		return []byte(`{"results":["a","b"],"meta":{"total":5}}`), nil
	case "2":
		return []byte(`{"results":["c","d"],"meta":{"total":5}}`), nil
	default:
		return []byte(`{"results":["e"],"meta":{"total":5}}`), nil
	}
}

func newGrid(t *testing.T) (*grid.Grid, *recordingFetcher) {
	t.Helper()
	doc := testsupport.MustParseDocument(t, page)
	plugins := grid.NewPluginRegistry()
	if !Register(plugins) {
		t.Fatal("register pagination")
	}
	fetcher := &recordingFetcher{}
	g, err := grid.Mount(context.Background(), doc, "#grid", grid.Options{
		grid.OptionTarget:   "#out",
		grid.OptionTemplate: "#tpl",
	},
		grid.WithFetcher(fetcher),
		grid.WithPluginRegistry(plugins),
		grid.WithInstanceRegistry(grid.NewInstanceRegistry()),
	)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })
	return g, fetcher
}

func click(t *testing.T, g *grid.Grid, selector string) {
	t.Helper()
	testsupport.MustQuery(t, g.Document(), selector).Click()
}

func TestPagination_SeedsQueryAndSummary(t *testing.T) {
	g, fetcher := newGrid(t)

	if got := g.RequestURL(); got != "/items?page=1&limit=2" {
		t.Fatalf("request url: got %q", got)
	}
	if len(fetcher.queries) != 1 {
		t.Fatalf("expected one fetch, got %d", len(fetcher.queries))
	}
	if got := g.Target().InnerHTML(); got != "1/3:ab" {
		t.Fatalf("target: got %q", got)
	}

	summary, ok := g.Extra()["pagination"].(map[string]any)
	if !ok {
		t.Fatalf("missing pagination summary: %#v", g.Extra())
	}
	want := map[string]any{
		"page": 1, "perPage": 2, "total": 5, "pages": 3,
		"numbers": []int{1, 2, 3}, "hasPrev": false, "hasNext": true,
	}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestPagination_Actions(t *testing.T) {
	g, fetcher := newGrid(t)

	steps := []struct {
		selector string
		want     string
	}{
		{"#next", "2/3:cd"},
		{"#last", "3/3:e"},
		{"#next", "3/3:e"},
		{"#prev", "2/3:cd"},
		{"#first", "1/3:ab"},
		{"#p2", "2/3:cd"},
	}
	for _, step := range steps {
		click(t, g, step.selector)
		if got := g.Target().InnerHTML(); got != step.want {
			t.Fatalf("after %s: got %q, want %q", step.selector, got, step.want)
		}
	}

	var pages []string
	for _, q := range fetcher.queries {
		pages = append(pages, q.Get("page"))
	}
	// Clicking next on the last page does not fetch.
	if diff := cmp.Diff([]string{"1", "2", "3", "2", "1", "2"}, pages); diff != "" {
		t.Fatalf("fetched pages mismatch (-want +got):\n%s", diff)
	}
}

func TestPagination_WithoutTotal(t *testing.T) {
	doc := testsupport.MustParseDocument(t, page)
	plugins := grid.NewPluginRegistry()
	Register(plugins)

	g, err := grid.Mount(context.Background(), doc, "#grid", grid.Options{
		grid.OptionTarget:   "#out",
		grid.OptionTemplate: "#tpl",
	},
		grid.WithFetcher(transport.FetcherFunc(func(context.Context, string, transport.FetchParams) ([]byte, error) {
			return []byte(`{"results":[]}`), nil
		})),
		grid.WithPluginRegistry(plugins),
		grid.WithInstanceRegistry(grid.NewInstanceRegistry()),
	)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer g.Close()

	p, _ := g.Plugin(Name)
	pager := p.(*Plugin)
	if pager.Total() != -1 {
		t.Fatalf("total: got %d", pager.Total())
	}
	if err := pager.GoTo(4); err != nil {
		t.Fatalf("goto: %v", err)
	}
	if pager.Page() != 4 {
		t.Fatalf("page: got %d", pager.Page())
	}
}

func TestPagination_FirstPageSnapshot(t *testing.T) {
	g, _ := newGrid(t)

	snapshot := map[string]any{
		"request_url": g.RequestURL(),
		"rendered":    g.Rendered(),
		"extra":       g.Extra(),
	}
	path := filepath.Join("testdata", "first_page.golden.json")
	testsupport.WriteGolden(t, path, snapshot)

	var want, got map[string]any
	if err := json.Unmarshal(testsupport.MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("decode golden: %v", err)
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func mountWithMeta(t *testing.T, meta string, options grid.Options) *Plugin {
	t.Helper()
	doc := testsupport.MustParseDocument(t, page)
	plugins := grid.NewPluginRegistry()
	Register(plugins)

	options[grid.OptionTarget] = "#out"
	options[grid.OptionTemplate] = "#tpl"
	g, err := grid.Mount(context.Background(), doc, "#grid", options,
		grid.WithFetcher(transport.FetcherFunc(func(context.Context, string, transport.FetchParams) ([]byte, error) {
			return []byte(`{"results":["a"],"meta":` + meta + `}`), nil
		})),
		grid.WithPluginRegistry(plugins),
		grid.WithInstanceRegistry(grid.NewInstanceRegistry()),
	)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })

	p, ok := g.Plugin(Name)
	if !ok {
		t.Fatal("pagination plugin not active")
	}
	return p.(*Plugin)
}

func TestPagination_HugeTotal(t *testing.T) {
	tests := []struct {
		name string
		meta string
	}{
		{"int64 total", `{"total":9000000000000000000}`},
		{"float total", `{"total":1e300}`},
		{"string total", `{"total":"99999999999999999999"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pager := mountWithMeta(t, tt.meta, grid.Options{})

			summary := pager.grid.Extra()["pagination"].(map[string]any)
			if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6}, summary["numbers"]); diff != "" {
				t.Fatalf("numbers mismatch (-want +got):\n%s", diff)
			}
			if pages := summary["pages"].(int); pages < 1 {
				t.Fatalf("pages overflowed: %d", pages)
			}
			if summary["hasNext"] != true {
				t.Fatalf("hasNext: got %v", summary["hasNext"])
			}
		})
	}
}

func TestPagination_NumbersWindow(t *testing.T) {
	pager := mountWithMeta(t, `{"total":100}`, grid.Options{
		OptionPage:   10,
		OptionWindow: 2,
	})

	summary := pager.grid.Extra()["pagination"].(map[string]any)
	if diff := cmp.Diff([]int{8, 9, 10, 11, 12}, summary["numbers"]); diff != "" {
		t.Fatalf("numbers mismatch (-want +got):\n%s", diff)
	}
	if summary["pages"] != 50 {
		t.Fatalf("pages: got %v", summary["pages"])
	}
}
