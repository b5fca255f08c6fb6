package grid

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-datagrid/pkg/testsupport"
)

func TestConfigResolver_Precedence(t *testing.T) {
	cases := []struct {
		name       string
		markup     string
		options    Options
		defaults   Options
		want       any
		wantSource Source
	}{
		{
			name:       "attribute wins",
			markup:     `<div id="c" data-fetch-method="PUT"></div>`,
			options:    Options{OptionFetchMethod: "POST"},
			defaults:   Options{OptionFetchMethod: "GET"},
			want:       "PUT",
			wantSource: SourceAttribute,
		},
		{
			name:       "option when attribute absent",
			markup:     `<div id="c"></div>`,
			options:    Options{OptionFetchMethod: "POST"},
			defaults:   Options{OptionFetchMethod: "GET"},
			want:       "POST",
			wantSource: SourceOption,
		},
		{
			name:       "default when option absent",
			markup:     `<div id="c"></div>`,
			defaults:   Options{OptionFetchMethod: "GET"},
			want:       "GET",
			wantSource: SourceDefault,
		},
		{
			name:       "fallback last",
			markup:     `<div id="c"></div>`,
			want:       "HEAD",
			wantSource: SourceFallback,
		},
		{
			name:       "empty attribute is skipped",
			markup:     `<div id="c" data-fetch-method=""></div>`,
			options:    Options{OptionFetchMethod: "POST"},
			want:       "POST",
			wantSource: SourceOption,
		},
		{
			name:       "zero is a value",
			markup:     `<div id="c"></div>`,
			options:    Options{OptionFetchMethod: 0},
			defaults:   Options{OptionFetchMethod: "GET"},
			want:       0,
			wantSource: SourceOption,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := testsupport.MustParseDocument(t, tc.markup)
			resolver := NewConfigResolver(testsupport.MustQuery(t, doc, "#c"), tc.options, tc.defaults)

			got, source := resolver.Explain(OptionFetchMethod, "HEAD")
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("value mismatch (-want +got):\n%s", diff)
			}
			if source != tc.wantSource {
				t.Fatalf("source: got %s, want %s", source, tc.wantSource)
			}
		})
	}
}

func TestConfigResolver_ReadsAttributesLive(t *testing.T) {
	doc := testsupport.MustParseDocument(t, `<div id="c"></div>`)
	container := testsupport.MustQuery(t, doc, "#c")
	resolver := NewConfigResolver(container, Options{"perPage": 10}, nil)

	if got := resolver.Int("perPage", 0); got != 10 {
		t.Fatalf("perPage: got %d", got)
	}
	container.SetData("perPage", "25")
	if got := resolver.Int("perPage", 0); got != 25 {
		t.Fatalf("perPage after attribute change: got %d", got)
	}
	container.SetData("perPage", "lots")
	if got := resolver.Int("perPage", 7); got != 7 {
		t.Fatalf("unparsable perPage should fall back, got %d", got)
	}
}

func TestConfigResolver_StringMap(t *testing.T) {
	doc := testsupport.MustParseDocument(t, `<div id="c" data-fetch-headers='{"X-Token": "a", "X-Page": 2}'></div>`)
	resolver := NewConfigResolver(testsupport.MustQuery(t, doc, "#c"), nil, DefaultOptions())

	got, err := resolver.StringMap(OptionFetchHeaders)
	if err != nil {
		t.Fatalf("string map: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"X-Token": "a", "X-Page": "2"}, got); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}

	yamlDoc := testsupport.MustParseDocument(t, "<div id=\"c\" data-fetch-headers=\"X-Token: b\"></div>")
	resolver = NewConfigResolver(testsupport.MustQuery(t, yamlDoc, "#c"), nil, nil)
	got, err = resolver.StringMap(OptionFetchHeaders)
	if err != nil {
		t.Fatalf("yaml string map: %v", err)
	}
	if got["X-Token"] != "b" {
		t.Fatalf("yaml headers: got %v", got)
	}

	badDoc := testsupport.MustParseDocument(t, `<div id="c" data-fetch-headers="[1, 2"></div>`)
	resolver = NewConfigResolver(testsupport.MustQuery(t, badDoc, "#c"), nil, nil)
	if _, err := resolver.StringMap(OptionFetchHeaders); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigResolver_DefaultsOnly(t *testing.T) {
	resolver := NewConfigResolver(nil, nil, DefaultOptions())
	cases := map[string]string{
		OptionFetchMethod:      "GET",
		OptionFetchMode:        "same-origin",
		OptionFetchCredentials: "same-origin",
		OptionURL:              "",
	}
	for name, want := range cases {
		if got := resolver.String(name, ""); got != want {
			t.Errorf("%s: got %q, want %q", name, got, want)
		}
	}
	if got := resolver.Resolve(OptionFetchBody, "none"); got != "none" {
		t.Errorf("fetchBody: got %v", got)
	}
}
