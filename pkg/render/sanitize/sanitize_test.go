package sanitize

import (
	"strings"
	"testing"
)

func TestGridPolicy_KeepsActionAttributes(t *testing.T) {
	in := `<table class="grid"><tr><td>Ada</td></tr></table>` +
		`<button type="button" data-action-go-next="">next</button>` +
		`<script>alert(1)</script><a href="javascript:alert(1)">x</a>`

	out := GridPolicy().Sanitize(in)

	for _, want := range []string{`<table class="grid">`, `<td>Ada</td>`, `data-action-go-next`, `<button type="button"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in sanitised output %q", want, out)
		}
	}
	for _, unwanted := range []string{"<script", "javascript:"} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("did not expect %q in sanitised output %q", unwanted, out)
		}
	}
}

func TestStrictAndFunc(t *testing.T) {
	if got := Strict().Sanitize(`<b>bold</b>`); got != "bold" {
		t.Fatalf("strict sanitize = %q", got)
	}
	upper := Func(strings.ToUpper)
	if got := upper.Sanitize("ok"); got != "OK" {
		t.Fatalf("func sanitize = %q", got)
	}
}
