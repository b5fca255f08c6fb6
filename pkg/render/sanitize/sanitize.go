// Package sanitize provides bluemonday policies for cleaning rendered grid
// markup before it replaces the target's content.
package sanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans a markup string. *bluemonday.Policy satisfies it.
type Sanitizer interface {
	Sanitize(markup string) string
}

// Func adapts a function to Sanitizer.
type Func func(markup string) string

// Sanitize calls f.
func (f Func) Sanitize(markup string) string {
	return f(markup)
}

var (
	gridPolicyOnce sync.Once
	gridPolicy     *bluemonday.Policy
)

// GridPolicy returns the shared policy for grid output: user generated
// content rules plus data- attributes (so action attributes survive) and
// class names on every element.
func GridPolicy() *bluemonday.Policy {
	gridPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowDataAttributes()
		policy.AllowAttrs("class").Globally()
		policy.AllowElements("button", "nav")
		policy.AllowAttrs("type", "disabled").OnElements("button")
		gridPolicy = policy
	})
	return gridPolicy
}

// Strict strips every tag, leaving text only.
func Strict() Sanitizer {
	return bluemonday.StrictPolicy()
}
