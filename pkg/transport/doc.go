// Package transport issues the grid's network call and decodes the
// `{results, meta}` payload. The Fetcher interface keeps the grid independent
// of net/http so callers can plug their own client.
package transport
