package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-datagrid/pkg/dom"
)

// MustParseDocument parses markup into a dom.Document, failing the test on
// error.
func MustParseDocument(t *testing.T, markup string) *dom.Document {
	t.Helper()

	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

// MustQuery returns the first node matching selector or fails the test.
func MustQuery(t *testing.T, doc *dom.Document, selector string) *dom.Node {
	t.Helper()

	node, err := doc.QuerySelector(selector)
	if err != nil {
		t.Fatalf("query %q: %v", selector, err)
	}
	if node == nil {
		t.Fatalf("query %q: no match", selector)
	}
	return node
}

// LogSink collects log lines emitted through a funcr logger.
type LogSink struct {
	mu    sync.Mutex
	lines []string
}

// NewLogger returns a logger whose records land in the returned sink.
func NewLogger() (logr.Logger, *LogSink) {
	sink := &LogSink{}
	logger := funcr.New(func(prefix, args string) {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		if prefix != "" {
			args = prefix + " " + args
		}
		sink.lines = append(sink.lines, args)
	}, funcr.Options{Verbosity: 1})
	return logger, sink
}

// Lines returns a copy of the captured records.
func (s *LogSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Count reports how many records contain every fragment.
func (s *LogSink) Count(fragments ...string) int {
	n := 0
	for _, line := range s.Lines() {
		matched := true
		for _, fragment := range fragments {
			if !strings.Contains(line, fragment) {
				matched = false
				break
			}
		}
		if matched {
			n++
		}
	}
	return n
}

// JSONServer serves a fixed JSON payload and records requested URLs.
type JSONServer struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	payload  string
	requests []*http.Request
	bodies   []string
}

// NewJSONServer starts a server answering every request with payload.
func NewJSONServer(t *testing.T, payload string) *JSONServer {
	t.Helper()

	s := &JSONServer{status: http.StatusOK, payload: payload}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(context.Background()))
		s.bodies = append(s.bodies, string(body))
		status, body := s.status, s.payload
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

// Respond swaps the status and payload served from now on.
func (s *JSONServer) Respond(status int, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.payload = payload
}

// Requests returns the requests received so far.
func (s *JSONServer) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// Bodies returns the request bodies received so far, in order.
func (s *JSONServer) Bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents. Tests can assert
// the renderer returns and writes the same payload without duplicating buffer
// setup.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
