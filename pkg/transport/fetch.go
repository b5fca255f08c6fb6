package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetch modes and credential policies understood by HTTP.
const (
	ModeSameOrigin = "same-origin"
	ModeCORS       = "cors"
	ModeNoCORS     = "no-cors"

	CredentialsOmit       = "omit"
	CredentialsSameOrigin = "same-origin"
	CredentialsInclude    = "include"
)

var (
	// ErrCrossOrigin reports a same-origin request aimed at another origin.
	ErrCrossOrigin = errors.New("transport: cross-origin request in same-origin mode")
	// ErrRelativeURL reports a relative URL with no origin to resolve it against.
	ErrRelativeURL = errors.New("transport: relative url requires an origin")
)

// FetchParams carries the request settings resolved by the grid. Body may be
// a string, []byte, io.Reader or any JSON-encodable value; readers are
// consumed by a single request, so callers that send the same params more
// than once pass them through Buffered first.
type FetchParams struct {
	Method      string
	Headers     map[string]string
	Body        any
	Mode        string
	Credentials string
}

// Buffered returns a copy of p whose io.Reader body, if any, has been read
// into a []byte so the params can be sent repeatedly.
func (p FetchParams) Buffered() (FetchParams, error) {
	reader, ok := p.Body.(io.Reader)
	if !ok {
		return p, nil
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return p, fmt.Errorf("transport: buffer body: %w", err)
	}
	p.Body = data
	return p, nil
}

// Fetcher performs the grid's network call and returns the raw body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params FetchParams) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, rawURL string, params FetchParams) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string, params FetchParams) ([]byte, error) {
	return f(ctx, rawURL, params)
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "transport: unexpected status " + e.Status
}

// Option configures an HTTP fetcher.
type Option func(*HTTP)

// WithClient swaps the underlying http.Client.
func WithClient(client *http.Client) Option {
	return func(h *HTTP) {
		if client != nil {
			h.client = client
		}
	}
}

// WithOrigin sets the origin relative URLs resolve against and which the
// same-origin mode and credential policy compare with.
func WithOrigin(origin string) Option {
	return func(h *HTTP) {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			return
		}
		if parsed, err := url.Parse(trimmed); err == nil {
			h.origin = parsed
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) {
		h.timeout = d
	}
}

// HTTP is the net/http backed Fetcher.
type HTTP struct {
	client  *http.Client
	origin  *url.URL
	timeout time.Duration
}

var _ Fetcher = (*HTTP)(nil)

// NewHTTP constructs an HTTP fetcher using http.DefaultClient unless
// overridden.
func NewHTTP(options ...Option) *HTTP {
	h := &HTTP{client: http.DefaultClient}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h
}

// Fetch issues the request described by params.
func (h *HTTP) Fetch(ctx context.Context, rawURL string, params FetchParams) ([]byte, error) {
	target, err := h.resolve(rawURL)
	if err != nil {
		return nil, err
	}

	sameOrigin := h.sameOrigin(target)
	if strings.EqualFold(params.Mode, ModeSameOrigin) && !sameOrigin {
		return nil, fmt.Errorf("%w: %s", ErrCrossOrigin, target.Redacted())
	}

	reqCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	method := strings.ToUpper(strings.TrimSpace(params.Method))
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := encodeBody(method, params.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range params.Headers {
		req.Header.Set(key, value)
	}

	client := h.client
	if !h.sendCredentials(params.Credentials, sameOrigin) {
		req.Header.Del("Authorization")
		if client.Jar != nil {
			stripped := *client
			stripped.Jar = nil
			client = &stripped
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: read body: %w", err)
	}
	return data, nil
}

func (h *HTTP) resolve(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("transport: parse url: %w", err)
	}
	if parsed.IsAbs() {
		return parsed, nil
	}
	if h.origin == nil {
		return nil, fmt.Errorf("%w: %q", ErrRelativeURL, rawURL)
	}
	return h.origin.ResolveReference(parsed), nil
}

// sameOrigin treats every request as same-origin when no origin is set.
func (h *HTTP) sameOrigin(target *url.URL) bool {
	if h.origin == nil {
		return true
	}
	return strings.EqualFold(h.origin.Scheme, target.Scheme) &&
		strings.EqualFold(h.origin.Host, target.Host)
}

func (h *HTTP) sendCredentials(policy string, sameOrigin bool) bool {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case CredentialsOmit:
		return false
	case CredentialsInclude:
		return true
	default:
		return sameOrigin
	}
}

func encodeBody(method string, body any) (io.Reader, string, error) {
	if body == nil || method == http.MethodGet || method == http.MethodHead {
		return nil, "", nil
	}
	switch v := body.(type) {
	case string:
		if v == "" {
			return nil, "", nil
		}
		return strings.NewReader(v), "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case io.Reader:
		return v, "", nil
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("transport: encode body: %w", err)
		}
		return bytes.NewReader(payload), "application/json", nil
	}
}
