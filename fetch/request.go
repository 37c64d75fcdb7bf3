package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrBodyNotAllowed is returned when a GET or HEAD request is given a body.
	ErrBodyNotAllowed = errors.New("fetch: request with GET/HEAD method cannot have body")
	// ErrInvalidURL is returned when a request URL is not absolute.
	ErrInvalidURL = errors.New("fetch: invalid request url")
)

// RequestInit carries the optional parts of a Request.
type RequestInit struct {
	Headers *Headers
	Body    *Stream
}

// Request is an immutable HTTP request. Accessors return copies so the
// value can be handed to a federation handler without being altered.
type Request struct {
	method  string
	url     *url.URL
	headers *Headers
	body    *Stream
}

// NewRequest validates method and rawURL and builds a Request. The
// method is upper-cased; the URL must be absolute.
func NewRequest(method, rawURL string, init RequestInit) (*Request, error) {
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, rawURL)
	}
	if init.Body != nil && !MethodAllowsBody(method) {
		return nil, ErrBodyNotAllowed
	}

	return &Request{
		method:  method,
		url:     u,
		headers: init.Headers.Clone(),
		body:    init.Body,
	}, nil
}

// MethodAllowsBody reports whether a request with method may carry a body.
func MethodAllowsBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return false
	}
	return true
}

// Method returns the request method.
func (r *Request) Method() string { return r.method }

// URL returns a copy of the request URL.
func (r *Request) URL() *url.URL {
	u := *r.url
	return &u
}

// Headers returns a copy of the request headers.
func (r *Request) Headers() *Headers { return r.headers.Clone() }

// Body returns the body stream, or nil for a bodyless request.
func (r *Request) Body() *Stream { return r.body }

// Bytes drains the body. A bodyless request yields nil.
func (r *Request) Bytes() ([]byte, error) {
	if r.body == nil {
		return nil, nil
	}
	return r.body.Bytes()
}

// Text drains the body as a string.
func (r *Request) Text() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}
