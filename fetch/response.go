package fetch

import "net/http"

// ResponseInit carries the optional parts of a Response. A zero Status
// means 200.
type ResponseInit struct {
	Status  int
	Headers *Headers
}

// Response is an immutable HTTP response with an optional, lazily read
// body.
type Response struct {
	status  int
	headers *Headers
	body    *Stream
}

// NewResponse builds a Response. body may be nil.
func NewResponse(body *Stream, init ResponseInit) *Response {
	status := init.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{
		status:  status,
		headers: init.Headers.Clone(),
		body:    body,
	}
}

// TextResponse builds a Response with a plain string body.
func TextResponse(text string, init ResponseInit) *Response {
	return NewResponse(TextStream(text), init)
}

// Status returns the status code.
func (r *Response) Status() int { return r.status }

// StatusText returns the reason phrase for the status code.
func (r *Response) StatusText() string { return http.StatusText(r.status) }

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool { return r.status >= 200 && r.status < 300 }

// Headers returns a copy of the response headers.
func (r *Response) Headers() *Headers { return r.headers.Clone() }

// Body returns the body stream, or nil when the response has none.
func (r *Response) Body() *Stream { return r.body }

// Bytes drains the body. A bodyless response yields nil.
func (r *Response) Bytes() ([]byte, error) {
	if r.body == nil {
		return nil, nil
	}
	return r.body.Bytes()
}

// Text drains the body as a string.
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}
