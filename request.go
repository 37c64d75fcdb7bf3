package kyugo

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/go-kyugo/fedkyugo/validation"
)

// Request is a small wrapper around *http.Request providing convenience
// methods used by handlers in the codebase.
type Request struct {
	R *http.Request
}

// NewRequest wraps an *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{R: r}
}

// Param returns a URL parameter value by name.
func (r *Request) Param(name string) string {
	if r == nil || r.R == nil {
		return ""
	}
	return chi.URLParam(r.R, name)
}

// BindJSON decodes the request body into v. Returns an error if decoding
// fails or the request is nil.
func (r *Request) BindJSON(v any) error {
	if r == nil || r.R == nil {
		return errors.New("nil request")
	}
	dec := json.NewDecoder(r.R.Body)
	return dec.Decode(v)
}

// Bind decodes the JSON body into v and validates it. Validation failures
// are returned as validator errors; pass them to Response.ValidationError.
func (r *Request) Bind(v any) error {
	if err := r.BindJSON(v); err != nil {
		return err
	}
	return validation.Validate(v)
}

// Method returns the HTTP method.
func (r *Request) Method() string {
	if r == nil || r.R == nil {
		return ""
	}
	return r.R.Method
}

// Path returns the request URL path.
func (r *Request) Path() string {
	if r == nil || r.R == nil {
		return ""
	}
	return r.R.URL.Path
}

// RemoteAddr returns the client's remote address.
func (r *Request) RemoteAddr() string {
	if r == nil || r.R == nil {
		return ""
	}
	return r.R.RemoteAddr
}

// ID returns the request id assigned by the RequestID middleware.
func (r *Request) ID() string {
	if r == nil || r.R == nil {
		return ""
	}
	return RequestIDFrom(r.R.Context())
}
