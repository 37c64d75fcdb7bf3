package federation

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-kyugo/fedkyugo/fetch"
)

var (
	// ErrNilFederation is raised by Integrate when no federation is given.
	ErrNilFederation = errors.New("federation: nil federation")
	// ErrNilResponse is reported when Fetch returns neither a response nor an error.
	ErrNilResponse = errors.New("federation: fetch returned nil response")
)

// Federation is the protocol handler the adapter bridges to. Fetch either
// produces a response for req or calls one of the callbacks in opts and
// returns whatever the callback returned.
type Federation[T any] interface {
	Fetch(ctx context.Context, req *fetch.Request, opts FetchOptions[T]) (*fetch.Response, error)
}

// FederationFunc adapts a function to Federation.
type FederationFunc[T any] func(ctx context.Context, req *fetch.Request, opts FetchOptions[T]) (*fetch.Response, error)

// Fetch calls f.
func (f FederationFunc[T]) Fetch(ctx context.Context, req *fetch.Request, opts FetchOptions[T]) (*fetch.Response, error) {
	return f(ctx, req, opts)
}

// FetchOptions is handed to Federation.Fetch for every exchange.
type FetchOptions[T any] struct {
	ContextData T

	// OnNotFound is called when req is not a federation route.
	OnNotFound func(req *fetch.Request) *fetch.Response

	// OnNotAcceptable is called when req is a federation route but the
	// client does not accept any representation the federation serves.
	OnNotAcceptable func(req *fetch.Request) *fetch.Response
}

// ContextDataFactory produces the per-exchange context data. It is called
// once per request, before Fetch.
type ContextDataFactory[T any] func(r *http.Request) (T, error)

// notFoundResponse is returned to the federation from OnNotFound. It is
// never sent.
func notFoundResponse() *fetch.Response {
	return fetch.TextResponse("Not found", fetch.ResponseInit{Status: http.StatusNotFound})
}

func notAcceptableResponse() *fetch.Response {
	h := fetch.NewHeaders()
	h.Append("Content-Type", "text/plain")
	h.Append("Vary", "Accept")
	return fetch.TextResponse("Not acceptable", fetch.ResponseInit{
		Status:  http.StatusNotAcceptable,
		Headers: h,
	})
}
