package federation

import (
	"context"
	"net/http"

	"github.com/go-kyugo/fedkyugo/fetch"
)

type outcomeKind int

const (
	outcomeHandled outcomeKind = iota
	outcomeNotFound
	outcomeNotAcceptable
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeNotFound:
		return "not_found"
	case outcomeNotAcceptable:
		return "not_acceptable"
	default:
		return "handled"
	}
}

// outcome is the single value the middleware branches on after Fetch.
//
// For outcomeHandled, response is what Fetch returned. For
// outcomeNotAcceptable, response is the 406 placeholder and routeMatched
// records the route lookup made when the federation reported the outcome
// (StrategySimple only).
type outcome struct {
	kind         outcomeKind
	response     *fetch.Response
	routeMatched bool
}

// invoke runs Fetch. The callbacks only record which signal the federation
// raised; acting on it is left to the caller. The first signal wins.
func (m *middleware[T]) invoke(ctx context.Context, r *http.Request, req *fetch.Request, data T) (outcome, error) {
	var (
		signaled bool
		out      outcome
	)
	res, err := m.fed.Fetch(ctx, req, FetchOptions[T]{
		ContextData: data,
		OnNotFound: func(*fetch.Request) *fetch.Response {
			placeholder := notFoundResponse()
			if !signaled {
				signaled = true
				out = outcome{kind: outcomeNotFound, response: placeholder}
			}
			return placeholder
		},
		OnNotAcceptable: func(*fetch.Request) *fetch.Response {
			placeholder := notAcceptableResponse()
			if !signaled {
				signaled = true
				out = outcome{kind: outcomeNotAcceptable, response: placeholder}
				if m.opts.Strategy == StrategySimple {
					out.routeMatched = m.opts.Matcher.Lookup(r)
				}
			}
			return placeholder
		},
	})
	if err != nil {
		return outcome{}, err
	}
	if signaled {
		return out, nil
	}
	if res == nil {
		return outcome{}, ErrNilResponse
	}
	return outcome{kind: outcomeHandled, response: res}, nil
}
