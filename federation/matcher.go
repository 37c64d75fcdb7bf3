package federation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteMatcher exposes the hosting router's route-match state to the
// adapter.
type RouteMatcher interface {
	// Lookup reports whether the router has a route for r without
	// dispatching it.
	Lookup(r *http.Request) bool

	// Watch is called before r is handed to the downstream chain. The
	// returned probe is called with the status of the first response the
	// chain starts writing and reports whether it comes from a matched
	// route.
	Watch(r *http.Request) RouteProbe
}

// RouteProbe reports whether the downstream response with the given status
// was produced by a matched route.
type RouteProbe func(status int) bool

// ChiMatcher reads route-match state from the chi routing context. chi
// records a route pattern on the shared *chi.Context before the matched
// handler runs and records nothing for the not-found and
// method-not-allowed handlers. A mounted subrouter records its "/*"
// pattern before it knows whether anything inside it matches, so a new
// pattern is confirmed against the root router's tree.
type ChiMatcher struct{}

// Lookup asks the root chi router whether it would route r.
func (ChiMatcher) Lookup(r *http.Request) bool {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return false
	}
	return matchRoute(rctx.Routes, r)
}

// Watch snapshots the recorded patterns; a matched route appends one.
func (ChiMatcher) Watch(r *http.Request) RouteProbe {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return StatusMatcher{}.Watch(r)
	}
	routes := rctx.Routes
	before := len(rctx.RoutePatterns)
	return func(int) bool {
		if len(rctx.RoutePatterns) == before {
			return false
		}
		return routes == nil || matchRoute(routes, r)
	}
}

// matchRoute descends into mounted subrouters.
func matchRoute(routes chi.Routes, r *http.Request) bool {
	path := r.URL.RawPath
	if path == "" {
		path = r.URL.Path
	}
	return routes.Match(chi.NewRouteContext(), r.Method, path)
}

// StatusMatcher serves routers that expose no match state: a downstream
// 404 or 405 is taken to mean no route matched. Lookup always reports
// false, so with StrategySimple every not-acceptable exchange gets a 406.
type StatusMatcher struct{}

// Lookup always reports false.
func (StatusMatcher) Lookup(*http.Request) bool { return false }

// Watch treats 404 and 405 as unmatched.
func (StatusMatcher) Watch(*http.Request) RouteProbe {
	return func(status int) bool {
		return status != http.StatusNotFound && status != http.StatusMethodNotAllowed
	}
}
