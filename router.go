package kyugo

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

// Middleware is the standard net/http middleware signature used throughout
// kyugo.
type Middleware = func(http.Handler) http.Handler

// Router is a lightweight wrapper around an underlying chi router that
// exposes a small, fluent API.
type Router struct {
	mux    *chi.Mux
	server *Server
	routed atomic.Bool

	mu     sync.RWMutex
	routes map[string]*route // METHOD pattern -> route
	names  map[string]string // name -> METHOD pattern
}

type route struct {
	method  string
	pattern string
	name    string

	mu  sync.RWMutex
	mws []Middleware
}

func (rr *route) middlewares() []Middleware {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	return rr.mws
}

// NewRouter creates a new Router instance.
func NewRouter() *Router {
	return &Router{
		mux:    chi.NewRouter(),
		routes: make(map[string]*route),
		names:  make(map[string]string),
	}
}

// Registrer is implemented by controllers/components that need to be
// initialized with the server and register routes on a Router.
type Registrer interface {
	Init(*Server)
	RegisterRoutes(*Router)
}

// Controller initializes the provided Registrer with the server and
// calls its RegisterRoutes method so it can register routes on this router.
func (rt *Router) Controller(controller Registrer) *Router {
	if rt == nil || controller == nil {
		return rt
	}
	controller.Init(rt.server)
	controller.RegisterRoutes(rt)
	return rt
}

// Use appends middleware to the router stack. Like chi, it must be called
// before the first route is registered.
func (rt *Router) Use(mws ...Middleware) *Router {
	rt.mux.Use(mws...)
	return rt
}

// NotFound sets the handler for requests no route matches.
func (rt *Router) NotFound(h interface{}) *Router {
	rt.mux.NotFound(handlerToHTTP(h).ServeHTTP)
	return rt
}

// MethodNotAllowed sets the handler for paths that match a route under a
// different method.
func (rt *Router) MethodNotAllowed(h interface{}) *Router {
	rt.mux.MethodNotAllowed(handlerToHTTP(h).ServeHTTP)
	return rt
}

// Convenience methods on Router so callers can register routes directly
// without creating a Group first: `r.Get(...)`, `r.Post(...)`, etc.
func (rt *Router) Get(p string, h interface{}, mws ...Middleware) *RouteChain {
	return rt.Group("/").Get(p, h, mws...)
}

func (rt *Router) Post(p string, h interface{}, mws ...Middleware) *RouteChain {
	return rt.Group("/").Post(p, h, mws...)
}

func (rt *Router) Put(p string, h interface{}, mws ...Middleware) *RouteChain {
	return rt.Group("/").Put(p, h, mws...)
}

func (rt *Router) Patch(p string, h interface{}, mws ...Middleware) *RouteChain {
	return rt.Group("/").Patch(p, h, mws...)
}

func (rt *Router) Delete(p string, h interface{}, mws ...Middleware) *RouteChain {
	return rt.Group("/").Delete(p, h, mws...)
}

// Handler returns the router as the http.Handler to be used with
// ListenAndServe.
func (rt *Router) Handler() http.Handler {
	return rt
}

// ServeHTTP dispatches to chi. chi assembles the middleware stack only when
// the first route is registered and otherwise answers with its not-found
// handler directly; until then the stack set with Use is run here in front
// of that handler, so middleware such as the federation adapter sees every
// request.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if rt.routed.Load() {
		rt.mux.ServeHTTP(w, r)
		return
	}
	rctx := chi.NewRouteContext()
	rctx.Routes = rt.mux
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	chi.Chain(rt.mux.Middlewares()...).Handler(rt.mux.NotFoundHandler()).ServeHTTP(w, r)
}

// Group creates a route group rooted at the provided prefix.
func (rt *Router) Group(prefix string) *Group {
	return &Group{rt: rt, parent: rt.mux, prefix: prefix}
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method  string
	Pattern string
	Name    string
}

// Routes lists the registered routes sorted by pattern, then method.
func (rt *Router) Routes() []RouteInfo {
	var out []RouteInfo
	_ = chi.Walk(rt.mux, func(method, pattern string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		info := RouteInfo{Method: method, Pattern: pattern}
		rt.mu.RLock()
		if r, ok := rt.routes[routeKey(method, pattern)]; ok {
			info.Name = r.name
		}
		rt.mu.RUnlock()
		out = append(out, info)
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)(:[^}]+)?\}`)

// URLFor builds a path for a named route using the provided params map.
// Parameters replace placeholders like `{id}` or `{id:regex}` in the route
// template. It reports false when the name is unknown or a parameter is
// missing.
func (rt *Router) URLFor(name string, params map[string]string) (string, bool) {
	if rt == nil || name == "" {
		return "", false
	}
	rt.mu.RLock()
	key, ok := rt.names[name]
	var tpl string
	if ok {
		tpl = rt.routes[key].pattern
	}
	rt.mu.RUnlock()
	if !ok {
		return "", false
	}

	complete := true
	out := placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		k := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := params[k]
		if !ok || v == "" {
			complete = false
			return ""
		}
		return v
	})
	if !complete {
		return "", false
	}
	return out, true
}

// Group represents a group of routes under a common prefix.
type Group struct {
	rt     *Router
	parent chi.Router
	prefix string
}

// With returns a new Group that applies the provided middleware to all
// routes registered through it. This mirrors chi's `With` behaviour and
// allows `router.Group("/x").With(mw).Get(...)` usage.
func (g *Group) With(mws ...Middleware) *Group {
	return &Group{rt: g.rt, parent: g.parent.With(mws...), prefix: g.prefix}
}

// Use applies middleware to the group's parent router in-place and returns
// the same group for chaining. This mirrors chi's `Use` behaviour.
func (g *Group) Use(mws ...Middleware) *Group {
	g.parent.Use(mws...)
	return g
}

// Middleware is an alias for Use to allow a consistent chainable name
// between groups and routes: `group.Middleware(mw...)`.
func (g *Group) Middleware(mws ...Middleware) *Group {
	return g.Use(mws...)
}

func join(prefix, p string) string {
	if prefix == "" || prefix == "/" {
		return p
	}
	return path.Join(prefix, p)
}

// RouteChain configures the route registered just before it.
type RouteChain struct {
	rt    *Router
	route *route
}

// Middleware registers middleware for the previously-registered route.
// It wraps only that route's handler, inside any router or group
// middleware:
//
//	group.Post(...).Middleware(mw1, mw2)
func (rc *RouteChain) Middleware(mws ...Middleware) *RouteChain {
	if rc == nil || rc.route == nil {
		return rc
	}
	rc.route.mu.Lock()
	rc.route.mws = append(rc.route.mws, mws...)
	rc.route.mu.Unlock()
	return rc
}

// Name assigns a stable name to the previously-registered route so it can
// be looked up for reverse URL generation. Call it like:
//
//	r.Get("/users/{handle}", handler).Name("users.show")
func (rc *RouteChain) Name(name string) *RouteChain {
	if rc == nil || rc.route == nil || name == "" {
		return rc
	}
	rc.rt.mu.Lock()
	if rc.route.name != "" {
		delete(rc.rt.names, rc.route.name)
	}
	rc.route.name = name
	rc.rt.names[name] = routeKey(rc.route.method, rc.route.pattern)
	rc.rt.mu.Unlock()
	return rc
}

// handlerToHTTP converts a handler provided by the caller. Supported types:
//   - http.Handler (including http.HandlerFunc)
//   - func(http.ResponseWriter, *http.Request)
//   - func(*Response, *Request)
func handlerToHTTP(h interface{}) http.Handler {
	switch v := h.(type) {
	case http.Handler:
		return v
	case func(http.ResponseWriter, *http.Request):
		return http.HandlerFunc(v)
	case func(*Response, *Request):
		return Adapt(v)
	default:
		panic(fmt.Sprintf("kyugo: unsupported handler type %T", h))
	}
}

func routeKey(method, pattern string) string {
	return method + " " + pattern
}

func (g *Group) register(method, p string, h interface{}, mws []Middleware) *RouteChain {
	full := join(g.prefix, p)
	r := &route{method: method, pattern: full}
	hf := handlerToHTTP(h)

	parent := g.parent
	if len(mws) > 0 {
		parent = parent.With(mws...)
	}
	parent.Method(method, full, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		final := hf
		routeMws := r.middlewares()
		for i := len(routeMws) - 1; i >= 0; i-- {
			final = routeMws[i](final)
		}
		final.ServeHTTP(w, req)
	}))

	g.rt.mu.Lock()
	g.rt.routes[routeKey(method, full)] = r
	g.rt.mu.Unlock()
	g.rt.routed.Store(true)
	return &RouteChain{rt: g.rt, route: r}
}

// Get registers a GET handler under the group's prefix.
func (g *Group) Get(p string, h interface{}, mws ...Middleware) *RouteChain {
	return g.register(http.MethodGet, p, h, mws)
}

// Post registers a POST handler under the group's prefix.
func (g *Group) Post(p string, h interface{}, mws ...Middleware) *RouteChain {
	return g.register(http.MethodPost, p, h, mws)
}

// Put registers a PUT handler under the group's prefix.
func (g *Group) Put(p string, h interface{}, mws ...Middleware) *RouteChain {
	return g.register(http.MethodPut, p, h, mws)
}

// Patch registers a PATCH handler under the group's prefix.
func (g *Group) Patch(p string, h interface{}, mws ...Middleware) *RouteChain {
	return g.register(http.MethodPatch, p, h, mws)
}

// Delete registers a DELETE handler under the group's prefix.
func (g *Group) Delete(p string, h interface{}, mws ...Middleware) *RouteChain {
	return g.register(http.MethodDelete, p, h, mws)
}
