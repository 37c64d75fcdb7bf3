package federation

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-kyugo/fedkyugo/fetch"
	"github.com/go-kyugo/fedkyugo/logger"
)

type middleware[T any] struct {
	fed     Federation[T]
	factory ContextDataFactory[T]
	opts    Options
}

// Integrate returns a net/http middleware that offers every request to fed
// first. Requests the federation does not handle continue down the chain
// unchanged; responses it does handle are streamed onto the native writer
// and the exchange is finalized. factory may be nil, in which case the
// zero T is used as context data.
func Integrate[T any](fed Federation[T], factory ContextDataFactory[T], opts Options) func(http.Handler) http.Handler {
	if fed == nil {
		panic(ErrNilFederation)
	}
	opts.applyDefaults()
	m := &middleware[T]{fed: fed, factory: factory, opts: opts}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.serve(w, r, next)
		})
	}
}

func (m *middleware[T]) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	log := m.opts.Logger.With(logger.Fields{
		"exchange_id": exchangeID(w, r),
		"method":      r.Method,
		"path":        r.URL.Path,
	})

	req, err := translateRequest(r, m.opts.TrustProxy)
	if err != nil {
		m.fail(w, r, log, fmt.Errorf("translate request: %w", err))
		return
	}

	var data T
	if m.factory != nil {
		if data, err = m.factory(r); err != nil {
			m.fail(w, r, log, fmt.Errorf("context data: %w", err))
			return
		}
	}

	ctx, span := m.opts.Tracer.Start(r.Context(), "federation.fetch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		),
	)
	start := time.Now()
	out, err := m.invoke(ctx, r, req, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		m.opts.Metrics.observeFetch("error", time.Since(start))
		m.fail(w, r, log, fmt.Errorf("fetch: %w", err))
		return
	}
	span.SetAttributes(attribute.String("federation.outcome", out.kind.String()))
	span.End()
	m.opts.Metrics.observeFetch(out.kind.String(), time.Since(start))

	switch out.kind {
	case outcomeNotFound:
		m.opts.Metrics.observeExchange("not_found")
		log.Debug("Federation.NotFound", nil)
		next.ServeHTTP(w, r)

	case outcomeNotAcceptable:
		m.notAcceptable(w, r, next, out, log)

	default:
		m.opts.Metrics.observeExchange("handled")
		log.Debug("Federation.Handled", logger.Fields{"status": out.response.Status()})
		m.respond(w, r, out.response, log)
	}
}

func (m *middleware[T]) notAcceptable(w http.ResponseWriter, r *http.Request, next http.Handler, out outcome, log *logger.Logger) {
	if m.opts.Strategy == StrategySimple {
		if out.routeMatched {
			m.opts.Metrics.observeExchange("not_acceptable_deferred")
			log.Debug("Federation.NotAcceptable", logger.Fields{"deferred": true})
			next.ServeHTTP(w, r)
			return
		}
		m.opts.Metrics.observeExchange("not_acceptable")
		log.Debug("Federation.NotAcceptable", logger.Fields{"deferred": false})
		m.respond(w, r, out.response, log)
		return
	}

	dw := newDeferredWriter(w, m.opts.Matcher.Watch(r))
	next.ServeHTTP(dw, r)

	switch dw.state {
	case deferCommitted:
		m.opts.Metrics.observeExchange("not_acceptable_deferred")
		log.Debug("Federation.NotAcceptable", logger.Fields{"deferred": true})
		return
	case deferPending:
		// the chain wrote nothing; net/http answers 200 for a matched route
		if dw.probe(http.StatusOK) {
			m.opts.Metrics.observeExchange("not_acceptable_deferred")
			log.Debug("Federation.NotAcceptable", logger.Fields{"deferred": true})
			return
		}
	}
	m.opts.Metrics.observeExchange("not_acceptable")
	log.Debug("Federation.NotAcceptable", logger.Fields{"deferred": false})
	m.respond(w, r, out.response, log)
}

// respond projects res and finalizes the exchange.
func (m *middleware[T]) respond(w http.ResponseWriter, r *http.Request, res *fetch.Response, log *logger.Logger) {
	gw := newGuardWriter(w)
	n, err := projectResponse(r.Context(), gw, res)
	gw.finalize()
	m.opts.Metrics.addBytes(n)
	if err != nil {
		log.Warn("Federation.Projection", logger.Fields{"error": err.Error(), "bytes": n})
	}
}

func (m *middleware[T]) fail(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	m.opts.Metrics.observeExchange("error")
	log.Error("Federation.Error", logger.Fields{"error": err.Error()})
	m.opts.ErrorHandler(w, r, err)
}

// exchangeID prefers the client's X-Request-Id, then one an outer
// middleware already put on the response.
func exchangeID(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	if id := w.Header().Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}
