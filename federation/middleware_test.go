package federation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/go-kyugo/fedkyugo/fetch"
	"github.com/go-kyugo/fedkyugo/logger"
)

const activityJSON = "application/activity+json"

// actorFederation serves actors under /users/{handle} to clients accepting
// activity+json. Everything else is reported as not found.
func actorFederation() FederationFunc[string] {
	return func(_ context.Context, req *fetch.Request, opts FetchOptions[string]) (*fetch.Response, error) {
		handle, ok := strings.CutPrefix(req.URL().Path, "/users/")
		if !ok && req.URL().Path != "/other/path" {
			return opts.OnNotFound(req), nil
		}
		accept, _ := req.Headers().Get("accept")
		if !strings.Contains(accept, activityJSON) {
			return opts.OnNotAcceptable(req), nil
		}
		h := fetch.NewHeaders()
		h.Append("Content-Type", activityJSON)
		body := fetch.NewChunkStream(
			[]byte(`{"type":"Person",`),
			[]byte(fmt.Sprintf(`"preferredUsername":%q,"origin":%q}`, handle, opts.ContextData)),
		)
		return fetch.NewResponse(body, fetch.ResponseInit{Status: http.StatusOK, Headers: h}), nil
	}
}

func originFactory(r *http.Request) (string, error) {
	return "https://" + r.Host, nil
}

type routerCalls struct {
	html int
}

func newRouter(t *testing.T, fed Federation[string], factory ContextDataFactory[string], opts Options) (*chi.Mux, *routerCalls) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	calls := &routerCalls{}
	r := chi.NewRouter()
	r.Use(Integrate(fed, factory, opts))
	r.Get("/users/{handle}", func(w http.ResponseWriter, req *http.Request) {
		calls.html++
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<p>Hello, %s!</p>", chi.URLParam(req, "handle"))
	})
	r.Get("/silent", func(http.ResponseWriter, *http.Request) {})
	return r, calls
}

func serve(h http.Handler, method, target, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIntegrate_NotFoundContinues(t *testing.T) {
	r, calls := newRouter(t, actorFederation(), nil, Options{})

	rec := serve(r, http.MethodGet, "/nowhere", activityJSON)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404 page not found\n", rec.Body.String())
	assert.Zero(t, calls.html)
}

func TestIntegrate_HandledStreamsResponse(t *testing.T) {
	r, calls := newRouter(t, actorFederation(), originFactory, Options{})

	rec := serve(r, http.MethodGet, "/users/alice", activityJSON)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, activityJSON, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"type":"Person","preferredUsername":"alice","origin":"https://example.com"}`, rec.Body.String())
	assert.True(t, rec.Flushed)
	assert.Zero(t, calls.html)
}

func TestIntegrate_StrictDefersToMatchedRoute(t *testing.T) {
	r, calls := newRouter(t, actorFederation(), nil, Options{})

	rec := serve(r, http.MethodGet, "/users/alice", "text/html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>Hello, alice!</p>", rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Vary"))
	assert.Equal(t, 1, calls.html)
}

func TestIntegrate_StrictSends406WithoutRoute(t *testing.T) {
	r, _ := newRouter(t, actorFederation(), nil, Options{})

	rec := serve(r, http.MethodGet, "/other/path", "text/html")
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Equal(t, "Accept", rec.Header().Get("Vary"))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "Not acceptable", rec.Body.String())
}

func TestIntegrate_StrictSends406OnMethodNotAllowed(t *testing.T) {
	r, calls := newRouter(t, actorFederation(), nil, Options{})

	rec := serve(r, http.MethodPost, "/users/alice", "text/html")
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Zero(t, calls.html)
}

func TestIntegrate_Subrouter(t *testing.T) {
	fed := FederationFunc[string](func(_ context.Context, req *fetch.Request, opts FetchOptions[string]) (*fetch.Response, error) {
		return opts.OnNotAcceptable(req), nil
	})

	for _, strategy := range []Strategy{StrategyStrict, StrategySimple} {
		t.Run(string(strategy), func(t *testing.T) {
			r := chi.NewRouter()
			r.Use(Integrate(fed, nil, Options{Strategy: strategy, Logger: logger.NewNop()}))
			r.Route("/api", func(sr chi.Router) {
				sr.Get("/known", func(w http.ResponseWriter, _ *http.Request) {
					_, _ = w.Write([]byte("known"))
				})
			})

			rec := serve(r, http.MethodGet, "/api/known", "text/html")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "known", rec.Body.String())

			rec = serve(r, http.MethodGet, "/api/unknown", "text/html")
			assert.Equal(t, http.StatusNotAcceptable, rec.Code)
			assert.Equal(t, "Not acceptable", rec.Body.String())
		})
	}
}

func TestIntegrate_StrictMatchedRouteWritingNothing(t *testing.T) {
	fed := FederationFunc[string](func(_ context.Context, req *fetch.Request, opts FetchOptions[string]) (*fetch.Response, error) {
		return opts.OnNotAcceptable(req), nil
	})
	r, _ := newRouter(t, fed, nil, Options{})

	rec := serve(r, http.MethodGet, "/silent", "text/html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestIntegrate_Simple(t *testing.T) {
	r, calls := newRouter(t, actorFederation(), nil, Options{Strategy: StrategySimple})

	rec := serve(r, http.MethodGet, "/users/bob", "text/html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>Hello, bob!</p>", rec.Body.String())
	assert.Equal(t, 1, calls.html)

	rec = serve(r, http.MethodGet, "/other/path", "text/html")
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Equal(t, "Accept", rec.Header().Get("Vary"))
	assert.Equal(t, "Not acceptable", rec.Body.String())
	assert.Equal(t, 1, calls.html)
}

func TestIntegrate_StatusMatcherOnServeMux(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{handle}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<p>Hello, %s!</p>", r.PathValue("handle"))
	})
	h := Integrate(actorFederation(), nil, Options{Matcher: StatusMatcher{}, Logger: logger.NewNop()})(mux)

	rec := serve(h, http.MethodGet, "/users/carol", "text/html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>Hello, carol!</p>", rec.Body.String())

	rec = serve(h, http.MethodGet, "/other/path", "text/html")
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Equal(t, "Not acceptable", rec.Body.String())

	rec = serve(h, http.MethodGet, "/users/carol", activityJSON)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, activityJSON, rec.Header().Get("Content-Type"))
}

func TestIntegrate_FirstSignalWins(t *testing.T) {
	fed := FederationFunc[string](func(_ context.Context, req *fetch.Request, opts FetchOptions[string]) (*fetch.Response, error) {
		opts.OnNotFound(req)
		return opts.OnNotAcceptable(req), nil
	})
	r, _ := newRouter(t, fed, nil, Options{})

	rec := serve(r, http.MethodGet, "/other/path", "text/html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404 page not found\n", rec.Body.String())
}

func TestIntegrate_FactoryErrorPanicsByDefault(t *testing.T) {
	factory := func(*http.Request) (string, error) { return "", errors.New("boom") }
	r, _ := newRouter(t, actorFederation(), factory, Options{})

	assert.PanicsWithError(t, "context data: boom", func() {
		serve(r, http.MethodGet, "/users/alice", activityJSON)
	})
}

func TestIntegrate_ErrorHandler(t *testing.T) {
	var got error
	opts := Options{ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		http.Error(w, "federation unavailable", http.StatusBadGateway)
	}}

	t.Run("fetch error", func(t *testing.T) {
		fed := FederationFunc[string](func(context.Context, *fetch.Request, FetchOptions[string]) (*fetch.Response, error) {
			return nil, errors.New("signature check failed")
		})
		r, calls := newRouter(t, fed, nil, opts)
		rec := serve(r, http.MethodGet, "/users/alice", activityJSON)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.EqualError(t, got, "fetch: signature check failed")
		assert.Zero(t, calls.html)
	})

	t.Run("nil response", func(t *testing.T) {
		fed := FederationFunc[string](func(context.Context, *fetch.Request, FetchOptions[string]) (*fetch.Response, error) {
			return nil, nil
		})
		r, _ := newRouter(t, fed, nil, opts)
		rec := serve(r, http.MethodGet, "/users/alice", activityJSON)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.ErrorIs(t, got, ErrNilResponse)
	})
}

func TestIntegrate_NilFederationPanics(t *testing.T) {
	assert.PanicsWithError(t, ErrNilFederation.Error(), func() {
		Integrate[string](nil, nil, Options{})
	})
}

func TestIntegrate_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r, _ := newRouter(t, actorFederation(), nil, Options{Metrics: m})

	serve(r, http.MethodGet, "/users/alice", activityJSON)
	serve(r, http.MethodGet, "/users/alice", "text/html")
	serve(r, http.MethodGet, "/other/path", "text/html")
	serve(r, http.MethodGet, "/nowhere", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.exchanges.WithLabelValues("handled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exchanges.WithLabelValues("not_acceptable_deferred")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exchanges.WithLabelValues("not_acceptable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exchanges.WithLabelValues("not_found")))
	assert.Greater(t, testutil.ToFloat64(m.bytes), 0.0)
	assert.Equal(t, 3, testutil.CollectAndCount(m.duration))
}

func TestIntegrate_LogsExchangeID(t *testing.T) {
	var buf bytes.Buffer
	r, _ := newRouter(t, actorFederation(), nil, Options{Logger: logger.NewJSON(&buf, logger.LevelDebug)})

	req := httptest.NewRequest(http.MethodGet, "/users/alice", nil)
	req.Header.Set("Accept", activityJSON)
	req.Header.Set("X-Request-Id", "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"exchange_id":"req-42"`)
	assert.Contains(t, out, `"message":"Federation.Handled"`)
}

func TestIntegrate_ExchangeIDFromResponseHeader(t *testing.T) {
	var buf bytes.Buffer
	r, _ := newRouter(t, actorFederation(), nil, Options{Logger: logger.NewJSON(&buf, logger.LevelDebug)})

	req := httptest.NewRequest(http.MethodGet, "/users/alice", nil)
	req.Header.Set("Accept", activityJSON)
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-Id", "gen-7")
	r.ServeHTTP(rec, req)

	assert.Contains(t, buf.String(), `"exchange_id":"gen-7"`)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyStrict, s)

	s, err = ParseStrategy("simple")
	require.NoError(t, err)
	assert.Equal(t, StrategySimple, s)

	_, err = ParseStrategy("lenient")
	assert.Error(t, err)
}

func TestIntegrate_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r, _ := newRouter(t, actorFederation(), nil, Options{Tracer: tp.Tracer("test")})
	serve(r, http.MethodGet, "/users/alice", "text/html")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "federation.fetch", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("federation.outcome", "not_acceptable"))
}
