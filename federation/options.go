package federation

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-kyugo/fedkyugo/logger"
)

// Strategy decides how a not-acceptable outcome interacts with the
// downstream handler chain.
type Strategy string

const (
	// StrategyStrict always continues to the downstream chain and sends
	// the 406 only when the chain turns out to have no matching route.
	StrategyStrict Strategy = "strict"

	// StrategySimple continues to the downstream chain only when a route
	// is known to match at the moment the federation reports the outcome;
	// otherwise the 406 is sent directly.
	StrategySimple Strategy = "simple"
)

// ParseStrategy maps a configuration value to a Strategy. An empty string
// selects StrategyStrict.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyStrict:
		return StrategyStrict, nil
	case StrategySimple:
		return StrategySimple, nil
	}
	return "", fmt.Errorf("federation: unknown strategy %q", s)
}

// ErrorHandler receives failures of the context-data factory, of Fetch and
// of request translation. Nothing has been written to w when it runs.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Options configures Integrate. The zero value is usable.
type Options struct {
	Strategy Strategy

	// TrustProxy makes the translator honour X-Forwarded-Proto and
	// X-Forwarded-Host when reconstructing the request URL.
	TrustProxy bool

	// Matcher exposes the hosting router's route-match state. Defaults to
	// ChiMatcher.
	Matcher RouteMatcher

	Logger *logger.Logger

	// ErrorHandler defaults to PanicErrorHandler, which leaves the failure
	// to the hosting framework's recovery middleware.
	ErrorHandler ErrorHandler

	// Metrics is optional; nil disables collection.
	Metrics *Metrics

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

const tracerName = "github.com/go-kyugo/fedkyugo/federation"

func (o *Options) applyDefaults() {
	if o.Strategy == "" {
		o.Strategy = StrategyStrict
	}
	if o.Matcher == nil {
		o.Matcher = ChiMatcher{}
	}
	if o.Logger == nil {
		o.Logger = logger.Std()
	}
	if o.ErrorHandler == nil {
		o.ErrorHandler = PanicErrorHandler
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}
}

// PanicErrorHandler re-raises err as a panic so the hosting framework's
// recovery middleware decides what the client sees.
func PanicErrorHandler(_ http.ResponseWriter, _ *http.Request, err error) {
	panic(err)
}
