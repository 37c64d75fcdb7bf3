package kyugo

import (
	"errors"

	"github.com/go-kyugo/fedkyugo/federation"
)

// ErrNoRouter is returned by Federate for servers built with a custom
// Handler.
var ErrNoRouter = errors.New("kyugo: server has no router")

// Federate installs the federation adapter on the server router. It must be
// called before any route is registered. Fields left zero in opts are
// filled from the server: strategy and trust proxy from the federation
// config section, then logger and metrics.
func Federate[T any](s *Server, fed federation.Federation[T], factory federation.ContextDataFactory[T], opts federation.Options) error {
	if s == nil || s.router == nil {
		return ErrNoRouter
	}
	if opts.Strategy == "" {
		strategy, err := federation.ParseStrategy(s.Config.Federation.Strategy)
		if err != nil {
			return err
		}
		opts.Strategy = strategy
	}
	if !opts.TrustProxy {
		opts.TrustProxy = s.Config.Federation.TrustProxy
	}
	if opts.Logger == nil {
		opts.Logger = s.logger
	}
	if opts.Metrics == nil {
		opts.Metrics = s.metrics
	}
	s.router.Use(federation.Integrate(fed, factory, opts))
	return nil
}
