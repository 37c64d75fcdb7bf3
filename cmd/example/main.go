package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kyugo/fedkyugo"
	"github.com/go-kyugo/fedkyugo/config"
	"github.com/go-kyugo/fedkyugo/federation"
	"github.com/go-kyugo/fedkyugo/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	c, err := config.FromFile(envOr("KYUGO_CONFIG", "./config.json"))
	if err != nil {
		return err
	}
	c.Federation.TrustProxy = true
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}

	srv, err := newApp(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

// newApp builds the server with the adapter installed ahead of the routes.
func newApp(c *config.Config) (*kyugo.Server, error) {
	srv, err := kyugo.NewServer(kyugo.Options{Config: c})
	if err != nil {
		return nil, err
	}

	dir := directoryFor(srv.DB)
	srv.RegisterService("actors", dir)

	factory := func(*http.Request) (Directory, error) { return dir, nil }
	if err := kyugo.Federate(srv, actorFederation(), factory, federation.Options{}); err != nil {
		return nil, err
	}

	srv.Router().Controller(&Users{})
	logger.Info("Routes registered", logger.Fields{"count": len(srv.Router().Routes())})
	return srv, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
