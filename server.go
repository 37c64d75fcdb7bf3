package kyugo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cfg "github.com/go-kyugo/fedkyugo/config"
	"github.com/go-kyugo/fedkyugo/database"
	"github.com/go-kyugo/fedkyugo/federation"
	"github.com/go-kyugo/fedkyugo/logger"
)

// Options configures the created server.
type Options struct {
	// Config optionally carries the full application configuration. When
	// nil the package-level config.ConfigVar is used.
	Config *cfg.Config

	// Handler replaces the default router. Federate requires the default
	// router.
	Handler http.Handler

	// DefaultMiddlewares wrap the handler in order, the first being the
	// outermost. When nil, RequestID, Recovery, LoggerMiddleware and (if
	// origins are configured) CORS are installed.
	DefaultMiddlewares []Middleware

	// Logger overrides the logger built from Config.Log.
	Logger *logger.Logger

	// DB overrides the connection opened from Config.Database.
	DB *database.DB

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	srv    *http.Server
	logger *logger.Logger
	Config *cfg.Config
	DB     *database.DB
	// services holds arbitrary service instances registered with the server.
	services map[string]interface{}
	svcMu    sync.RWMutex
	router   *Router

	registry *prometheus.Registry
	metrics  *federation.Metrics
}

// newLogger picks the server logger. Without an explicit log section the
// App.Debug flag chooses between a colored debug console and silence.
func newLogger(c *cfg.Config) *logger.Logger {
	if c.Log.Format != "" {
		return logger.New(c.Log)
	}
	if c.App.Debug {
		return logger.NewConsole(os.Stdout, logger.LevelDebug, true)
	}
	return logger.NewNop()
}

func NewServer(opts Options) (*Server, error) {
	cfgSrc := opts.Config
	if cfgSrc == nil {
		cfgSrc = &cfg.ConfigVar
	}
	if err := cfgSrc.Validate(); err != nil {
		return nil, err
	}

	std := opts.Logger
	if std == nil {
		std = newLogger(cfgSrc)
	}
	logger.SetStd(std)

	s := &Server{
		logger:   std,
		Config:   cfgSrc,
		DB:       opts.DB,
		services: make(map[string]interface{}),
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = federation.NewMetrics(s.registry)

	var h http.Handler
	if opts.Handler != nil {
		h = opts.Handler
	} else {
		s.router = NewRouter()
		s.router.server = s
		h = s.router.Handler()
	}

	mws := opts.DefaultMiddlewares
	if mws == nil {
		mws = []Middleware{RequestID(), Recovery(std), LoggerMiddleware}
		if len(cfgSrc.Server.Cors.AllowedOrigins) > 0 {
			mws = append(mws, CORS(cfgSrc.Server.Cors))
		}
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	if p := cfgSrc.Server.MetricsPath; p != "" {
		mux := http.NewServeMux()
		mux.Handle(p, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		mux.Handle("/", h)
		h = mux
	}

	readTimeout := opts.ReadTimeout
	if readTimeout == 0 && cfgSrc.Server.ReadTimeoutSeconds > 0 {
		readTimeout = time.Duration(cfgSrc.Server.ReadTimeoutSeconds) * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout == 0 && cfgSrc.Server.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(cfgSrc.Server.WriteTimeoutSeconds) * time.Second
	}

	s.srv = &http.Server{
		Addr:         cfgSrc.Server.Addr(),
		Handler:      h,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	if s.DB == nil && cfgSrc.Database.Type != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db, err := database.ConnectFromConfig(ctx, cfgSrc.Database)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		s.DB = db
	}

	return s, nil
}

// RegisterRoutes registers application routes.
// The caller may supply a registration function (usually defined in the
// application) which has the signature `func(*Server, *Router)` to perform
// additional route setup. Any provided controllers that implement the
// `RegisterRoutes(*Router)` method will also be invoked.
func (s *Server) RegisterRoutes(register func(*Server, *Router), ctrls ...interface{}) {
	if s == nil || s.router == nil {
		return
	}
	if register != nil {
		register(s, s.router)
	}
	for _, c := range ctrls {
		if r, ok := c.(interface{ RegisterRoutes(*Router) }); ok {
			r.RegisterRoutes(s.router)
		}
	}
}

// Router returns the internal router when available.
func (s *Server) Router() *Router {
	if s == nil {
		return nil
	}
	return s.router
}

// Handler returns the fully wrapped handler the server serves.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Logger returns the server logger.
func (s *Server) Logger() *logger.Logger {
	return s.logger
}

// Registry returns the Prometheus registry exposed on the metrics path.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen failed: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Server.Start", logger.Fields{"addr": ln.Addr().String()})
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections, waits for in-flight exchanges
// until ctx is done and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Server.Shutdown", nil)
	err := s.srv.Shutdown(ctx)
	if cerr := s.DB.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// RegisterService stores a service instance under the provided name.
func (s *Server) RegisterService(name string, svc interface{}) {
	if s == nil {
		return
	}
	s.svcMu.Lock()
	defer s.svcMu.Unlock()
	s.services[name] = svc
}

// Service returns a previously registered service by name or nil if not found.
func (s *Server) Service(name string) interface{} {
	if s == nil {
		return nil
	}
	s.svcMu.RLock()
	defer s.svcMu.RUnlock()
	return s.services[name]
}
