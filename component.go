package kyugo

import (
	"github.com/go-kyugo/fedkyugo/config"
	"github.com/go-kyugo/fedkyugo/database"
	"github.com/go-kyugo/fedkyugo/logger"
)

// Component is a base helper intended to be embedded in controller-like
// types. It provides accessors to common server resources.
type Component struct {
	server *Server
}

// Init initializes the component with the given server. It does NOT
// register routes; route registration must be performed by calling
// RegisterRoutes on the component (Router.Controller will call both).
func (c *Component) Init(s *Server) {
	if c == nil {
		return
	}
	c.server = s
}

// Server returns the associated server instance (may be nil).
func (c *Component) Server() *Server {
	if c == nil {
		return nil
	}
	return c.server
}

// Service returns a previously-registered service by name or nil.
func (c *Component) Service(name string) interface{} {
	if c == nil || c.server == nil {
		return nil
	}
	return c.server.Service(name)
}

// Logger returns the server logger.
func (c *Component) Logger() *logger.Logger {
	if c == nil || c.server == nil {
		return nil
	}
	return c.server.logger
}

// DB returns the configured database instance (may be nil).
func (c *Component) DB() *database.DB {
	if c == nil || c.server == nil {
		return nil
	}
	return c.server.DB
}

// Config returns the server configuration.
func (c *Component) Config() *config.Config {
	if c == nil || c.server == nil {
		return nil
	}
	return c.server.Config
}

// URLFor resolves a named route on the server router.
func (c *Component) URLFor(name string, params map[string]string) (string, bool) {
	if c == nil || c.server == nil {
		return "", false
	}
	return c.server.router.URLFor(name, params)
}
