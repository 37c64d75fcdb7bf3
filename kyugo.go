// Package kyugo is a small chi-based web framework with a built-in
// federation adapter: Federate installs a handler written against the
// immutable request/response values of package fetch in front of the
// application's own routes.
package kyugo

import (
	"github.com/go-kyugo/fedkyugo/config"
	"github.com/go-kyugo/fedkyugo/database"
	"github.com/go-kyugo/fedkyugo/federation"
	"github.com/go-kyugo/fedkyugo/logger"
	"github.com/go-kyugo/fedkyugo/validation"
)

// Re-export common types so callers can use `kyugo.Logger`,
// `kyugo.Config`, etc. without importing every subpackage.
type Logger = logger.Logger
type Fields = logger.Fields
type Config = config.Config
type DB = database.DB
type FieldError = validation.FieldError

// Federation adapter types.
type FederationOptions = federation.Options
type Strategy = federation.Strategy

const (
	StrategyStrict = federation.StrategyStrict
	StrategySimple = federation.StrategySimple
)
