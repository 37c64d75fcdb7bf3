package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/go-kyugo/fedkyugo/logger"
	"github.com/go-kyugo/fedkyugo/validation"
)

// EnvPrefix prefixes every environment override read by ApplyEnv.
const EnvPrefix = "KYUGO_"

func Load(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func LoadDefault(v interface{}) error {
	return Load("config.json", v)
}

func MustLoad(path string, v interface{}) {
	if err := Load(path, v); err != nil {
		panic(err)
	}
}

type AppConfig struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Debug       bool   `json:"debug"`
}

type ServerConfig struct {
	Host                string     `json:"host"`
	Port                int        `json:"port" validate:"omitempty,min=1,max=65535"`
	ReadTimeoutSeconds  int        `json:"read_timeout_seconds" validate:"min=0"`
	WriteTimeoutSeconds int        `json:"write_timeout_seconds" validate:"min=0"`
	MetricsPath         string     `json:"metrics_path" validate:"omitempty,startswith=/"`
	Cors                CorsConfig `json:"cors,omitempty"`
}

// Addr returns the listen address, ":8080" when no port is configured.
func (s ServerConfig) Addr() string {
	if s.Port == 0 {
		return s.Host + ":8080"
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type CorsConfig struct {
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
	AllowedMethods []string `json:"allowed_methods,omitempty"`
	AllowedHeaders []string `json:"allowed_headers,omitempty"`
}

type DatabaseConfig struct {
	Type     string `json:"type" validate:"omitempty,oneof=postgres"`
	Host     string `json:"host" validate:"required_with=Type"`
	Port     int    `json:"port" validate:"omitempty,min=1,max=65535"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname" validate:"required_with=Type"`
	SSLMode  string `json:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
}

// FederationConfig configures the federation adapter installed on the
// server router.
type FederationConfig struct {
	// Strategy is "strict" (default) or "simple".
	Strategy   string `json:"strategy" validate:"omitempty,oneof=strict simple"`
	TrustProxy bool   `json:"trust_proxy"`
}

type Config struct {
	App        AppConfig        `json:"app"`
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Log        logger.Config    `json:"log"`
	Federation FederationConfig `json:"federation"`
}

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the struct tags of c.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w: %s", ErrInvalid, validation.Summary(validation.FormatValidationErrors(err)))
	}
	return nil
}

var ConfigVar Config

func LoadConfig(path string) error {
	return Load(path, &ConfigVar)
}

func LoadDefaultConfig() error {
	return LoadConfig("config.json")
}

func MustLoadConfig(path string) {
	if err := LoadConfig(path); err != nil {
		panic(err)
	}
}

// LoadEnv loads the given .env files (".env" when none is given) into the
// process environment. Missing files are skipped; variables already set in
// the environment are left untouched.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// FromFile reads path (skipped when empty or missing), applies KYUGO_*
// environment overrides and validates the result.
func FromFile(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		if err := Load(path, c); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := ApplyEnv(c, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides fields of c from KYUGO_* variables found by lookup.
func ApplyEnv(c *Config, lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}
	e.str("APP_NAME", &c.App.Name)
	e.str("APP_ENVIRONMENT", &c.App.Environment)
	e.boolean("APP_DEBUG", &c.App.Debug)

	e.str("SERVER_HOST", &c.Server.Host)
	e.integer("SERVER_PORT", &c.Server.Port)
	e.str("SERVER_METRICS_PATH", &c.Server.MetricsPath)
	e.list("CORS_ALLOWED_ORIGINS", &c.Server.Cors.AllowedOrigins)

	e.str("DATABASE_TYPE", &c.Database.Type)
	e.str("DATABASE_HOST", &c.Database.Host)
	e.integer("DATABASE_PORT", &c.Database.Port)
	e.str("DATABASE_USER", &c.Database.User)
	e.str("DATABASE_PASSWORD", &c.Database.Password)
	e.str("DATABASE_DBNAME", &c.Database.DBName)
	e.str("DATABASE_SSLMODE", &c.Database.SSLMode)

	e.str("LOG_FORMAT", &c.Log.Format)
	e.str("LOG_LEVEL", &c.Log.Level)
	e.boolean("LOG_COLOR", &c.Log.Color)

	e.str("FEDERATION_STRATEGY", &c.Federation.Strategy)
	e.boolean("FEDERATION_TRUST_PROXY", &c.Federation.TrustProxy)
	return e.err
}

type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) list(name string, dst *[]string) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.get(name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = n
}

func (e *envReader) boolean(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = b
}

// fail records every bad variable; ApplyEnv reports them joined.
func (e *envReader) fail(name string, err error) {
	e.err = errors.Join(e.err, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
}
