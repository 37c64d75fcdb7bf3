package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-kyugo/fedkyugo/logger"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"name": "social", "debug": true},
		"server": {"host": "127.0.0.1", "port": 3000},
		"log": {"format": "json", "level": "debug"},
		"federation": {"strategy": "simple", "trust_proxy": true}
	}`), 0o600))

	var c Config
	require.NoError(t, Load(path, &c))
	assert.Equal(t, "social", c.App.Name)
	assert.Equal(t, "127.0.0.1:3000", c.Server.Addr())
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, "simple", c.Federation.Strategy)
	assert.True(t, c.Federation.TrustProxy)
	assert.NoError(t, c.Validate())
}

func TestServerAddrDefault(t *testing.T) {
	assert.Equal(t, ":8080", ServerConfig{}.Addr())
}

func TestApplyEnv(t *testing.T) {
	c := Config{Server: ServerConfig{Port: 3000}}
	err := ApplyEnv(&c, mapLookup(map[string]string{
		"KYUGO_SERVER_PORT":            "9090",
		"KYUGO_FEDERATION_STRATEGY":    "simple",
		"KYUGO_FEDERATION_TRUST_PROXY": "true",
		"KYUGO_CORS_ALLOWED_ORIGINS":   "https://a.example, https://b.example,",
		"KYUGO_LOG_LEVEL":              " warn ",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "simple", c.Federation.Strategy)
	assert.True(t, c.Federation.TrustProxy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Server.Cors.AllowedOrigins)
	assert.Equal(t, "warn", c.Log.Level)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	var c Config
	err := ApplyEnv(&c, mapLookup(map[string]string{
		"KYUGO_SERVER_PORT": "eighty",
		"KYUGO_APP_DEBUG":   "maybe",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KYUGO_APP_DEBUG")
	assert.Contains(t, err.Error(), "KYUGO_SERVER_PORT")
	assert.ErrorIs(t, err, strconv.ErrSyntax)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"strategy", Config{Federation: FederationConfig{Strategy: "lenient"}}},
		{"port", Config{Server: ServerConfig{Port: 70000}}},
		{"log format", Config{Log: logger.Config{Format: "xml"}}},
		{"database without host", Config{Database: DatabaseConfig{Type: "postgres", DBName: "social"}}},
		{"database type", Config{Database: DatabaseConfig{Type: "mysql", Host: "db", DBName: "social"}}},
		{"metrics path", Config{Server: ServerConfig{MetricsPath: "metrics"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}

	var zero Config
	assert.NoError(t, zero.Validate())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("KYUGO_TEST_LOADENV=from-file\n"), 0o600))
	t.Setenv("KYUGO_TEST_LOADENV", "")
	require.NoError(t, os.Unsetenv("KYUGO_TEST_LOADENV"))

	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("KYUGO_TEST_LOADENV"))
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"federation": {"strategy": "strict"}}`), 0o600))
	t.Setenv("KYUGO_FEDERATION_STRATEGY", "simple")

	c, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "simple", c.Federation.Strategy)

	t.Setenv("KYUGO_FEDERATION_STRATEGY", "bogus")
	_, err = FromFile(path)
	assert.Error(t, err)
}

func TestValidate_ReportsJSONPaths(t *testing.T) {
	c := Config{Federation: FederationConfig{Strategy: "lenient"}}
	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "federation.strategy must be one of: strict simple")
}
