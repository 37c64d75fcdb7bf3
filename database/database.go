package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/go-kyugo/fedkyugo/config"
)

// ErrUnsupported is returned for database types other than postgres.
var ErrUnsupported = errors.New("database: unsupported type")

type DB struct {
	SQL *sql.DB
}

// DSN builds the lib/pq connection string for c.
func DSN(c config.DatabaseConfig) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quote(c.Host), port, quote(c.User), quote(c.Password), quote(c.DBName), sslmode)
}

// quote renders v as a libpq keyword value.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// ConnectFromConfig opens a database connection from the provided config
// and verifies it with a ping bounded by ctx.
func ConnectFromConfig(ctx context.Context, c config.DatabaseConfig) (*DB, error) {
	if c.Type != "postgres" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, c.Type)
	}

	sqlDB, err := sql.Open("postgres", DSN(c))
	if err != nil {
		return nil, err
	}

	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)

	db := &DB{SQL: sqlDB}
	if err := db.Ping(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.SQL == nil {
		return errors.New("database: not connected")
	}
	return db.SQL.PingContext(ctx)
}

// Close releases the pool. It is safe on a nil DB.
func (db *DB) Close() error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}
