// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"loan-assistant/internal/common/config"

	_ "github.com/lib/pq"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresClient wraps the SQL database connection together with the schema
// the loan tables live in.
type PostgresClient struct {
	DB           *sql.DB
	Schema       string
	QueryTimeout time.Duration
}

// NewPostgres creates a new PostgreSQL client. The connection is lazy; call
// Ping to verify it.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	if cfg.Schema != "" && !identifierPattern.MatchString(cfg.Schema) {
		return nil, fmt.Errorf("invalid postgres schema name %q", cfg.Schema)
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return NewPostgresFromDB(db, cfg.Schema, config.GetDuration(cfg.QueryTimeout)), nil
}

// NewPostgresFromDB wraps an already opened handle, e.g. a sqlmock connection.
func NewPostgresFromDB(db *sql.DB, schema string, queryTimeout time.Duration) *PostgresClient {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &PostgresClient{DB: db, Schema: schema, QueryTimeout: queryTimeout}
}

// Table returns name qualified with the configured schema.
func (c *PostgresClient) Table(name string) string {
	if c.Schema == "" {
		return name
	}
	return c.Schema + "." + name
}

// WithQueryTimeout derives a context bounded by the configured query timeout.
func (c *PostgresClient) WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.QueryTimeout)
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func (c *PostgresClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

func (c *PostgresClient) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}

func (c *PostgresClient) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.DB.ExecContext(ctx, query, args...)
}
