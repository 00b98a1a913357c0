package backing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPostgresConfig returns a PostgresConfig with sensible defaults.
func DefaultPostgresConfig(dsn string) *PostgresConfig {
	return &PostgresConfig{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// Postgres implements Store on top of a single PostgreSQL table. The Store
// contract is synchronous and treats read failures as absence, so query
// errors on the read path are logged and mapped to "not found".
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres opens a connection pool, verifies connectivity and ensures the
// entries table exists.
func NewPostgres(cfg *PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS securekv_entries (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating entries table: %w", err)
	}

	logger.Info("connected to PostgreSQL backing store")
	return &Postgres{db: db, logger: logger}, nil
}

// Get returns the value for key, or false if absent or unreadable.
func (p *Postgres) Get(key string) (string, bool) {
	query := `SELECT v FROM securekv_entries WHERE k = $1`

	var value string
	err := p.db.QueryRowContext(context.Background(), query, key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			p.logger.Error("querying entry", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

// Set upserts the value for key. Disk-full and similar capacity failures are
// reported as ErrQuotaExceeded so callers can treat them uniformly.
func (p *Postgres) Set(key, value string) error {
	query := `
		INSERT INTO securekv_entries (k, v, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (k) DO UPDATE SET
			v = EXCLUDED.v,
			updated_at = EXCLUDED.updated_at`

	if _, err := p.db.ExecContext(context.Background(), query, key, value); err != nil {
		if isCapacityError(err) {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("setting entry: %w", err)
	}
	return nil
}

// Remove deletes the key. Removing an absent key is a no-op.
func (p *Postgres) Remove(key string) {
	query := `DELETE FROM securekv_entries WHERE k = $1`
	if _, err := p.db.ExecContext(context.Background(), query, key); err != nil {
		p.logger.Error("deleting entry", "key", key, "error", err)
	}
}

// Keys returns all keys in lexical order.
func (p *Postgres) Keys() []string {
	query := `SELECT k FROM securekv_entries ORDER BY k`

	rows, err := p.db.QueryContext(context.Background(), query)
	if err != nil {
		p.logger.Error("querying keys", "error", err)
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			p.logger.Error("scanning key", "error", err)
			return nil
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("iterating keys", "error", err)
		return nil
	}
	return keys
}

// Len returns the number of stored keys.
func (p *Postgres) Len() int {
	var n int
	err := p.db.QueryRowContext(context.Background(), `SELECT count(*) FROM securekv_entries`).Scan(&n)
	if err != nil {
		p.logger.Error("counting entries", "error", err)
		return 0
	}
	return n
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	p.logger.Info("closing PostgreSQL connection")
	return p.db.Close()
}

// isCapacityError reports whether a write failed for capacity reasons.
// 53100 is PostgreSQL's disk_full error code.
func isCapacityError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "53100") || strings.Contains(msg, "disk full")
}
