package objstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kyohei-t/akatsuki/internal/config"
)

// Postgres stores objects as versioned rows. The version column makes the
// ETag check transactional, so concurrent runs against the same date key
// reject each other's lost updates instead of silently overwriting them.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect creates a connection pool from config and verifies it.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// buildConnString builds a PostgreSQL connection string from config.
func buildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// NewPostgres creates a Postgres store over an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS objects (
			key        text PRIMARY KEY,
			data       bytea NOT NULL,
			version    bigint NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure objects schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// Get implements Store.
func (s *Postgres) Get(ctx context.Context, key string) ([]byte, string, error) {
	var data []byte
	var version int64

	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM objects WHERE key = $1`, key,
	).Scan(&data, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotExist
		}
		return nil, "", fmt.Errorf("get object %s: %w", key, err)
	}

	return data, strconv.FormatInt(version, 10), nil
}

// Put implements Store.
func (s *Postgres) Put(ctx context.Context, key string, data []byte, etag string) error {
	if etag == "" {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO objects (key, data, version) VALUES ($1, $2, 1)
			 ON CONFLICT (key) DO NOTHING`, key, data)
		if err != nil {
			return fmt.Errorf("create object %s: %w", key, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrETagMismatch
		}
		return nil
	}

	version, err := strconv.ParseInt(etag, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid etag %q for object %s", etag, key)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE objects
		 SET data = $3, version = version + 1, updated_at = now()
		 WHERE key = $1 AND version = $2`, key, version, data)
	if err != nil {
		return fmt.Errorf("update object %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrETagMismatch
	}
	return nil
}
