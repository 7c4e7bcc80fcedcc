package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/config"
)

type PostgresStore struct {
	pool      *pgxpool.Pool
	namespace string
}

func NewPostgresStore(pool *pgxpool.Pool, namespace string) *PostgresStore {
	return &PostgresStore{pool: pool, namespace: namespace}
}

// ConnectPostgres opens the pool for session values. Limits left at zero
// keep the pgx defaults.
func ConnectPostgres(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxOpen > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "authorpanel"

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS panel_session_values (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (namespace, key)
		)
	`
	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM panel_session_values WHERE namespace = $1 AND key = $2`
	var value string
	if err := s.pool.QueryRow(ctx, query, s.namespace, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value string) error {
	const query = `
		INSERT INTO panel_session_values (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (namespace, key)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query, s.namespace, key, value)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const query = `DELETE FROM panel_session_values WHERE namespace = $1 AND key = ANY($2)`
	_, err := s.pool.Exec(ctx, query, s.namespace, keys)
	return err
}
