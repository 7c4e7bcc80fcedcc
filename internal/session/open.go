package session

import (
	"context"
	"fmt"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/config"
)

// Open builds the store selected by session.store. The returned close
// function releases any connection the backend holds.
func Open(ctx context.Context, cfg *config.AppConfig) (Store, func(), error) {
	switch cfg.Session.Store {
	case "memory":
		return NewMemoryStore(), func() {}, nil
	case "file":
		return NewFileStore(cfg.Session.Path), func() {}, nil
	case "redis":
		client, err := DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("session redis: %w", err)
		}
		return NewRedisStore(client, cfg.Session.KeyPrefix), func() { _ = client.Close() }, nil
	case "postgres":
		pool, err := ConnectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("session postgres: %w", err)
		}
		store := NewPostgresStore(pool, cfg.Session.KeyPrefix)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("session postgres migrate: %w", err)
		}
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}
