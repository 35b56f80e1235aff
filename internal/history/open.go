package history

import (
	"context"
	"fmt"
	"strings"
)

type Config struct {
	Backend       string
	File          string
	SQLitePath    string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
	RedisURL      string
	RedisKey      string
	Limit         int
}

// Open builds the store named by cfg.Backend. An empty backend means "file".
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", "file":
		return NewFileStore(cfg.File, cfg.Limit)
	case "none", "off":
		return Discard{}, nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, cfg.Limit)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresDSN, cfg.Limit)
	case "mongo":
		client, err := ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		store := NewMongoStore(client, cfg.MongoDatabase, cfg.Limit)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure history indexes: %w", err)
		}
		return store, nil
	case "redis":
		client, err := ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisStore(client, cfg.RedisKey, cfg.Limit), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", backend)
	}
}
