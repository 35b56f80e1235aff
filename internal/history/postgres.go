package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovedemo/seedManage/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS search_history (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	mode       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	payload    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_history_created ON search_history (created_at DESC);
`

type PostgresStore struct {
	pool  *pgxpool.Pool
	limit int
}

func NewPostgresStore(ctx context.Context, dsn string, limit int) (*PostgresStore, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}
	return &PostgresStore{pool: pool, limit: limit}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Record(ctx context.Context, entry domain.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO search_history (id, query, mode, created_at, payload)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		entry.ID, entry.Query, string(entry.Mode), entry.CreatedAt, payload,
	); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM search_history WHERE id NOT IN (
			SELECT id FROM search_history ORDER BY created_at DESC, id DESC LIMIT $1
		)`, s.limit,
	); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM search_history ORDER BY created_at DESC, id DESC LIMIT $1`,
		clampLimit(limit, s.limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var entry domain.HistoryEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
