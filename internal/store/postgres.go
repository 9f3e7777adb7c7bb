package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the postgres table holding the key/value state.
const DefaultTable = "stocksync_state"

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Postgres stores state in a single key/value table.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgres connects to databaseURL and ensures the state table exists.
func NewPostgres(ctx context.Context, databaseURL, table string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres store: database URL is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("postgres store: invalid table name %q", table)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	p := &Postgres{pool: pool, table: table}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, pgx.Identifier{p.table}.Sanitize())
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres store: create table: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", pgx.Identifier{p.table}.Sanitize())

	var value []byte
	err := p.pool.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres store: get %s: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) SetMany(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		pgx.Identifier{p.table}.Sanitize())

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for k, v := range entries {
			batch.Queue(query, k, v)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres store: set: %w", err)
		}
		return nil
	})
}

func (p *Postgres) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE key = ANY($1)", pgx.Identifier{p.table}.Sanitize())
	if _, err := p.pool.Exec(ctx, query, keys); err != nil {
		return fmt.Errorf("postgres store: delete: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
