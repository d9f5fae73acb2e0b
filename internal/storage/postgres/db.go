package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"github.com/memcore/memcore/internal/storage"
)

// DB wraps a Postgres connection pool and implements storage.Backend,
// mirroring the sqlite backend's accessor shape so internal/memory and
// friends can swap backends without touching call sites.
type DB struct {
	conn              *sql.DB
	pgvectorAvailable bool
}

type txKey struct{}

// Open connects to dsn, creates the schema if absent, and attempts to
// enable the pgvector extension. A server without pgvector installed
// degrades vector search to a recency fallback rather than failing open.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	db := &DB{conn: conn}
	if _, err := conn.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		log.Printf("memcore/postgres: pgvector extension unavailable, vector search disabled: %v", err)
		db.pgvectorAvailable = false
	} else {
		db.pgvectorAvailable = true
	}

	if _, err := conn.ExecContext(ctx, Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}
	if db.pgvectorAvailable {
		if _, err := conn.ExecContext(ctx, MigrationPgvectorIndex); err != nil {
			log.Printf("memcore/postgres: ivfflat index migration skipped: %v", err)
		}
	}
	return db, nil
}

func (d *DB) Close() error { return d.conn.Close() }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *DB) connFor(ctx context.Context) execer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.conn
}

// WithTx runs fn inside a single transaction, satisfying storage.TxRunner.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// TruncateForTest clears every table for integration-test isolation. Not
// part of storage.Backend; only the postgres test suite calls it.
func (d *DB) TruncateForTest(ctx context.Context) error {
	tables := []string{
		"access_log", "observability_counters", "settings",
		"entity_relationships", "memory_entities", "entities",
		"memory_links", "memory_tags", "tag_alias",
		"milestones", "goals", "memories",
	}
	for _, tbl := range tables {
		if _, err := d.conn.ExecContext(ctx, "TRUNCATE TABLE "+tbl+" CASCADE"); err != nil {
			return fmt.Errorf("postgres: truncate %s: %w", tbl, err)
		}
	}
	return nil
}

// ExecForTest runs a raw statement against the pool. Not part of
// storage.Backend; only the postgres test suite calls it, for seeding rows
// (e.g. tag_alias) that have no store-level writer of their own.
func (d *DB) ExecForTest(ctx context.Context, query string, args ...any) error {
	_, err := d.conn.ExecContext(ctx, query, args...)
	return err
}

func (d *DB) Memories() storage.MemoryStore     { return &memoryStore{db: d} }
func (d *DB) Search() storage.SearchProvider    { return &searchProvider{db: d} }
func (d *DB) Tags() storage.TagStore            { return &tagStore{db: d} }
func (d *DB) Entities() storage.EntityStore     { return &entityStore{db: d} }
func (d *DB) Links() storage.LinkStore          { return &linkStore{db: d} }
func (d *DB) Goals() storage.GoalStore          { return &goalStore{db: d} }
func (d *DB) Settings() storage.SettingsStore   { return &settingsStore{db: d} }
func (d *DB) Counters() storage.CounterStore    { return &counterStore{db: d} }
func (d *DB) AccessLog() storage.AccessLogStore { return &accessLogStore{db: d} }
