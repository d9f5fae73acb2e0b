// Package sqlite is the default memcore storage backend: a single-writer,
// WAL-mode SQLite database reached through modernc.org/sqlite (pure Go, no
// cgo), with an FTS5 companion table for the lexical side of search.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/memcore/memcore/internal/storage"
)

// DB wraps the single *sql.DB connection and implements storage.Backend by
// handing out store structs that all share it.
type DB struct {
	conn *sql.DB
}

type txKey struct{}

// Open opens dsn (a file path or ":memory:"), applies WAL self-healing
// against stale lock files from a crashed prior process, configures the
// single-writer pragmas, and creates the schema if absent.
func Open(dsn string) (*DB, error) {
	db, err := openOnce(dsn)
	if err == nil {
		return db, nil
	}
	if !isRecoverableWALError(err) {
		return nil, err
	}
	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || !isWALStale(dbPath) {
		return nil, err
	}
	removeStaleWAL(dbPath)

	db, retryErr := openOnce(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("sqlite: open failed after WAL recovery: %w (original: %v)", retryErr, err)
	}
	log.Printf("memcore/sqlite: recovered from stale WAL files for %s", dbPath)
	return db, nil
}

func openOnce(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// SQLite allows exactly one writer; pinning the pool to one connection
	// serializes writes in-process instead of racing multiple goroutines
	// into SQLITE_BUSY. WAL mode still lets readers proceed concurrently.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting every store
// method use whichever one ctx carries without an if/else at each call
// site.
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
// Nested calls to WithTx reuse the outer transaction rather than nesting
// savepoints, since no memcore code needs partial rollback within a write.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
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

// dbPathFromDSN extracts a filesystem path from a bare path or file: DSN,
// or "" for in-memory databases where WAL recovery doesn't apply.
func dbPathFromDSN(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		return ""
	}
	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == ":memory:" || path == "" {
			return ""
		}
		return path
	}
	return dsn
}

func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "disk I/O error") || strings.Contains(msg, "database is locked")
}

// isWALStale reports whether -shm/-wal files exist and no live process
// holds them open (checked via lsof). Returns false conservatively when
// lsof isn't available, rather than risk deleting a live process's files.
func isWALStale(dbPath string) bool {
	shmPath, walPath := dbPath+"-shm", dbPath+"-wal"
	if !fileExists(shmPath) && !fileExists(walPath) {
		return false
	}
	lsofPath, err := exec.LookPath("lsof")
	if err != nil {
		return false
	}
	out, err := exec.Command(lsofPath, "-t", dbPath, shmPath, walPath).Output()
	if err != nil {
		return true // lsof exits 1 when nothing has the files open
	}
	return strings.TrimSpace(string(out)) == ""
}

func removeStaleWAL(dbPath string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		path := dbPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("memcore/sqlite: failed to remove stale %s: %v", path, err)
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
