// Package sqlstore implements storage.Store over database/sql for SQLite
// (modernc.org/sqlite) and PostgreSQL (lib/pq).
//
// Money is stored as BIGINT cents and timestamps as unix milliseconds so the
// schema is shared by both dialects.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Dialect selects SQL flavour and driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders to $n for postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (d Dialect) txOptions(write bool) *sql.TxOptions {
	if d != Postgres {
		// _txlock=immediate in the DSN makes every sqlite tx take the write lock.
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: !write}
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

// SQLiteDSN builds the connection string used for the database file at path.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}

// OpenSQLite opens (creating if needed) the database file and migrates it.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	s, err := open(ctx, SQLite, SQLiteDSN(path))
	if err != nil {
		return nil, err
	}
	// One writer at a time; the pool would only contend on the file lock.
	s.db.SetMaxOpenConns(1)
	slog.InfoContext(ctx, "SQLite store ready", "path", path)
	return s, nil
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	s, err := open(ctx, Postgres, dsn)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Postgres store ready")
	return s, nil
}

func open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	if err := RunMigrations(d, dsn); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", d, err)
	}
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, dialect: d}, nil
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	return s.run(ctx, false, fn)
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, write bool, fn func(storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, s.dialect.txOptions(write))
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op after a successful Commit.
	defer sqlTx.Rollback()

	if err := fn(&tx{tx: sqlTx, d: s.dialect, lock: write && s.dialect == Postgres}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// translate maps driver errors onto storage sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", storage.ErrConflict, pqErr.Message)
		case "22003":
			return fmt.Errorf("%w: %s", core.ErrInvalidAmount, pqErr.Message)
		}
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", storage.ErrConflict, liteErr.Error())
		}
	}
	return err
}

var _ storage.Store = (*Store)(nil)
