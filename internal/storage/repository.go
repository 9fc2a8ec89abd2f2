package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour and migration set.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) IsValid() bool {
	return d == SQLite || d == Postgres
}

func (d Dialect) driverName() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Config describes where the repository lives.
type Config struct {
	Dialect     Dialect
	SQLitePath  string
	DatabaseURL string
}

func (c Config) dsn() string {
	if c.Dialect == Postgres {
		return c.DatabaseURL
	}
	return c.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository persists users, transactions, installments and payments.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects, runs migrations and returns a ready repository.
func Open(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = SQLite
	}
	if !cfg.Dialect.IsValid() {
		return nil, fmt.Errorf("unsupported dialect: %s", cfg.Dialect)
	}

	switch cfg.Dialect {
	case SQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("sqlite path is required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	case Postgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("database url is required")
		}
	}

	db, err := sql.Open(cfg.Dialect.driverName(), cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Dialect, err)
	}
	if cfg.Dialect == SQLite {
		// A single writer avoids SQLITE_BUSY between the API and the workers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(cfg.Dialect, cfg.dsn()); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: cfg.Dialect}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// withTx runs fn in a transaction, rolling back on error.
func (r *Repository) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
