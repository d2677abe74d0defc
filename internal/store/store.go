package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/wishrank/internal/querysql"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// Supported database/sql driver names.
const (
	DriverSQLite3  = "sqlite3"  // mattn/go-sqlite3 (cgo)
	DriverSQLite   = "sqlite"   // modernc.org/sqlite (pure Go)
	DriverPostgres = "postgres" // lib/pq
)

// Page size limits used when Options leaves them unset.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Options configures Open.
type Options struct {
	// Driver is one of DriverSQLite3, DriverSQLite or DriverPostgres.
	// Empty means DriverSQLite3.
	Driver string
	// DSN is a file path (or ":memory:") for SQLite, a connection string
	// for Postgres.
	DSN string

	DefaultPageSize int
	MaxPageSize     int
}

// Store persists the items of every list.
type Store struct {
	db       *sql.DB
	dialect  querysql.Dialect
	compiler *querysql.Compiler

	defaultPage int
	maxPage     int
}

// Open creates or opens the database described by opts and applies the
// schema and pending migrations.
//
// SQLite databases are configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - a single connection, so writers never race each other
//
// Postgres transactions run at SERIALIZABLE isolation.
func Open(opts Options) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite3
	}

	var dialect querysql.Dialect
	switch driver {
	case DriverSQLite3, DriverSQLite:
		dialect = querysql.SQLite
	case DriverPostgres:
		dialect = querysql.Postgres
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("open %s: empty DSN", driver)
	}

	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == querysql.SQLite {
		// SQLite only supports one writer at a time; an in-memory database
		// also lives and dies with its single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	s := &Store{
		db:          db,
		dialect:     dialect,
		compiler:    querysql.NewCompiler(dialect),
		defaultPage: opts.DefaultPageSize,
		maxPage:     opts.MaxPageSize,
	}
	if s.defaultPage <= 0 {
		s.defaultPage = DefaultPageSize
	}
	if s.maxPage <= 0 {
		s.maxPage = MaxPageSize
	}
	if s.defaultPage > s.maxPage {
		s.defaultPage = s.maxPage
	}

	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports the SQL dialect of the open database.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	var opts *sql.TxOptions
	if s.dialect == querysql.Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}

	sqlTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(&Tx{q: sqlTx, s: s}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// conn returns a Tx that runs each statement on its own.
func (s *Store) conn() *Tx {
	return &Tx{q: s.db, s: s}
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
