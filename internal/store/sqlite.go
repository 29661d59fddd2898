package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/roach88/racetrack/internal/schema"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Driver names accepted by WithDriver.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPure is modernc.org/sqlite, which needs no C toolchain.
	DriverPure = "sqlite"
)

// gooseMu serializes goose's package-level configuration.
var gooseMu sync.Mutex

// SQLite is a durable Store backed by a single SQLite database file.
//
// Loaded entities are kept in an identity map for the lifetime of the
// store, so every fetch of the same row returns the same pointer and
// relations between loaded entities are shared.
type SQLite struct {
	db     *sql.DB
	reg    *schema.Registry
	logger *slog.Logger
	newID  func() string

	mu     sync.Mutex // guards loaded and serializes loads
	loaded map[string]schema.Entity
}

type options struct {
	driver string
	logger *slog.Logger
	newID  func() string
}

func buildOptions(opts []Option) options {
	o := options{driver: DriverCGO, logger: slog.Default(), newID: NewID}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures Open and NewMemory.
type Option func(*options)

// WithDriver selects the database/sql driver. Defaults to DriverCGO.
// Ignored by Memory.
func WithDriver(name string) Option {
	return func(o *options) {
		o.driver = name
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithIDs replaces the surrogate ID generator. Tests use it for
// predictable IDs.
func WithIDs(next func() string) Option {
	return func(o *options) {
		o.newID = next
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, reg *schema.Registry, opts ...Option) (*SQLite, error) {
	o := buildOptions(opts)
	if o.driver != DriverCGO && o.driver != DriverPure {
		return nil, fmt.Errorf("unknown sqlite driver %q (want %q or %q)", o.driver, DriverCGO, DriverPure)
	}

	db, err := sql.Open(o.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// Every query must drain its rows before issuing the next one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	o.logger.Debug("store opened", "path", path, "driver", o.driver)

	return &SQLite{
		db:     db,
		reg:    reg,
		logger: o.logger,
		newID:  o.newID,
		loaded: make(map[string]schema.Entity),
	}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *SQLite) DB() *sql.DB {
	return s.db
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

// migrate brings the database to the latest embedded migration.
func migrate(db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// MigrationVersion returns the current migration version.
func (s *SQLite) MigrationVersion() (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersion(s.db)
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(ctx context.Context, name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRowContext(ctx, query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
