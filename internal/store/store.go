package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names registered with database/sql.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ValidDrivers lists the accepted driver names.
var ValidDrivers = []string{DriverCGO, DriverPureGo}

var (
	// ErrNotFound is returned by FindOne when no row matches.
	ErrNotFound = errors.New("store: no matching row")

	// ErrInvalidIdentifier is returned for table or column names that are
	// not plain SQL identifiers.
	ErrInvalidIdentifier = errors.New("store: invalid identifier")
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is one SQLite database.
type Store struct {
	db     *sql.DB
	path   string
	driver string
}

type config struct {
	driver      string
	busyTimeout int
}

// Option customises Open.
type Option func(*config)

// WithDriver selects the database/sql driver. Default: DriverCGO.
func WithDriver(name string) Option { return func(c *config) { c.driver = name } }

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 5000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// Open creates or opens a SQLite database at path and applies pragmas.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	cfg := config{driver: DriverCGO, busyTimeout: 5000}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !IsValidDriver(cfg.driver) {
		return nil, fmt.Errorf("unknown driver %q: must be one of %v", cfg.driver, ValidDrivers)
	}

	db, err := sql.Open(cfg.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; an in-memory database additionally
	// exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(ctx, db, path, cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db, path: path, driver: cfg.driver}, nil
}

// IsValidDriver reports whether name is a supported driver.
func IsValidDriver(name string) bool {
	for _, d := range ValidDrivers {
		if d == name {
			return true
		}
	}
	return false
}

// Close closes the database. An in-memory database is discarded.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver returns the driver the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

func applyPragmas(ctx context.Context, db *sql.DB, path string, cfg config) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
	}
	if path != MemoryPath {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
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

func checkIdentifier(name string) error {
	if !validIdentifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}
