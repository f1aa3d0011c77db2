// Package store provides the SQLite storage target behind a mapper instance.
//
// Each mapper instance opens its own store, normally ":memory:", so no data
// survives a Close. The store knows tables and rows; it knows nothing about
// entities or inheritance.
//
// # Drivers
//
//   - sqlite3: github.com/mattn/go-sqlite3 (cgo, default)
//   - sqlite:  modernc.org/sqlite (pure Go)
//
// # Database Configuration
//
//   - foreign_keys=ON: Enforce referential integrity
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - WAL + synchronous=NORMAL: file databases only
//   - One open connection: an in-memory database lives and dies with its
//     connection
//
// # Deterministic Query Results
//
// FindOne orders by the caller's key column so repeated lookups return the
// same row.
package store
