package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Value binds a column to a value.
type Value struct {
	Column string
	V      any
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tx is a write transaction opened by InTx.
type Tx struct {
	tx *sql.Tx
}

// Insert adds a row and returns its rowid. Columns are written in the given
// order; an empty list inserts DEFAULT VALUES.
func (s *Store) Insert(ctx context.Context, table string, values []Value) (int64, error) {
	return insert(ctx, s.db, table, values)
}

// Insert adds a row inside the transaction. The row is visible to other
// connections only after InTx commits.
func (t *Tx) Insert(ctx context.Context, table string, values []Value) (int64, error) {
	return insert(ctx, t.tx, table, values)
}

// InTx runs fn in a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise, leaving no partial rows behind.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insert(ctx context.Context, db execer, table string, values []Value) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}

	var query string
	args := make([]any, 0, len(values))
	if len(values) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table)
	} else {
		cols := make([]string, 0, len(values))
		marks := make([]string, 0, len(values))
		for _, v := range values {
			if err := checkIdentifier(v.Column); err != nil {
				return 0, fmt.Errorf("insert: %w", err)
			}
			cols = append(cols, v.Column)
			marks = append(marks, "?")
			args = append(args, v.V)
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert into %s: last insert id: %w", table, err)
	}
	return id, nil
}
