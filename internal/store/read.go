package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Row maps column names to values. TEXT columns come back as string,
// INTEGER columns as int64, NULL as nil.
type Row map[string]any

// Query selects at most one row.
type Query struct {
	Table string

	// Where is a conjunction of column equalities.
	Where []Value

	// InColumn restricts InColumn to one of InValues when set.
	InColumn string
	InValues []any

	// OrderBy is the key column for deterministic results.
	OrderBy string
}

// FindOne returns the first row matching q, or ErrNotFound.
func (s *Store) FindOne(ctx context.Context, q Query) (Row, error) {
	query, args, err := q.build()
	if err != nil {
		return nil, fmt.Errorf("find one: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find one in %s: %w", q.Table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("find one in %s: %w", q.Table, err)
		}
		return nil, ErrNotFound
	}
	row, err := scanRow(rows)
	if err != nil {
		return nil, fmt.Errorf("find one in %s: %w", q.Table, err)
	}
	return row, nil
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (q Query) build() (string, []any, error) {
	if err := checkIdentifier(q.Table); err != nil {
		return "", nil, err
	}

	var conds []string
	var args []any
	for _, w := range q.Where {
		if err := checkIdentifier(w.Column); err != nil {
			return "", nil, err
		}
		if w.V == nil {
			conds = append(conds, w.Column+" IS NULL")
			continue
		}
		conds = append(conds, w.Column+" = ?")
		args = append(args, w.V)
	}
	if q.InColumn != "" {
		if err := checkIdentifier(q.InColumn); err != nil {
			return "", nil, err
		}
		if len(q.InValues) == 0 {
			conds = append(conds, "0")
		} else {
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(q.InValues)), ", ")
			conds = append(conds, fmt.Sprintf("%s IN (%s)", q.InColumn, marks))
			args = append(args, q.InValues...)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(q.Table)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	if q.OrderBy != "" {
		if err := checkIdentifier(q.OrderBy); err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
		b.WriteString(" ASC")
	}
	b.WriteString(" LIMIT 1")
	return b.String(), args, nil
}

func scanRow(rows *sql.Rows) (Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(Row, len(cols))
	for i, col := range cols {
		if b, ok := vals[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = vals[i]
	}
	return row, nil
}
