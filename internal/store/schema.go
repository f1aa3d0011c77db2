package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Column types used by the mapper.
const (
	TypeInteger = "INTEGER"
	TypeNumeric = "NUMERIC"
	TypeText    = "TEXT"
)

// ColumnDef describes one column of a TableDef.
type ColumnDef struct {
	Name       string
	Type       string
	PrimaryKey bool // INTEGER PRIMARY KEY AUTOINCREMENT
	NotNull    bool
	References string // table whose primary key this column points at
	RefColumn  string // defaults to "id"
}

// TableDef describes a table to create.
type TableDef struct {
	Name    string
	Columns []ColumnDef

	// PrimaryKey lists composite key columns. Leave empty when a column is
	// marked PrimaryKey.
	PrimaryKey []string
}

// CreateSQL renders the CREATE TABLE statement.
func (t TableDef) CreateSQL() (string, error) {
	if err := checkIdentifier(t.Name); err != nil {
		return "", err
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", t.Name)
	}

	var defs []string
	var fks []string
	for _, c := range t.Columns {
		if err := checkIdentifier(c.Name); err != nil {
			return "", err
		}
		def := c.Name + " " + c.Type
		if c.PrimaryKey {
			def += " PRIMARY KEY AUTOINCREMENT"
		} else if c.NotNull {
			def += " NOT NULL"
		}
		defs = append(defs, def)

		if c.References != "" {
			if err := checkIdentifier(c.References); err != nil {
				return "", err
			}
			ref := c.RefColumn
			if ref == "" {
				ref = "id"
			}
			fks = append(fks, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE CASCADE", c.Name, c.References, ref))
		}
	}
	if len(t.PrimaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(t.PrimaryKey, ", ")+")")
	}
	defs = append(defs, fks...)

	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t")), nil
}

// Refresh drops every listed table and recreates them, in one transaction.
// Tables are dropped in reverse order and created in the given order, so
// list referenced tables first.
func (s *Store) Refresh(ctx context.Context, tables []TableDef) error {
	stmts := make([]string, 0, 2*len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		if err := checkIdentifier(tables[i].Name); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		stmts = append(stmts, "DROP TABLE IF EXISTS "+tables[i].Name)
	}
	for _, t := range tables {
		create, err := t.CreateSQL()
		if err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		stmts = append(stmts, create)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("refresh: begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("refresh: %q: %w", firstLine(stmt), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("refresh: commit: %w", err)
	}
	return nil
}

// ColumnInfo is one row of PRAGMA table_info.
type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"not_null"`
	PK      bool   `json:"pk"`
}

// Tables lists user tables in ascending name order.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	sort.Strings(tables)
	return tables, nil
}

// Columns describes a table's columns in declaration order.
func (s *Store) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	if err := checkIdentifier(table); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			cid     int
			info    ColumnInfo
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &info.Name, &info.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		info.NotNull = notNull != 0
		info.PK = pk != 0
		cols = append(cols, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s: %w", table, ErrNotFound)
	}
	return cols, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
