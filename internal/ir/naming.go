package ir

import (
	"strings"
	"unicode"
)

// SnakeCase converts a class or property name to a SQL identifier.
//
//	BaseEntity -> base_entity
//	parentMid  -> parent_mid
//	HTTPServer -> http_server
func SnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TableName returns the table for a hierarchy root.
func TableName(root EntitySchema) string {
	if root.Table != "" {
		return root.Table
	}
	return SnakeCase(root.Name)
}

// ForeignKeyColumn returns the column that stores an m:1 reference.
func ForeignKeyColumn(p Property) string {
	if p.JoinColumn != "" {
		return p.JoinColumn
	}
	return SnakeCase(p.Name) + "_id"
}

// PivotTableName returns the join table for an owning m:n property.
func PivotTableName(owner EntitySchema, p Property) string {
	if p.PivotTable != "" {
		return p.PivotTable
	}
	return SnakeCase(owner.Name) + "_" + SnakeCase(p.Name)
}

// PivotColumns returns the owner and target columns of an owning m:n pivot.
// A self-referencing relation without explicit columns gets an "inverse_"
// prefix on the target side.
func PivotColumns(owner EntitySchema, p Property) (join, inverse string) {
	join = p.JoinColumn
	if join == "" {
		join = SnakeCase(owner.Name) + "_id"
	}
	inverse = p.InverseJoinColumn
	if inverse == "" {
		inverse = SnakeCase(p.Entity) + "_id"
		if inverse == join {
			inverse = "inverse_" + inverse
		}
	}
	return join, inverse
}
