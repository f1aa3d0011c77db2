package mapper

import (
	"context"
	"fmt"

	"github.com/roach88/stiprobe/internal/ir"
	"github.com/roach88/stiprobe/internal/store"
)

// SchemaGenerator derives and applies the table layout of a Mapper.
type SchemaGenerator struct {
	m *Mapper
}

// Schema returns the mapper's schema generator.
func (m *Mapper) Schema() *SchemaGenerator {
	return &SchemaGenerator{m: m}
}

// RefreshDatabase drops and recreates every table the discovered entities
// need.
func (g *SchemaGenerator) RefreshDatabase(ctx context.Context) error {
	if err := g.m.checkOpen(); err != nil {
		return err
	}
	defs := g.TableDefs()
	g.m.logger.Debugf("[%s] Refreshing database schema (%d tables)", g.m.contextName, len(defs))
	if err := g.m.store.Refresh(ctx, defs); err != nil {
		return fmt.Errorf("refresh database: %w", err)
	}
	return nil
}

// TableDefs returns one table per hierarchy root, in ascending root order,
// followed by the pivot tables of owning many-to-many relations.
func (g *SchemaGenerator) TableDefs() []store.TableDef {
	md := g.m.metadata
	var tables, pivots []store.TableDef
	for _, root := range md.Roots() {
		tables = append(tables, g.hierarchyTable(root))
		for _, member := range md.Members(root) {
			pivots = append(pivots, g.pivotTables(member)...)
		}
	}
	return append(tables, pivots...)
}

// hierarchyTable unions the stored columns of every member. Columns that a
// subclass declares are nullable since other classes leave them empty.
func (g *SchemaGenerator) hierarchyTable(root string) store.TableDef {
	md := g.m.metadata
	rootMeta, _ := md.Get(root)
	def := store.TableDef{Name: rootMeta.Table}

	seen := make(map[string]bool)
	add := func(c store.ColumnDef) {
		if seen[c.Name] {
			return
		}
		seen[c.Name] = true
		def.Columns = append(def.Columns, c)
	}

	for _, member := range md.Members(root) {
		declared := md.index[member]
		onRoot := member == root
		for _, p := range declared.Properties {
			col := rootMeta.Column(p)
			switch {
			case col == "":
				continue
			case p.Primary:
				add(store.ColumnDef{Name: col, Type: store.TypeInteger, PrimaryKey: true})
			case p.Kind == ir.KindManyToOne:
				target, _ := md.Get(p.Entity)
				add(store.ColumnDef{
					Name:       col,
					Type:       store.TypeInteger,
					NotNull:    onRoot && !p.Nullable,
					References: target.Table,
					RefColumn:  pkColumn(target),
				})
			default:
				add(store.ColumnDef{
					Name:    col,
					Type:    columnType(p.Type),
					NotNull: (onRoot && !p.Nullable) || col == rootMeta.DiscriminatorColumn,
				})
			}
		}
		if onRoot {
			add(store.ColumnDef{Name: rootMeta.DiscriminatorColumn, Type: store.TypeText, NotNull: true})
		}
	}
	return def
}

func (g *SchemaGenerator) pivotTables(class string) []store.TableDef {
	md := g.m.metadata
	owner := md.index[class]
	var out []store.TableDef
	for _, p := range owner.Properties {
		if p.Kind != ir.KindManyToMany || !p.Owner {
			continue
		}
		ownerMeta, _ := md.Get(class)
		target, _ := md.Get(p.Entity)
		join, inverse := ir.PivotColumns(owner, p)
		out = append(out, store.TableDef{
			Name: ir.PivotTableName(owner, p),
			Columns: []store.ColumnDef{
				{Name: join, Type: store.TypeInteger, NotNull: true, References: ownerMeta.Table, RefColumn: pkColumn(ownerMeta)},
				{Name: inverse, Type: store.TypeInteger, NotNull: true, References: target.Table, RefColumn: pkColumn(target)},
			},
			PrimaryKey: []string{join, inverse},
		})
	}
	return out
}

func pkColumn(m *EntityMeta) string {
	return m.Column(m.PrimaryKey())
}

func columnType(scalar string) string {
	switch scalar {
	case "string":
		return store.TypeText
	case "boolean":
		return store.TypeInteger
	default:
		return store.TypeNumeric
	}
}
