package mapper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/roach88/stiprobe/internal/ir"
	"github.com/roach88/stiprobe/internal/store"
)

// Entity is a loosely typed entity instance.
//
// Fields are keyed by property name. A many-to-one field holds the
// referenced primary key; an owning many-to-many field holds a list of
// them.
type Entity struct {
	Class  string         `json:"class"`
	ID     int64          `json:"id"`
	Fields map[string]any `json:"fields"`
}

// EntityManager is a unit of work on one Mapper.
type EntityManager struct {
	m       *Mapper
	pending []*Entity
}

// Persist validates e and queues it for the next Flush.
func (em *EntityManager) Persist(e *Entity) error {
	if err := em.m.checkOpen(); err != nil {
		return err
	}
	meta, ok := em.m.metadata.Get(e.Class)
	if !ok {
		return fmt.Errorf("persist: unknown entity %q", e.Class)
	}
	for _, name := range sortedKeys(e.Fields) {
		p, ok := meta.Property(name)
		if !ok {
			return fmt.Errorf("persist %s: unknown property %q", e.Class, name)
		}
		switch {
		case p.Primary:
			return fmt.Errorf("persist %s: %s is generated", e.Class, name)
		case meta.Column(p) == meta.DiscriminatorColumn:
			return fmt.Errorf("persist %s: %s is the discriminator", e.Class, name)
		case p.Kind == ir.KindOneToMany || (p.Kind == ir.KindManyToMany && !p.Owner):
			return fmt.Errorf("persist %s: %s is the inverse side of a relation", e.Class, name)
		}
	}
	em.pending = append(em.pending, e)
	return nil
}

// Flush inserts every queued entity in Persist order and assigns IDs. Each
// entity's row and pivot rows are written in one transaction. Flush stops at
// the first failure; the failed entity and those after it stay queued and
// nothing of the failed entity is left in the database.
func (em *EntityManager) Flush(ctx context.Context) error {
	if err := em.m.checkOpen(); err != nil {
		return err
	}
	for len(em.pending) > 0 {
		e := em.pending[0]
		if err := em.insert(ctx, e); err != nil {
			return fmt.Errorf("flush %s: %w", e.Class, err)
		}
		em.pending = em.pending[1:]
	}
	return nil
}

// PersistAndFlush persists e and flushes immediately.
func (em *EntityManager) PersistAndFlush(ctx context.Context, e *Entity) error {
	if err := em.Persist(e); err != nil {
		return err
	}
	return em.Flush(ctx)
}

// FindOne returns the first entity of class, or of one of its subclasses,
// whose properties equal where. Results are ordered by primary key.
func (em *EntityManager) FindOne(ctx context.Context, class string, where map[string]any) (*Entity, error) {
	if err := em.m.checkOpen(); err != nil {
		return nil, err
	}
	md := em.m.metadata
	meta, ok := md.Get(class)
	if !ok {
		return nil, fmt.Errorf("find %s: unknown entity", class)
	}

	q := store.Query{
		Table:    meta.Table,
		InColumn: meta.DiscriminatorColumn,
		InValues: md.DiscriminatorValues(class),
		OrderBy:  pkColumn(meta),
	}
	for _, name := range sortedKeys(where) {
		p, ok := meta.Property(name)
		if !ok {
			return nil, fmt.Errorf("find %s: unknown property %q", class, name)
		}
		col := meta.Column(p)
		if col == "" {
			return nil, fmt.Errorf("find %s: cannot filter on collection %s", class, name)
		}
		v, err := columnValue(p, where[name])
		if err != nil {
			return nil, fmt.Errorf("find %s: %s: %w", class, name, err)
		}
		q.Where = append(q.Where, store.Value{Column: col, V: v})
	}

	em.m.logger.Debugf("[%s] select from %s where %v", em.m.contextName, meta.Table, where)
	row, err := em.m.store.FindOne(ctx, q)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find %s: %w", class, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", class, err)
	}
	return em.hydrate(meta, row)
}

func (em *EntityManager) insert(ctx context.Context, e *Entity) error {
	meta, _ := em.m.metadata.Get(e.Class)

	values := []store.Value{{Column: meta.DiscriminatorColumn, V: meta.DiscriminatorValue}}
	var pivots []pivotRows
	for _, name := range sortedKeys(e.Fields) {
		p, _ := meta.Property(name)
		if p.Kind == ir.KindManyToMany {
			rows, err := em.pivotRows(meta, p, e.Fields[name])
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			pivots = append(pivots, rows)
			continue
		}
		v, err := columnValue(p, e.Fields[name])
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		values = append(values, store.Value{Column: meta.Column(p), V: v})
	}

	em.m.logger.Debugf("[%s] insert into %s", em.m.contextName, meta.Table)
	var id int64
	err := em.m.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		if id, err = tx.Insert(ctx, meta.Table, values); err != nil {
			return err
		}
		for _, rows := range pivots {
			for _, target := range rows.targets {
				if _, err := tx.Insert(ctx, rows.table, []store.Value{
					{Column: rows.join, V: id},
					{Column: rows.inverse, V: target},
				}); err != nil {
					return fmt.Errorf("%s: %w", rows.prop, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// pivotRows is the join table rows one owning many-to-many field expands to.
type pivotRows struct {
	prop          string
	table         string
	join, inverse string
	targets       []int64
}

func (em *EntityManager) pivotRows(meta *EntityMeta, p ir.Property, raw any) (pivotRows, error) {
	ids, err := toIDs(raw)
	if err != nil {
		return pivotRows{}, err
	}
	owner := declaringSchema(em.m.metadata.index, meta.ClassName, p.Name)
	join, inverse := ir.PivotColumns(owner, p)
	return pivotRows{
		prop:    p.Name,
		table:   ir.PivotTableName(owner, p),
		join:    join,
		inverse: inverse,
		targets: ids,
	}, nil
}

// hydrate builds an Entity of the class the row's discriminator names.
func (em *EntityManager) hydrate(queried *EntityMeta, row store.Row) (*Entity, error) {
	discr, _ := row[queried.DiscriminatorColumn].(string)
	meta, ok := em.m.metadata.ClassForDiscriminator(queried.Root, discr)
	if !ok {
		return nil, fmt.Errorf("find %s: unknown discriminator value %q", queried.ClassName, discr)
	}

	e := &Entity{Class: meta.ClassName, Fields: make(map[string]any)}
	for _, p := range meta.Properties {
		col := meta.Column(p)
		if col == "" {
			continue
		}
		v := row[col]
		if p.Primary {
			id, err := toInt64(v)
			if err != nil {
				return nil, fmt.Errorf("find %s: primary key: %w", queried.ClassName, err)
			}
			e.ID = id
			continue
		}
		if p.Type == "boolean" && v != nil {
			n, err := toInt64(v)
			if err != nil {
				return nil, fmt.Errorf("find %s: %s: %w", queried.ClassName, p.Name, err)
			}
			v = n != 0
		}
		e.Fields[p.Name] = v
	}
	return e, nil
}

// declaringSchema returns the schema in class's chain that declares prop.
func declaringSchema(idx ir.SchemaIndex, class, prop string) ir.EntitySchema {
	for _, s := range idx.Chain(class) {
		if _, ok := s.Property(prop); ok {
			return s
		}
	}
	return idx[class]
}

func columnValue(p ir.Property, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if p.Kind == ir.KindManyToOne {
		if ref, ok := v.(*Entity); ok {
			return ref.ID, nil
		}
		return toInt64(v)
	}
	switch p.Type {
	case "string":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		return s, nil
	case "boolean":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want boolean, got %T", v)
		}
		return b, nil
	default:
		switch n := v.(type) {
		case int, int32, int64, float64:
			return n, nil
		}
		return nil, fmt.Errorf("want number, got %T", v)
	}
}

func toIDs(v any) ([]int64, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []int64:
		return list, nil
	case []any:
		out := make([]int64, len(list))
		for i, item := range list {
			id, err := toInt64(item)
			if err != nil {
				return nil, err
			}
			out[i] = id
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want a list of ids, got %T", v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("want integer id, got %v", n)
		}
		return int64(n), nil
	case *Entity:
		return n.ID, nil
	default:
		return 0, fmt.Errorf("want integer id, got %T", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
