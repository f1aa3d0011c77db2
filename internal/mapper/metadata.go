package mapper

import (
	"fmt"
	"sort"

	"github.com/roach88/stiprobe/internal/ir"
)

// EntityMeta is the discovered metadata of one entity class.
type EntityMeta struct {
	ClassName string

	// Root names the hierarchy root; it equals ClassName for roots.
	Root  string
	Table string

	DiscriminatorColumn string
	DiscriminatorValue  string

	// Properties lists inherited properties first, root first, then the
	// class's own, in declaration order.
	Properties []ir.Property

	// Relations is the subset of Properties that are not scalars.
	Relations []ir.Property
}

// PropertyNames returns the property keys in discovery order.
func (m *EntityMeta) PropertyNames() []string {
	return propertyNames(m.Properties)
}

// RelationNames returns the relation keys in discovery order.
func (m *EntityMeta) RelationNames() []string {
	return propertyNames(m.Relations)
}

// Property returns the named property.
func (m *EntityMeta) Property(name string) (ir.Property, bool) {
	for _, p := range m.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return ir.Property{}, false
}

// PrimaryKey returns the primary key property.
func (m *EntityMeta) PrimaryKey() ir.Property {
	for _, p := range m.Properties {
		if p.Primary {
			return p
		}
	}
	return ir.Property{}
}

// Column returns the table column that stores p, or "" when p is not
// stored in the entity table.
func (m *EntityMeta) Column(p ir.Property) string {
	switch p.Kind {
	case ir.KindScalar, "":
		return ir.SnakeCase(p.Name)
	case ir.KindManyToOne:
		return ir.ForeignKeyColumn(p)
	default:
		return ""
	}
}

func propertyNames(props []ir.Property) []string {
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	return names
}

// MetadataStorage holds every entity one Mapper discovered. It is never
// shared between mappers.
type MetadataStorage struct {
	index ir.SchemaIndex
	metas map[string]*EntityMeta
}

// GetAll returns the discovered metadata keyed by class name. The map is a
// copy; the metadata it points to is shared.
func (s *MetadataStorage) GetAll() map[string]*EntityMeta {
	out := make(map[string]*EntityMeta, len(s.metas))
	for name, m := range s.metas {
		out[name] = m
	}
	return out
}

// Get returns the metadata for class.
func (s *MetadataStorage) Get(class string) (*EntityMeta, bool) {
	m, ok := s.metas[class]
	return m, ok
}

// ClassNames returns the discovered class names in ascending order.
func (s *MetadataStorage) ClassNames() []string {
	names := make([]string, 0, len(s.metas))
	for name := range s.metas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Roots returns the hierarchy root names in ascending order.
func (s *MetadataStorage) Roots() []string {
	var roots []string
	for _, name := range s.ClassNames() {
		if s.metas[name].Root == name {
			roots = append(roots, name)
		}
	}
	return roots
}

// Members returns root and every class in its hierarchy, root first and
// the rest in ascending order.
func (s *MetadataStorage) Members(root string) []string {
	out := []string{root}
	for _, name := range s.ClassNames() {
		if name != root && s.metas[name].Root == root {
			out = append(out, name)
		}
	}
	return out
}

// DiscriminatorValues returns the discriminator values of class and its
// registered subclasses, in ascending class order.
func (s *MetadataStorage) DiscriminatorValues(class string) []any {
	names := s.index.Descendants(class)
	sort.Strings(names)
	values := make([]any, 0, len(names))
	for _, name := range names {
		if m, ok := s.metas[name]; ok {
			values = append(values, m.DiscriminatorValue)
		}
	}
	return values
}

// ClassForDiscriminator maps a stored discriminator value within root's
// hierarchy back to a class.
func (s *MetadataStorage) ClassForDiscriminator(root, value string) (*EntityMeta, bool) {
	for _, name := range s.Members(root) {
		if m := s.metas[name]; m.DiscriminatorValue == value {
			return m, true
		}
	}
	return nil, false
}

// discover registers schemas. Every parent and relation target must be in
// the list.
func discover(schemas []ir.EntitySchema) (*MetadataStorage, error) {
	idx := make(ir.SchemaIndex, len(schemas))
	for _, s := range schemas {
		if _, dup := idx[s.Name]; dup {
			return nil, &DiscoveryError{Entity: s.Name, Message: "registered twice"}
		}
		idx[s.Name] = s
	}

	storage := &MetadataStorage{index: idx, metas: make(map[string]*EntityMeta, len(schemas))}
	for _, s := range schemas {
		meta, err := buildMeta(idx, s)
		if err != nil {
			return nil, err
		}
		storage.metas[s.Name] = meta
	}

	seen := make(map[string]string)
	for _, name := range storage.ClassNames() {
		m := storage.metas[name]
		key := m.Root + "\x00" + m.DiscriminatorValue
		if other, dup := seen[key]; dup {
			return nil, &DiscoveryError{
				Entity:  name,
				Message: fmt.Sprintf("discriminator value %q already used by %s", m.DiscriminatorValue, other),
			}
		}
		seen[key] = name
	}
	return storage, nil
}

func buildMeta(idx ir.SchemaIndex, s ir.EntitySchema) (*EntityMeta, error) {
	chain := idx.Chain(s.Name)
	root := chain[0]
	if root.Extends != "" {
		if _, ok := idx[root.Extends]; ok {
			return nil, &DiscoveryError{Entity: s.Name, Message: "inheritance cycle through " + root.Extends}
		}
		return nil, &DiscoveryError{Entity: s.Name, Message: fmt.Sprintf("parent %q is not registered", root.Extends)}
	}

	meta := &EntityMeta{
		ClassName:           s.Name,
		Root:                root.Name,
		Table:               ir.TableName(root),
		DiscriminatorColumn: root.DiscriminatorColumn,
		DiscriminatorValue:  s.DiscriminatorValue,
	}
	if meta.DiscriminatorColumn == "" {
		meta.DiscriminatorColumn = "discr"
	}
	if meta.DiscriminatorValue == "" {
		meta.DiscriminatorValue = ir.SnakeCase(s.Name)
	}

	seen := make(map[string]bool)
	for _, declared := range chain {
		for _, p := range declared.Properties {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			if p.IsRelation() {
				if _, ok := idx[p.Entity]; !ok {
					return nil, &DiscoveryError{
						Entity:  s.Name,
						Message: fmt.Sprintf("relation %s targets unregistered entity %q", p.Name, p.Entity),
					}
				}
				meta.Relations = append(meta.Relations, p)
			}
			meta.Properties = append(meta.Properties, p)
		}
	}

	pk := meta.PrimaryKey()
	if pk.Name == "" {
		return nil, &DiscoveryError{Entity: s.Name, Message: "no primary key"}
	}
	if pk.Type != "number" {
		return nil, &DiscoveryError{Entity: s.Name, Message: fmt.Sprintf("primary key %s must be a number", pk.Name)}
	}
	return meta, nil
}
