package ir

// Kind classifies a property as a plain column or a relation.
type Kind string

const (
	KindScalar     Kind = "scalar"
	KindManyToOne  Kind = "m:1"
	KindOneToMany  Kind = "1:m"
	KindManyToMany Kind = "m:n"
)

// ValidKinds defines allowed property kinds.
var ValidKinds = map[Kind]bool{
	KindScalar:     true,
	KindManyToOne:  true,
	KindOneToMany:  true,
	KindManyToMany: true,
}

// ValidScalarTypes defines allowed scalar column types.
var ValidScalarTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
}

// EntitySchema describes one entity type of a single-table-inheritance
// hierarchy.
type EntitySchema struct {
	Name                string     `json:"name"`
	Extends             string     `json:"extends,omitempty"`
	Table               string     `json:"table,omitempty"`
	DiscriminatorColumn string     `json:"discriminator_column,omitempty"`
	DiscriminatorValue  string     `json:"discriminator_value,omitempty"`
	Properties          []Property `json:"properties"`
}

// Property is a declared attribute or relation of an entity.
type Property struct {
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Type     string `json:"type,omitempty"` // scalar only
	Primary  bool   `json:"primary,omitempty"`
	Nullable bool   `json:"nullable,omitempty"`

	// Relation fields.
	Entity            string `json:"entity,omitempty"`
	MappedBy          string `json:"mapped_by,omitempty"`
	Owner             bool   `json:"owner,omitempty"`
	PivotTable        string `json:"pivot_table,omitempty"`
	JoinColumn        string `json:"join_column,omitempty"`
	InverseJoinColumn string `json:"inverse_join_column,omitempty"`
}

// IsRelation reports whether the property points at another entity.
func (p Property) IsRelation() bool {
	return p.Kind != KindScalar && p.Kind != ""
}

// Property returns the named property declared directly on the schema.
func (s EntitySchema) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// IsRoot reports whether the schema starts an inheritance chain.
func (s EntitySchema) IsRoot() bool {
	return s.Extends == ""
}

// SchemaIndex maps entity names to schemas.
type SchemaIndex map[string]EntitySchema

// Index builds a SchemaIndex. Later duplicates overwrite earlier ones.
func Index(schemas []EntitySchema) SchemaIndex {
	idx := make(SchemaIndex, len(schemas))
	for _, s := range schemas {
		idx[s.Name] = s
	}
	return idx
}

// Chain returns the inheritance chain of name, root first, ending with name.
// It stops at the first unknown parent or repeated name, so callers that
// need a complete chain must validate the schemas first.
func (idx SchemaIndex) Chain(name string) []EntitySchema {
	var chain []EntitySchema
	seen := make(map[string]bool)
	for cur := name; cur != ""; {
		s, ok := idx[cur]
		if !ok || seen[cur] {
			break
		}
		seen[cur] = true
		chain = append(chain, s)
		cur = s.Extends
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Root returns the root schema of name's hierarchy.
func (idx SchemaIndex) Root(name string) (EntitySchema, bool) {
	chain := idx.Chain(name)
	if len(chain) == 0 {
		return EntitySchema{}, false
	}
	return chain[0], true
}

// Descendants returns name and every schema that extends it, directly or
// not, in no particular order.
func (idx SchemaIndex) Descendants(name string) []string {
	out := []string{name}
	for other := range idx {
		if other == name {
			continue
		}
		for _, s := range idx.Chain(other) {
			if s.Name == name {
				out = append(out, other)
				break
			}
		}
	}
	return out
}
