package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/stiprobe/internal/ir"
)

// Metadata is what a mapper exposes for one discovered entity: the key names
// of its properties and relations collections. Values are irrelevant here.
type Metadata interface {
	PropertyNames() []string
	RelationNames() []string
}

// Entities adapts a typed metadata map for Capture and Take.
func Entities[M Metadata](m map[string]M) map[string]Metadata {
	out := make(map[string]Metadata, len(m))
	for name, meta := range m {
		out[name] = meta
	}
	return out
}

// EntityDescriptor is the flattened, names-only view of one entity.
type EntityDescriptor struct {
	ClassName     string   `json:"class_name"`
	Properties    []string `json:"properties"`
	Relationships []string `json:"relationships"`
}

// Snapshot maps class names to descriptors.
type Snapshot map[string]EntityDescriptor

// ClassNames returns the snapshot's class names in ascending order.
func (s Snapshot) ClassNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for name, d := range s {
		out[name] = EntityDescriptor{
			ClassName:     d.ClassName,
			Properties:    append([]string(nil), d.Properties...),
			Relationships: append([]string(nil), d.Relationships...),
		}
	}
	return out
}

// Descriptors returns the descriptors ordered by class name.
func (s Snapshot) Descriptors() []EntityDescriptor {
	out := make([]EntityDescriptor, 0, len(s))
	for _, name := range s.ClassNames() {
		out = append(out, s[name])
	}
	return out
}

// Fingerprint is a canonical-JSON hash of the snapshot. Two captures with
// the same fingerprint saw the same names in the same order.
func (s Snapshot) Fingerprint() (string, error) {
	obj := make(map[string]any, len(s))
	for name, d := range s {
		obj[name] = map[string]any{
			"properties":    append([]string{}, d.Properties...),
			"relationships": append([]string{}, d.Relationships...),
		}
	}
	canonical, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return ir.HashWithDomain(ir.DomainSnapshot, canonical), nil
}

// ChangeKind distinguishes the two kinds of drift record.
type ChangeKind string

const (
	ChangeProperties    ChangeKind = "properties"
	ChangeRelationships ChangeKind = "relationships"
)

// Change is one drift record.
type Change struct {
	ClassName string     `json:"class_name"`
	Kind      ChangeKind `json:"kind"`

	// NewProperties is set for ChangeProperties, in current order.
	NewProperties []string `json:"new_properties,omitempty"`

	// RelationshipDelta is set for ChangeRelationships and is never zero.
	RelationshipDelta int `json:"relationship_delta,omitempty"`
}

// String renders the record in the harness's report format.
func (c Change) String() string {
	switch c.Kind {
	case ChangeProperties:
		return fmt.Sprintf("%s: +%d properties (%s)",
			c.ClassName, len(c.NewProperties), strings.Join(c.NewProperties, ", "))
	case ChangeRelationships:
		sign := ""
		if c.RelationshipDelta > 0 {
			sign = "+"
		}
		return fmt.Sprintf("%s: %s%d relationships", c.ClassName, sign, c.RelationshipDelta)
	default:
		return fmt.Sprintf("%s: unknown change %q", c.ClassName, c.Kind)
	}
}

// Delta is the ordered list of records from one comparison.
type Delta []Change

// Strings renders every record.
func (d Delta) Strings() []string {
	out := make([]string, len(d))
	for i, c := range d {
		out[i] = c.String()
	}
	return out
}

// Empty reports whether no drift was found.
func (d Delta) Empty() bool {
	return len(d) == 0
}
