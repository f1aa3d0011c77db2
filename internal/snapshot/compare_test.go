package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeta struct {
	props []string
	rels  []string
}

func (m fakeMeta) PropertyNames() []string { return m.props }
func (m fakeMeta) RelationNames() []string { return m.rels }

func meta(props []string, rels ...string) fakeMeta {
	return fakeMeta{props: props, rels: rels}
}

func TestTake(t *testing.T) {
	snap := Take(map[string]Metadata{
		"A": meta([]string{"id", "name", "parent"}, "parent"),
		"B": meta(nil),
	})

	require.Len(t, snap, 2)
	assert.Equal(t, EntityDescriptor{
		ClassName:     "A",
		Properties:    []string{"id", "name", "parent"},
		Relationships: []string{"parent"},
	}, snap["A"])
	assert.NotNil(t, snap["B"].Properties)
	assert.Empty(t, snap["B"].Properties)
}

func TestTakePanicsOnNilMetadata(t *testing.T) {
	assert.Panics(t, func() {
		Take(map[string]Metadata{"A": nil})
	})
}

func TestCompareEmptyPreviousYieldsNothing(t *testing.T) {
	cur := Take(map[string]Metadata{"A": meta([]string{"x"}, "r1")})
	assert.Empty(t, Compare(nil, cur))
	assert.Empty(t, Compare(Snapshot{}, cur))
}

func TestCompareIdenticalSnapshots(t *testing.T) {
	entities := map[string]Metadata{
		"A": meta([]string{"x", "y"}, "r1"),
		"B": meta([]string{"z"}),
	}
	assert.Empty(t, Compare(Take(entities), Take(entities)))
}

func TestCompareNewProperty(t *testing.T) {
	prev := Take(map[string]Metadata{"A": meta([]string{"x"})})
	cur := Take(map[string]Metadata{"A": meta([]string{"x", "y"})})

	assert.Equal(t, []string{"A: +1 properties (y)"}, Compare(prev, cur).Strings())
}

func TestCompareRemovedRelationship(t *testing.T) {
	prev := Take(map[string]Metadata{"A": meta([]string{"x"}, "r1")})
	cur := Take(map[string]Metadata{"A": meta([]string{"x"})})

	delta := Compare(prev, cur)
	assert.Equal(t, []string{"A: -1 relationships"}, delta.Strings())
	assert.Equal(t, -1, delta[0].RelationshipDelta)
}

func TestCompareAddedRelationshipsAreSigned(t *testing.T) {
	prev := Take(map[string]Metadata{"A": meta([]string{"x"})})
	cur := Take(map[string]Metadata{"A": meta([]string{"x"}, "r1", "r2")})

	assert.Equal(t, []string{"A: +2 relationships"}, Compare(prev, cur).Strings())
}

func TestCompareDisjointClassesIgnored(t *testing.T) {
	prev := Take(map[string]Metadata{"A": meta([]string{"x"}, "r1")})
	cur := Take(map[string]Metadata{"B": meta([]string{"x", "y"})})

	assert.Empty(t, Compare(prev, cur))
}

func TestCompareRemovedPropertiesNotReported(t *testing.T) {
	prev := Take(map[string]Metadata{"A": meta([]string{"x", "y"})})
	cur := Take(map[string]Metadata{"A": meta([]string{"x"})})

	assert.Empty(t, Compare(prev, cur))
}

func TestCompareKeepsCurrentPropertyOrder(t *testing.T) {
	prev := Take(map[string]Metadata{"A": meta([]string{"b"})})
	cur := Take(map[string]Metadata{"A": meta([]string{"z", "b", "a", "m"})})

	assert.Equal(t, []string{"A: +3 properties (z, a, m)"}, Compare(prev, cur).Strings())
}

func TestCompareOrdersByClassThenKind(t *testing.T) {
	prev := Take(map[string]Metadata{
		"ParentEntity": meta([]string{"id"}, "elements"),
		"BaseEntity":   meta([]string{"id"}),
		"MidEntity":    meta([]string{"id"}),
	})
	cur := Take(map[string]Metadata{
		"ParentEntity": meta([]string{"id", "description"}),
		"BaseEntity":   meta([]string{"id"}, "mids"),
		"MidEntity":    meta([]string{"id", "items"}, "items"),
	})

	assert.Equal(t, []string{
		"BaseEntity: +1 relationships",
		"MidEntity: +1 properties (items)",
		"MidEntity: +1 relationships",
		"ParentEntity: +1 properties (description)",
		"ParentEntity: -1 relationships",
	}, Compare(prev, cur).Strings())
}

func TestChangeStringUnknownKind(t *testing.T) {
	c := Change{ClassName: "A", Kind: "bogus"}
	assert.Equal(t, `A: unknown change "bogus"`, c.String())
}

func TestFingerprint(t *testing.T) {
	a := Take(map[string]Metadata{"A": meta([]string{"x", "y"}, "r")})
	b := Take(map[string]Metadata{"A": meta([]string{"x", "y"}, "r")})
	c := Take(map[string]Metadata{"A": meta([]string{"y", "x"}, "r")})

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	fc, err := c.Fingerprint()
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.NotEqual(t, fa, fc)
}

func TestCloneIsDeep(t *testing.T) {
	orig := Take(map[string]Metadata{"A": meta([]string{"x"})})
	clone := orig.Clone()
	clone["A"].Properties[0] = "mutated"

	assert.Equal(t, "x", orig["A"].Properties[0])
}

func TestEntitiesAdapter(t *testing.T) {
	typed := map[string]fakeMeta{"A": meta([]string{"x"})}
	snap := Take(Entities(typed))
	assert.Equal(t, []string{"x"}, snap["A"].Properties)
}
