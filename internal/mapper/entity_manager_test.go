package mapper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stiprobe/internal/store"
)

func TestPersistAndFindOne(t *testing.T) {
	for _, driver := range store.ValidDrivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			m := refreshed(t, driver, "BaseEntity", "MidEntity", "ParentEntity")

			em := m.Fork()
			e := &Entity{Class: "BaseEntity", Fields: map[string]any{"name": "Base Entity 1"}}
			require.NoError(t, em.PersistAndFlush(ctx, e))
			assert.Equal(t, int64(1), e.ID)

			found, err := m.Fork().FindOne(ctx, "BaseEntity", map[string]any{"name": "Base Entity 1"})
			require.NoError(t, err)
			assert.Equal(t, &Entity{
				Class: "BaseEntity",
				ID:    1,
				Fields: map[string]any{
					"name":   "Base Entity 1",
					"type":   "base",
					"parent": nil,
				},
			}, found)
		})
	}
}

func TestFindOneHydratesSubclass(t *testing.T) {
	ctx := context.Background()
	m := refreshed(t, "", allSTI...)
	em := m.Fork()

	require.NoError(t, em.PersistAndFlush(ctx, &Entity{Class: "BossEntity", Fields: map[string]any{
		"name":        "Boss",
		"description": "in charge",
	}}))

	found, err := em.FindOne(ctx, "BaseEntity", map[string]any{"name": "Boss"})
	require.NoError(t, err)
	assert.Equal(t, "BossEntity", found.Class)
	assert.Equal(t, "in charge", found.Fields["description"])
	assert.Equal(t, "boss", found.Fields["type"])
	assert.Contains(t, found.Fields, "parentMid")
}

func TestFindOneRestrictsToSubtypes(t *testing.T) {
	ctx := context.Background()
	m := refreshed(t, "", allSTI...)
	em := m.Fork()

	require.NoError(t, em.PersistAndFlush(ctx, &Entity{Class: "MidEntity", Fields: map[string]any{"name": "m"}}))

	_, err := em.FindOne(ctx, "ParentEntity", map[string]any{"name": "m"})
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := em.FindOne(ctx, "BaseEntity", map[string]any{"name": "m"})
	require.NoError(t, err)
	assert.Equal(t, "MidEntity", found.Class)
}

func TestManyToOneReference(t *testing.T) {
	ctx := context.Background()
	m := refreshed(t, "", allSTI...)
	em := m.Fork()

	parent := &Entity{Class: "ParentEntity", Fields: map[string]any{"name": "p"}}
	child := &Entity{Class: "BaseEntity", Fields: map[string]any{"name": "c", "parent": parent}}
	require.NoError(t, em.Persist(parent))
	require.NoError(t, em.Persist(child))
	require.NoError(t, em.Flush(ctx))

	found, err := em.FindOne(ctx, "BaseEntity", map[string]any{"parent": parent.ID})
	require.NoError(t, err)
	assert.Equal(t, child.ID, found.ID)
	assert.Equal(t, parent.ID, found.Fields["parent"])
}

func TestOwningManyToManyWritesPivot(t *testing.T) {
	ctx := context.Background()
	m := refreshed(t, "", allSTI...)
	em := m.Fork()

	a := &Entity{Class: "BaseEntity", Fields: map[string]any{"name": "a"}}
	b := &Entity{Class: "BaseEntity", Fields: map[string]any{"name": "b"}}
	require.NoError(t, em.Persist(a))
	require.NoError(t, em.Persist(b))
	require.NoError(t, em.Flush(ctx))

	mid := &Entity{Class: "MidEntity", Fields: map[string]any{"name": "m", "items": []any{a.ID, int(b.ID)}}}
	require.NoError(t, em.PersistAndFlush(ctx, mid))

	n, err := m.Store().Count(ctx, "base_entity_mid")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPersistRejectsInvalidEntities(t *testing.T) {
	m := initMapper(t, "", allSTI...)
	em := m.Fork()

	tests := map[string]*Entity{
		`unknown entity "Nope"`:                       {Class: "Nope"},
		`unknown property "color"`:                    {Class: "BaseEntity", Fields: map[string]any{"color": "red"}},
		"id is generated":                             {Class: "BaseEntity", Fields: map[string]any{"id": 3}},
		"type is the discriminator":                   {Class: "BaseEntity", Fields: map[string]any{"type": "mid"}},
		"childMids is the inverse side of a relation": {Class: "MidEntity", Fields: map[string]any{"childMids": []any{}}},
		"mids is the inverse side of a relation":      {Class: "BaseEntity", Fields: map[string]any{"mids": []any{}}},
	}
	for want, e := range tests {
		err := em.Persist(e)
		require.Error(t, err, want)
		assert.Contains(t, err.Error(), want)
	}
	assert.Empty(t, em.pending)
}

func TestFlushTypeErrorsKeepQueue(t *testing.T) {
	ctx := context.Background()
	m := refreshed(t, "", allSTI...)
	em := m.Fork()

	require.NoError(t, em.Persist(&Entity{Class: "BaseEntity", Fields: map[string]any{"name": 42}}))
	err := em.Flush(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want string, got int")
	assert.Len(t, em.pending, 1)
}

func TestFlushPivotFailureLeavesNoRow(t *testing.T) {
	ctx := context.Background()
	m := refreshed(t, "", allSTI...)
	em := m.Fork()

	mid := &Entity{Class: "MidEntity", Fields: map[string]any{"name": "m", "items": []any{999}}}
	require.NoError(t, em.Persist(mid))
	err := em.Flush(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush MidEntity: items:")

	assert.Zero(t, mid.ID)
	assert.Len(t, em.pending, 1)
	n, err := m.Store().Count(ctx, "base_entity")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = m.Store().Count(ctx, "base_entity_mid")
	require.NoError(t, err)
	assert.Zero(t, n)

	// Retrying after fixing the reference inserts exactly one row.
	a := &Entity{Class: "BaseEntity", Fields: map[string]any{"name": "a"}}
	require.NoError(t, em.Persist(a))
	mid.Fields["items"] = []any{}
	require.NoError(t, em.Flush(ctx))
	assert.Empty(t, em.pending)
	assert.Equal(t, int64(1), mid.ID)
	assert.Equal(t, int64(2), a.ID)

	n, err = m.Store().Count(ctx, "base_entity")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFlushWithoutRefresh(t *testing.T) {
	ctx := context.Background()
	m := initMapper(t, "", allSTI...)

	err := m.Fork().PersistAndFlush(ctx, &Entity{Class: "BaseEntity", Fields: map[string]any{"name": "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
}

func TestFindOneErrors(t *testing.T) {
	ctx := context.Background()
	em := refreshed(t, "", allSTI...).Fork()

	_, err := em.FindOne(ctx, "Nope", nil)
	assert.ErrorContains(t, err, "unknown entity")

	_, err = em.FindOne(ctx, "BaseEntity", map[string]any{"color": "red"})
	assert.ErrorContains(t, err, `unknown property "color"`)

	_, err = em.FindOne(ctx, "BaseEntity", map[string]any{"mids": 1})
	assert.ErrorContains(t, err, "cannot filter on collection mids")

	_, err = em.FindOne(ctx, "BaseEntity", map[string]any{"name": "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClosedMapper(t *testing.T) {
	ctx := context.Background()
	m := refreshed(t, "", allSTI...)
	em := m.Fork()

	require.NoError(t, m.Close(ctx))
	assert.True(t, m.Closed())
	assert.ErrorIs(t, m.Close(ctx), ErrClosed)
	assert.ErrorIs(t, m.Schema().RefreshDatabase(ctx), ErrClosed)
	assert.ErrorIs(t, em.Flush(ctx), ErrClosed)
	assert.ErrorIs(t, em.Persist(&Entity{Class: "BaseEntity", Fields: map[string]any{"name": "x"}}), ErrClosed)
	assert.ErrorIs(t, em.PersistAndFlush(ctx, &Entity{Class: "BaseEntity"}), ErrClosed)
	assert.Empty(t, em.pending)

	_, err := em.FindOne(ctx, "BaseEntity", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestColumnValue(t *testing.T) {
	v, err := toInt64(float64(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = toInt64(1.5)
	assert.Error(t, err)

	_, err = toIDs("not a list")
	assert.ErrorContains(t, err, "want a list of ids")

	ids, err := toIDs([]int64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, ids)
}
