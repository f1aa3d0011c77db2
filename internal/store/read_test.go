package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T, driver string) *Store {
	t.Helper()
	ctx := context.Background()
	s := openMemory(t, driver)
	require.NoError(t, s.Refresh(ctx, stiTables()))

	parent, err := s.Insert(ctx, "parent_entity", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), parent)

	rows := [][]Value{
		{{"name", "Base Entity 1"}, {"type", "base"}, {"parent_id", parent}},
		{{"name", "Mid Entity 1"}, {"type", "mid"}},
		{{"name", "Boss"}, {"type", "boss"}},
	}
	for i, r := range rows {
		id, err := s.Insert(ctx, "base_entity", r)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}
	return s
}

func TestFindOne_BothDrivers(t *testing.T) {
	for _, driver := range ValidDrivers {
		t.Run(driver, func(t *testing.T) {
			s := seeded(t, driver)

			row, err := s.FindOne(context.Background(), Query{
				Table: "base_entity",
				Where: []Value{{"name", "Base Entity 1"}},
			})
			require.NoError(t, err)
			assert.Equal(t, "Base Entity 1", row["name"])
			assert.Equal(t, "base", row["type"])
			assert.EqualValues(t, 1, row["id"])
			assert.EqualValues(t, 1, row["parent_id"])
		})
	}
}

func TestFindOne_InFilter(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, DriverCGO)

	_, err := s.FindOne(ctx, Query{
		Table:    "base_entity",
		Where:    []Value{{"name", "Boss"}},
		InColumn: "type",
		InValues: []any{"base", "mid"},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	row, err := s.FindOne(ctx, Query{
		Table:    "base_entity",
		InColumn: "type",
		InValues: []any{"mid", "boss"},
		OrderBy:  "id",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mid Entity 1", row["name"])
}

func TestFindOne_EmptyInMatchesNothing(t *testing.T) {
	s := seeded(t, DriverCGO)

	_, err := s.FindOne(context.Background(), Query{Table: "base_entity", InColumn: "type"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindOne_NilMatchesNull(t *testing.T) {
	s := seeded(t, DriverPureGo)

	row, err := s.FindOne(context.Background(), Query{
		Table:   "base_entity",
		Where:   []Value{{"parent_id", nil}},
		OrderBy: "id",
	})
	require.NoError(t, err)
	assert.Equal(t, "Mid Entity 1", row["name"])
	assert.Nil(t, row["parent_id"])
}

func TestFindOne_InvalidIdentifiers(t *testing.T) {
	s := seeded(t, DriverCGO)
	ctx := context.Background()

	for _, q := range []Query{
		{Table: "base entity"},
		{Table: "base_entity", Where: []Value{{"na-me", "x"}}},
		{Table: "base_entity", InColumn: "1type", InValues: []any{"a"}},
		{Table: "base_entity", OrderBy: "id DESC"},
	} {
		_, err := s.FindOne(ctx, q)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, "%+v", q)
	}
}

func TestQueryBuild(t *testing.T) {
	query, args, err := Query{
		Table:    "base_entity",
		Where:    []Value{{"name", "x"}, {"parent_id", nil}},
		InColumn: "type",
		InValues: []any{"base", "mid"},
		OrderBy:  "id",
	}.build()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM base_entity WHERE name = ? AND parent_id IS NULL AND type IN (?, ?) ORDER BY id ASC LIMIT 1",
		query)
	assert.Equal(t, []any{"x", "base", "mid"}, args)
}

func TestInsert_ForeignKeyEnforced(t *testing.T) {
	s := seeded(t, DriverCGO)

	_, err := s.Insert(context.Background(), "base_entity", []Value{
		{"name", "orphan"}, {"type", "base"}, {"parent_id", int64(99)},
	})
	assert.Error(t, err)
}

func TestInsert_Pivot(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, DriverCGO)

	_, err := s.Insert(ctx, "base_entity_mid", []Value{{"mid_id", int64(2)}, {"base_entity_id", int64(1)}})
	require.NoError(t, err)

	n, err := s.Count(ctx, "base_entity_mid")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsert_InvalidIdentifier(t *testing.T) {
	s := seeded(t, DriverCGO)

	_, err := s.Insert(context.Background(), "base_entity", []Value{{"bad col", 1}})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, DriverCGO)

	var inserted int64
	err := s.InTx(ctx, func(tx *Tx) error {
		id, err := tx.Insert(ctx, "base_entity", []Value{{"name", "Mid Entity 2"}, {"type", "mid"}})
		if err != nil {
			return err
		}
		inserted = id
		_, err = tx.Insert(ctx, "base_entity_mid", []Value{{"mid_id", id}, {"base_entity_id", int64(99)}})
		return err
	})
	require.Error(t, err)
	assert.Equal(t, int64(4), inserted)

	n, err := s.Count(ctx, "base_entity")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "row inserted before the failure must be rolled back")

	n, err = s.Count(ctx, "base_entity_mid")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInTx_Commits(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, DriverPureGo)

	err := s.InTx(ctx, func(tx *Tx) error {
		id, err := tx.Insert(ctx, "base_entity", []Value{{"name", "Mid Entity 2"}, {"type", "mid"}})
		if err != nil {
			return err
		}
		_, err = tx.Insert(ctx, "base_entity_mid", []Value{{"mid_id", id}, {"base_entity_id", int64(1)}})
		return err
	})
	require.NoError(t, err)

	n, err := s.Count(ctx, "base_entity")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = s.Count(ctx, "base_entity_mid")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
