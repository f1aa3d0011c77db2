package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stiprobe/internal/mapper"
)

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs value", nil, "x", false},
		{"value vs nil", "x", nil, false},
		{"string", "a", "a", true},
		{"string mismatch", "a", "b", false},
		{"string vs int", "1", int64(1), false},
		{"yaml int vs sqlite int64", 1, int64(1), true},
		{"int mismatch", 1, int64(2), false},
		{"int64", int64(7), int64(7), true},
		{"int vs float", 3, float64(3), true},
		{"float vs int64", 2.0, int64(2), true},
		{"float", 2.5, 2.5, true},
		{"bool", true, true, true},
		{"bool vs stored 1", true, int64(1), true},
		{"bool vs stored 0", false, int64(0), true},
		{"bool mismatch", true, int64(0), false},
		{"list", []any{1, 2}, []any{1, 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestAssertDelta(t *testing.T) {
	assert.NoError(t, assertDelta("x", nil, []string{}))
	assert.NoError(t, assertDelta("x", []string{"A: +1 relationships"}, []string{"A: +1 relationships"}))

	err := assertDelta("orm2: delta", []string{"A: +1 relationships", "B: -1 relationships"}, []string{"B: -1 relationships", "A: +1 relationships"})
	require.Error(t, err)
	assert.Equal(t,
		"orm2: delta: expected [A: +1 relationships; B: -1 relationships], got [B: -1 relationships; A: +1 relationships]",
		err.Error())
}

func TestAssertFound(t *testing.T) {
	e := &mapper.Entity{
		Class:  "MidEntity",
		ID:     4,
		Fields: map[string]any{"name": "m", "parent": nil, "type": "mid"},
	}

	assert.NoError(t, assertFound("w", FindStep{Expect: map[string]any{"name": "m"}}, e))
	assert.NoError(t, assertFound("w", FindStep{Class: "MidEntity", Expect: map[string]any{"parent": nil}}, e))

	err := assertFound("w", FindStep{Expect: map[string]any{"parent": 1}}, e)
	require.Error(t, err)
	assert.Equal(t, "w: expected parent=1, got parent=null", err.Error())

	var aerr *AssertionError
	require.ErrorAs(t, assertFound("w", FindStep{Class: "BaseEntity"}, e), &aerr)
	assert.Equal(t, "class BaseEntity", aerr.Expected)
}

func TestFormatFields(t *testing.T) {
	got := formatFields(map[string]any{"type": "base", "name": "x", "parent": nil, "owner": int64(2)})
	assert.Equal(t, `name="x" owner=2 parent=null type="base"`, got)
	assert.Equal(t, "", formatFields(nil))
}
