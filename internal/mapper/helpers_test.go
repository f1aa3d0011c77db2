package mapper

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stiprobe/internal/compiler"
	"github.com/roach88/stiprobe/internal/ir"
	"github.com/roach88/stiprobe/internal/testutil"
)

var allSTI = []string{"BaseEntity", "MidEntity", "ParentEntity", "BossEntity"}

// stiSchemas loads the example hierarchy and keeps the named entities, in
// the given order.
func stiSchemas(t *testing.T, names ...string) []ir.EntitySchema {
	t.Helper()
	schemas, err := compiler.CompileFiles(filepath.Join("..", "..", "examples", "sti", "schema.cue"))
	require.NoError(t, err)

	idx := ir.Index(schemas)
	out := make([]ir.EntitySchema, 0, len(names))
	for _, name := range names {
		s, ok := idx[name]
		require.True(t, ok, name)
		out = append(out, s)
	}
	return out
}

func initMapper(t *testing.T, driver string, names ...string) *Mapper {
	t.Helper()
	m, err := Init(context.Background(), Config{
		Entities:    stiSchemas(t, names...),
		Driver:      driver,
		ContextName: "test",
		IDGenerator: testutil.NewSequentialIDGenerator("orm"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

func refreshed(t *testing.T, driver string, names ...string) *Mapper {
	t.Helper()
	m := initMapper(t, driver, names...)
	require.NoError(t, m.Schema().RefreshDatabase(context.Background()))
	return m
}
