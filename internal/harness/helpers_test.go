package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stiprobe/internal/testutil"
)

var scenariosDir = filepath.Join("..", "..", "examples", "sti", "scenarios")

var exampleScenarios = []string{
	"sti_three_instances",
	"schema_pollution",
	"forked_entity_managers",
	"schema_drift",
}

func loadExample(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenarioWithBasePath(filepath.Join(scenariosDir, name+".yaml"), scenariosDir)
	require.NoError(t, err)
	return s
}

func deterministic() Options {
	return Options{IDGenerator: testutil.NewSequentialIDGenerator("")}
}

// minimal returns a valid in-memory scenario over the example schema.
func minimal() *Scenario {
	return &Scenario{
		Name:        "minimal",
		Description: "one instance",
		Specs:       []string{filepath.Join("..", "..", "examples", "sti", "schema.cue")},
		Instances: []Instance{{
			Label:    "orm1",
			Entities: []string{"BaseEntity", "MidEntity", "ParentEntity"},
		}},
	}
}
