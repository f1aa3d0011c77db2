// Package harness runs mapper scenarios and reports metadata drift between
// consecutive mapper instances.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: sti_three_instances
//	description: "Three sequential mappers over the same schemas"
//	specs:
//	  - ../schema.cue
//	reset: true
//	instances:
//	  - label: orm1
//	    entities: [BaseEntity, MidEntity, ParentEntity]
//	    forks:
//	      - persist:
//	          - entity: BaseEntity
//	            fields: {name: "Base Entity 1"}
//	        find:
//	          - entity: BaseEntity
//	            where: {name: "Base Entity 1"}
//	            expect: {name: "Base Entity 1"}
//	    expect_delta: []
//
// Each instance is initialised, refreshed, captured into the scenario's
// Differ, exercised through its forks and closed before the next one
// starts. An instance may name its own specs to model a schema change.
//
// # Determinism
//
// Reports carry instance IDs, snapshot fingerprints and found entities.
// With a sequential ID generator the rendered report is stable, so it is
// compared against golden files under testdata/golden.
package harness
