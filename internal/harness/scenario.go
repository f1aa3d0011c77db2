package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of mapper instances sharing one Differ.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Specs lists CUE entity files. Paths are relative to the base path
	// given to LoadScenarioWithBasePath.
	Specs []string `yaml:"specs"`

	// Reset empties the Differ before the first instance.
	Reset bool `yaml:"reset,omitempty"`

	Instances []Instance `yaml:"instances"`
}

// Instance configures one mapper.
type Instance struct {
	// Label is the mapper's context name and prefixes its log lines.
	Label string `yaml:"label"`

	// Specs overrides the scenario's specs for this instance.
	Specs []string `yaml:"specs,omitempty"`

	// Entities names the schemas to register, in order.
	Entities []string `yaml:"entities"`

	// SkipRefresh leaves the database without tables.
	SkipRefresh bool `yaml:"skip_refresh,omitempty"`

	Forks []Fork `yaml:"forks,omitempty"`

	// ExpectDelta is the exact expected drift, as rendered records. Nil
	// skips the check; an empty list expects no drift.
	ExpectDelta *[]string `yaml:"expect_delta,omitempty"`
}

// Fork is one EntityManager: persisted entities are flushed together, then
// the finds run.
type Fork struct {
	Persist []PersistStep `yaml:"persist,omitempty"`
	Find    []FindStep    `yaml:"find,omitempty"`
}

// PersistStep creates one entity.
type PersistStep struct {
	Entity string         `yaml:"entity"`
	Fields map[string]any `yaml:"fields,omitempty"`
}

// FindStep loads one entity and checks it.
type FindStep struct {
	Entity string         `yaml:"entity"`
	Where  map[string]any `yaml:"where,omitempty"`

	// Expect is a subset match on the found entity's fields.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Class is the expected concrete class of the found entity.
	Class string `yaml:"class,omitempty"`

	// Absent expects nothing to match.
	Absent bool `yaml:"absent,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Spec paths are used
// as written.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative spec paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if basePath != "" {
		resolve(scenario.Specs, basePath)
		for i := range scenario.Instances {
			resolve(scenario.Instances[i].Specs, basePath)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if err := checkSpecFiles(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML, rejecting unknown fields. Spec files
// are not checked.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

func resolve(paths []string, basePath string) {
	for i, p := range paths {
		if !filepath.IsAbs(p) {
			paths[i] = filepath.Join(basePath, p)
		}
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	if len(s.Instances) == 0 {
		return fmt.Errorf("instances list is required and must be non-empty")
	}

	labels := make(map[string]bool)
	for i, inst := range s.Instances {
		if inst.Label == "" {
			return fmt.Errorf("instances[%d]: label is required", i)
		}
		if labels[inst.Label] {
			return fmt.Errorf("instances[%d]: duplicate label %q", i, inst.Label)
		}
		labels[inst.Label] = true

		if len(inst.Entities) == 0 {
			return fmt.Errorf("instances[%d]: entities list is required and must be non-empty", i)
		}
		for j, fork := range inst.Forks {
			for k, p := range fork.Persist {
				if p.Entity == "" {
					return fmt.Errorf("instances[%d].forks[%d].persist[%d]: entity is required", i, j, k)
				}
			}
			for k, f := range fork.Find {
				if f.Entity == "" {
					return fmt.Errorf("instances[%d].forks[%d].find[%d]: entity is required", i, j, k)
				}
				if f.Absent && (len(f.Expect) > 0 || f.Class != "") {
					return fmt.Errorf("instances[%d].forks[%d].find[%d]: absent excludes expect and class", i, j, k)
				}
			}
		}
	}
	return nil
}

func checkSpecFiles(s *Scenario) error {
	paths := append([]string(nil), s.Specs...)
	for _, inst := range s.Instances {
		paths = append(paths, inst.Specs...)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", p)
		}
	}
	return nil
}
