package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/stiprobe/internal/testutil"
)

// SuiteOptions configure RunSuite.
type SuiteOptions struct {
	Options

	// Update rewrites golden files instead of comparing.
	Update bool

	// Filter is a glob matched against scenario file names without
	// extension.
	Filter string
}

// ScenarioOutcome is the result of one scenario file in a suite.
type ScenarioOutcome struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	Pass          bool     `json:"pass"`
	GoldenUpdated bool     `json:"golden_updated,omitempty"`
	Errors        []string `json:"errors,omitempty"`
	Report        *Result  `json:"report,omitempty"`
}

// SuiteResult summarises a directory of scenarios.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// RunSuite runs every scenario file under dir. Each scenario gets its own
// Differ and sequential instance IDs unless opts provide them, and spec
// paths resolve against the scenario file's directory.
//
// A scenario fails when it cannot be loaded or run, when an expectation
// fails, or when its rendered report differs from golden/<file>.golden
// next to it. A missing golden file is not a failure.
func RunSuite(ctx context.Context, dir string, opts SuiteOptions) (*SuiteResult, error) {
	files, err := FindScenarioFiles(dir, opts.Filter)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{Scenarios: make([]ScenarioOutcome, 0, len(files)), Total: len(files)}
	for _, file := range files {
		outcome := runSuiteScenario(ctx, file, opts)
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, outcome)
	}
	return result, nil
}

func runSuiteScenario(ctx context.Context, file string, opts SuiteOptions) ScenarioOutcome {
	outcome := ScenarioOutcome{Name: filepath.Base(file), Path: file}

	scenario, err := LoadScenarioWithBasePath(file, filepath.Dir(file))
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return outcome
	}
	outcome.Name = scenario.Name

	runOpts := opts.Options
	if runOpts.IDGenerator == nil {
		runOpts.IDGenerator = testutil.NewSequentialIDGenerator("")
	}
	result, err := Run(ctx, scenario, runOpts)
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return outcome
	}
	outcome.Report = result
	rendered := Render(result)

	goldenPath := GoldenPath(file)
	if opts.Update {
		if err := writeGolden(goldenPath, rendered); err != nil {
			outcome.Errors = []string{fmt.Sprintf("failed to update golden file: %v", err)}
			return outcome
		}
		outcome.GoldenUpdated = true
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if string(golden) != rendered {
			outcome.Errors = append(outcome.Errors, "report does not match golden file "+goldenPath)
		}
	} else if !os.IsNotExist(err) {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	}

	outcome.Errors = append(outcome.Errors, result.Errors...)
	outcome.Pass = len(outcome.Errors) == 0
	return outcome
}

// FindScenarioFiles lists the .yaml and .yml files under dir in lexical
// order, skipping golden directories.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scenarios directory: %w", err)
	}

	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// GoldenPath returns golden/<name>.golden beside a scenario file.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGolden(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
