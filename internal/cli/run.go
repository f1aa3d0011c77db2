package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/stiprobe/internal/harness"
	"github.com/roach88/stiprobe/internal/testutil"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Driver        string
	FullDiff      bool
	Deterministic bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its drift report",
		Long: `Run the mapper instances of a scenario in order, capturing each one's
metadata into a shared differ, and print the resulting report.

Spec paths in the scenario resolve against the scenario file's directory.

Exit codes:
  0 - Every expectation held
  1 - An expectation failed
  2 - The scenario could not be loaded or run

Example:
  stiprobe run ./examples/sti/scenarios/schema_drift.yaml
  stiprobe run ./examples/sti/scenarios/sti_three_instances.yaml --full-diff --log-level debug`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	addDriverFlag(cmd, &opts.Driver)
	cmd.Flags().BoolVar(&opts.FullDiff, "full-diff", false, "include a structural snapshot diff per instance")
	cmd.Flags().BoolVar(&opts.Deterministic, "deterministic", false, "use sequential instance IDs")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err := checkDriver(f, opts.Driver); err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenario file not found: %s", path))
	}
	scenario, err := harness.LoadScenarioWithBasePath(path, filepath.Dir(path))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, err.Error())
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := harness.Options{
		Driver:   opts.Driver,
		Logger:   opts.Logger(),
		FullDiff: opts.FullDiff,
	}
	if opts.Deterministic {
		runOpts.IDGenerator = testutil.NewSequentialIDGenerator("")
	}

	result, err := harness.Run(ctx, scenario, runOpts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeScenario, err.Error())
	}

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprint(f.Writer, harness.Render(result))
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed with %d error(s)", result.Scenario, len(result.Errors)))
	}
	return nil
}
