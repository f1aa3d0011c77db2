package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/stiprobe/internal/compiler"
	"github.com/roach88/stiprobe/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Entities int                        `json:"entities"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate entity descriptors",
		Long: `Compile the CUE entity descriptors in a directory and check them for
consistency: inheritance cycles, unknown parents and relation targets,
primary keys, discriminator values and relation mappings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	schemas, err := loadSpecs(f, specsDir)
	if err != nil {
		return err
	}
	f.VerboseLog("Compiled %d entity descriptor(s) from %s", len(schemas), specsDir)

	errs := compiler.Validate(schemas)
	if len(errs) > 0 {
		return outputValidationErrors(f, len(schemas), errs)
	}

	if f.Format == "json" {
		return f.Success(ValidationResult{Valid: true, Entities: len(schemas)})
	}
	fmt.Fprintf(f.Writer, "✓ All specs valid (%d entities)\n", len(schemas))
	return nil
}

// loadSpecs compiles a specs directory, reporting failures through f.
// A missing directory is a command error, as is CUE that does not compile.
func loadSpecs(f *OutputFormatter, specsDir string) ([]ir.EntitySchema, error) {
	schemas, err := compiler.LoadDir(specsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("specs directory not found: %s", specsDir))
	}
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeLoadFailed, err.Error())
	}
	return schemas, nil
}

func outputValidationErrors(f *OutputFormatter, entities int, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if f.Format == "json" {
		err := f.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Entities: entities, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		})
		if err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, e := range errs {
		fmt.Fprintf(f.Writer, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
	}
	return exitErr
}
