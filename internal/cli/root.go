package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/roach88/stiprobe/internal/ir"
	stilog "github.com/roach88/stiprobe/internal/log"
	"github.com/roach88/stiprobe/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string // empty defers to STIPROBE_LOG

	logger log.Interface
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Logger returns the logger configured for this invocation. Before the root
// pre-run has executed it discards everything.
func (o *RootOptions) Logger() log.Interface {
	if o.logger == nil {
		return stilog.Discard()
	}
	return o.logger
}

// NewRootCommand creates the root command for the stiprobe CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stiprobe",
		Short: "stiprobe - metadata drift probe for single-table inheritance",
		Long: `Run several mapper instances over the same single-table inheritance
hierarchy and report how the entity metadata each one discovered differs
from the one before it.`,
		Version: ir.HarnessVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.logger = newLogger(cmd.ErrOrStderr(), opts)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error); defaults to $"+stilog.EnvVar)

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// newLogger writes to w at the resolved level. --verbose lowers an unset
// level to debug.
func newLogger(w io.Writer, opts *RootOptions) log.Interface {
	level := opts.LogLevel
	if level == "" && opts.Verbose {
		level = "debug"
	}
	return stilog.New(w, stilog.ResolveLevel(level))
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func addDriverFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "driver", store.DriverCGO,
		fmt.Sprintf("SQLite driver (%s|%s)", store.DriverCGO, store.DriverPureGo))
}

func checkDriver(f *OutputFormatter, driver string) error {
	if store.IsValidDriver(driver) {
		return nil
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric,
		fmt.Sprintf("invalid driver %q: must be one of %v", driver, store.ValidDrivers))
}
