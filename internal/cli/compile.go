package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/stiprobe/internal/compiler"
	"github.com/roach88/stiprobe/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled form of a specs directory.
type CompilationResult struct {
	IRVersion   string            `json:"ir_version"`
	SchemaHash  string            `json:"schema_hash"`
	Entities    []ir.EntitySchema `json:"entities"`
	Hierarchies []HierarchyStats  `json:"hierarchies"`
}

// HierarchyStats summarises one inheritance hierarchy.
type HierarchyStats struct {
	Root       string   `json:"root"`
	Members    []string `json:"members"`
	Properties int      `json:"properties"`
	Relations  int      `json:"relations"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile entity descriptors to canonical IR",
		Long: `Compile and validate the CUE entity descriptors in a directory.

Prints a per-hierarchy summary and the schema hash. With --output the
compiled descriptors are written as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write compiled IR to file")
	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	schemas, err := loadSpecs(f, specsDir)
	if err != nil {
		return err
	}
	if errs := compiler.Validate(schemas); len(errs) > 0 {
		return outputValidationErrors(f, len(schemas), errs)
	}

	result, err := buildCompilationResult(schemas)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	f.VerboseLog("Schema hash %s", result.SchemaHash)

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(f, result, opts.Output)
}

func buildCompilationResult(schemas []ir.EntitySchema) (*CompilationResult, error) {
	hash, err := ir.SchemaHash(schemas)
	if err != nil {
		return nil, err
	}
	return &CompilationResult{
		IRVersion:   ir.IRVersion,
		SchemaHash:  hash,
		Entities:    schemas,
		Hierarchies: calculateStats(schemas),
	}, nil
}

// calculateStats counts declared properties and relations per hierarchy.
// Hierarchies are ordered by root name.
func calculateStats(schemas []ir.EntitySchema) []HierarchyStats {
	idx := ir.Index(schemas)
	groups := compiler.Hierarchies(schemas)

	roots := make([]string, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	stats := make([]HierarchyStats, 0, len(roots))
	for _, root := range roots {
		h := HierarchyStats{Root: root, Members: groups[root]}
		for _, name := range h.Members {
			for _, p := range idx[name].Properties {
				if p.IsRelation() {
					h.Relations++
				} else {
					h.Properties++
				}
			}
		}
		stats = append(stats, h)
	}
	return stats
}

func outputCompileSuccess(f *OutputFormatter, result *CompilationResult, outputFile string) error {
	if f.Format == "json" {
		return f.Success(result)
	}

	fmt.Fprintf(f.Writer, "✓ Compiled %d entit%s in %d hierarch%s\n\n",
		len(result.Entities), plural(len(result.Entities), "y", "ies"),
		len(result.Hierarchies), plural(len(result.Hierarchies), "y", "ies"))

	for _, h := range result.Hierarchies {
		fmt.Fprintf(f.Writer, "  %s: %d member(s), %d propert%s, %d relation(s)\n",
			h.Root, len(h.Members), h.Properties, plural(h.Properties, "y", "ies"), h.Relations)
	}
	fmt.Fprintf(f.Writer, "\nSchema hash: %s\n", result.SchemaHash)

	if outputFile != "" {
		fmt.Fprintf(f.Writer, "Wrote canonical IR to %s\n", outputFile)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// writeIRToFile writes indented JSON. Canonical JSON is only used for
// hashing.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
