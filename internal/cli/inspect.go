package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stiprobe/internal/compiler"
	"github.com/roach88/stiprobe/internal/ir"
	"github.com/roach88/stiprobe/internal/mapper"
	"github.com/roach88/stiprobe/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Driver string
}

// InspectResult describes one mapper instance after a schema refresh.
type InspectResult struct {
	InstanceID string        `json:"instance_id"`
	Classes    []ClassReport `json:"classes"`
	Tables     []TableReport `json:"tables"`
	SchemaHash string        `json:"schema_hash"`
}

// ClassReport is the discovered metadata of one class.
type ClassReport struct {
	Name               string   `json:"name"`
	Root               string   `json:"root"`
	Table              string   `json:"table"`
	DiscriminatorValue string   `json:"discriminator_value"`
	Properties         []string `json:"properties"`
	Relations          []string `json:"relations"`
}

// TableReport lists the columns SQLite reports for a table.
type TableReport struct {
	Name    string             `json:"name"`
	Columns []store.ColumnInfo `json:"columns"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <specs-dir> [entity...]",
		Short: "Show discovered metadata and generated tables",
		Long: `Initialize one mapper over the descriptors in a directory, refresh its
in-memory database and print the metadata it discovered together with the
tables and columns SQLite reports.

Entity names restrict the instance to those entities. Parents must be
listed too.

Example:
  stiprobe inspect ./examples/sti
  stiprobe inspect ./examples/sti BaseEntity MidEntity ParentEntity --driver sqlite`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), opts, args[0], args[1:], cmd)
		},
	}

	addDriverFlag(cmd, &opts.Driver)
	return cmd
}

func runInspect(ctx context.Context, opts *InspectOptions, specsDir string, names []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err := checkDriver(f, opts.Driver); err != nil {
		return err
	}

	schemas, err := loadSpecs(f, specsDir)
	if err != nil {
		return err
	}
	if errs := compiler.Validate(schemas); len(errs) > 0 {
		return outputValidationErrors(f, len(schemas), errs)
	}
	if len(names) > 0 {
		if schemas, err = pickEntities(schemas, names); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
		}
	}

	m, err := mapper.Init(ctx, mapper.Config{
		Entities:    schemas,
		Driver:      opts.Driver,
		ContextName: "inspect",
		Logger:      opts.Logger(),
	})
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeMapper, err.Error())
	}
	defer func() { _ = m.Close(ctx) }()

	if err := m.Schema().RefreshDatabase(ctx); err != nil {
		return f.Fail(ExitCommandError, ErrCodeMapper, err.Error())
	}

	result, err := describeMapper(ctx, m)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeMapper, err.Error())
	}

	if f.Format == "json" {
		return f.Success(result)
	}
	writeInspectText(f, result)
	return nil
}

func pickEntities(schemas []ir.EntitySchema, names []string) ([]ir.EntitySchema, error) {
	idx := ir.Index(schemas)
	out := make([]ir.EntitySchema, 0, len(names))
	for _, name := range names {
		s, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("entity %q is not declared", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func describeMapper(ctx context.Context, m *mapper.Mapper) (*InspectResult, error) {
	hash, err := ir.SchemaHash(m.Entities())
	if err != nil {
		return nil, err
	}
	result := &InspectResult{InstanceID: m.ID(), SchemaHash: hash}

	md := m.Metadata()
	for _, name := range md.ClassNames() {
		meta, _ := md.Get(name)
		result.Classes = append(result.Classes, ClassReport{
			Name:               name,
			Root:               meta.Root,
			Table:              meta.Table,
			DiscriminatorValue: meta.DiscriminatorValue,
			Properties:         meta.PropertyNames(),
			Relations:          meta.RelationNames(),
		})
	}

	tables, err := m.Store().Tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		cols, err := m.Store().Columns(ctx, table)
		if err != nil {
			return nil, err
		}
		result.Tables = append(result.Tables, TableReport{Name: table, Columns: cols})
	}
	return result, nil
}

func writeInspectText(f *OutputFormatter, r *InspectResult) {
	fmt.Fprintf(f.Writer, "Instance %s\n\n", r.InstanceID)

	fmt.Fprintln(f.Writer, "Classes:")
	for _, c := range r.Classes {
		fmt.Fprintf(f.Writer, "  %s (root %s, table %s, discriminator %q)\n",
			c.Name, c.Root, c.Table, c.DiscriminatorValue)
		fmt.Fprintf(f.Writer, "    properties: %s\n", strings.Join(c.Properties, ", "))
		fmt.Fprintf(f.Writer, "    relations:  %s\n", strings.Join(c.Relations, ", "))
	}

	fmt.Fprintln(f.Writer)
	fmt.Fprintln(f.Writer, "Tables:")
	for _, t := range r.Tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name + " " + c.Type
			if c.PK {
				cols[i] += " pk"
			}
		}
		fmt.Fprintf(f.Writer, "  %s(%s)\n", t.Name, strings.Join(cols, ", "))
	}

	fmt.Fprintf(f.Writer, "\nSchema hash: %s\n", r.SchemaHash)
}
