package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/stiprobe/internal/ir"
)

var entityFields = map[string]bool{
	"extends":              true,
	"table":                true,
	"discriminator_column": true,
	"discriminator_value":  true,
	"properties":           true,
}

var propertyFields = map[string]bool{
	"kind":                true,
	"type":                true,
	"primary":             true,
	"nullable":            true,
	"entity":              true,
	"mapped_by":           true,
	"owner":               true,
	"pivot_table":         true,
	"join_column":         true,
	"inverse_join_column": true,
}

// CompileEntity parses a CUE value into an EntitySchema.
// The entity name is the last selector of the value's path, e.g. the value
// at entity.BaseEntity compiles to an EntitySchema named "BaseEntity".
func CompileEntity(v cue.Value) (*ir.EntitySchema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := &ir.EntitySchema{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		schema.Name = labels[len(labels)-1].String()
	}

	if err := rejectUnknownFields(v, entityFields, "entity."+schema.Name); err != nil {
		return nil, err
	}

	var err error
	if schema.Extends, err = optionalString(v, "extends"); err != nil {
		return nil, err
	}
	if schema.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}
	if schema.DiscriminatorColumn, err = optionalString(v, "discriminator_column"); err != nil {
		return nil, err
	}
	if schema.DiscriminatorValue, err = optionalString(v, "discriminator_value"); err != nil {
		return nil, err
	}

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return nil, &CompileError{
			Field:   "properties",
			Message: "properties is required",
			Pos:     v.Pos(),
		}
	}
	schema.Properties, err = parseProperties(propsVal)
	if err != nil {
		return nil, err
	}

	return schema, nil
}

// parseProperties keeps declaration order.
func parseProperties(v cue.Value) ([]ir.Property, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var props []ir.Property
	for iter.Next() {
		p, err := parseProperty(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

func parseProperty(name string, v cue.Value) (ir.Property, error) {
	p := ir.Property{Name: name}
	field := "properties." + name

	if err := rejectUnknownFields(v, propertyFields, field); err != nil {
		return p, err
	}

	kind, err := optionalString(v, "kind")
	if err != nil {
		return p, err
	}
	if kind == "" {
		kind = string(ir.KindScalar)
	}
	p.Kind = ir.Kind(kind)

	strs := []struct {
		key string
		dst *string
	}{
		{"type", &p.Type},
		{"entity", &p.Entity},
		{"mapped_by", &p.MappedBy},
		{"pivot_table", &p.PivotTable},
		{"join_column", &p.JoinColumn},
		{"inverse_join_column", &p.InverseJoinColumn},
	}
	for _, s := range strs {
		if *s.dst, err = optionalString(v, s.key); err != nil {
			return p, err
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"primary", &p.Primary},
		{"nullable", &p.Nullable},
		{"owner", &p.Owner},
	}
	for _, b := range bools {
		if *b.dst, err = optionalBool(v, b.key); err != nil {
			return p, err
		}
	}

	return p, nil
}

func rejectUnknownFields(v cue.Value, allowed map[string]bool, field string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	var unknown []string
	for iter.Next() {
		if !allowed[iter.Label()] {
			unknown = append(unknown, iter.Label())
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &CompileError{
		Field:   field,
		Message: fmt.Sprintf("unknown field(s): %v", unknown),
		Pos:     v.Pos(),
	}
}

func optionalString(v cue.Value, key string) (string, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, key string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// CompileError reports a problem in a single descriptor.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
