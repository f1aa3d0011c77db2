package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/stiprobe/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrUnknownParent             = "E201" // extends names no entity
	ErrInheritanceCycle          = "E202" // extends chain loops
	ErrUnknownRelationTarget     = "E203" // relation entity missing or unknown
	ErrDuplicateDiscriminator    = "E204" // discriminator value reused in a hierarchy
	ErrInvalidMappedBy           = "E205" // mapped_by missing or names no property
	ErrMissingDiscriminatorCol   = "E206" // hierarchy without discriminator column on its root
	ErrMissingPrimaryKey         = "E207" // root without primary key
	ErrInvalidPropertyKind       = "E208" // unknown kind or scalar type
	ErrDuplicateEntity           = "E209" // entity declared twice
	ErrMissingDiscriminatorVal   = "E210" // hierarchy member without discriminator value
	ErrShadowedProperty          = "E211" // subtype redeclares an inherited property
	ErrMisplacedDiscriminatorCol = "E212" // discriminator column declared below the root
)

// ValidationError represents a descriptor consistency error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a set of entity schemas for consistency.
// Returns all errors found (does not fail-fast).
func Validate(schemas []ir.EntitySchema) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	seen := make(map[string]bool)
	for _, s := range schemas {
		if seen[s.Name] {
			add(ErrDuplicateEntity, "entity."+s.Name, "entity declared more than once")
		}
		seen[s.Name] = true
	}

	idx := ir.Index(schemas)

	for _, c := range AnalyzeHierarchy(schemas) {
		add(ErrInheritanceCycle, "entity."+c.Path[0], "%s", c.Message)
	}

	for _, s := range schemas {
		field := "entity." + s.Name
		if s.Extends != "" {
			if _, ok := idx[s.Extends]; !ok {
				add(ErrUnknownParent, field+".extends", "unknown parent entity %q", s.Extends)
			}
			if s.DiscriminatorColumn != "" {
				add(ErrMisplacedDiscriminatorCol, field+".discriminator_column", "only the hierarchy root may declare a discriminator column")
			}
		}
		errs = append(errs, validateProperties(idx, s)...)
	}

	hierarchies := Hierarchies(schemas)
	roots := make([]string, 0, len(hierarchies))
	for root := range hierarchies {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	for _, root := range roots {
		errs = append(errs, validateHierarchy(idx, idx[root], hierarchies[root])...)
	}

	return errs
}

func validateProperties(idx ir.SchemaIndex, s ir.EntitySchema) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	inherited := make(map[string]bool)
	chain := idx.Chain(s.Name)
	for _, ancestor := range chain[:max(len(chain)-1, 0)] {
		for _, p := range ancestor.Properties {
			inherited[p.Name] = true
		}
	}

	for _, p := range s.Properties {
		field := "entity." + s.Name + ".properties." + p.Name

		if !ir.ValidKinds[p.Kind] {
			add(ErrInvalidPropertyKind, field, "unknown kind %q", p.Kind)
			continue
		}
		if inherited[p.Name] {
			add(ErrShadowedProperty, field, "property already declared by an ancestor")
		}

		if p.Kind == ir.KindScalar {
			if !ir.ValidScalarTypes[p.Type] {
				add(ErrInvalidPropertyKind, field, "invalid scalar type %q", p.Type)
			}
			continue
		}

		target, ok := idx[p.Entity]
		if !ok {
			add(ErrUnknownRelationTarget, field, "unknown relation target %q", p.Entity)
			continue
		}

		needsMappedBy := p.Kind == ir.KindOneToMany || (p.Kind == ir.KindManyToMany && !p.Owner)
		if needsMappedBy && p.MappedBy == "" {
			add(ErrInvalidMappedBy, field, "%s relation requires mapped_by", p.Kind)
			continue
		}
		if p.MappedBy != "" && !hasProperty(idx, target.Name, p.MappedBy) {
			add(ErrInvalidMappedBy, field, "mapped_by %q is not a property of %s", p.MappedBy, target.Name)
		}
	}
	return errs
}

func validateHierarchy(idx ir.SchemaIndex, root ir.EntitySchema, members []string) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	hasPK := false
	for _, p := range root.Properties {
		if p.Primary {
			hasPK = true
		}
	}
	if !hasPK {
		add(ErrMissingPrimaryKey, "entity."+root.Name, "hierarchy root needs a primary key")
	}

	if len(members) < 2 {
		return errs
	}
	if root.DiscriminatorColumn == "" {
		add(ErrMissingDiscriminatorCol, "entity."+root.Name, "root of %s needs discriminator_column", strings.Join(members, ", "))
		return errs
	}

	values := make(map[string]string)
	for _, name := range members {
		s := idx[name]
		if s.DiscriminatorValue == "" {
			add(ErrMissingDiscriminatorVal, "entity."+name, "discriminator_value is required in a hierarchy")
			continue
		}
		if other, dup := values[s.DiscriminatorValue]; dup {
			add(ErrDuplicateDiscriminator, "entity."+name+".discriminator_value",
				"value %q already used by %s", s.DiscriminatorValue, other)
			continue
		}
		values[s.DiscriminatorValue] = name
	}
	return errs
}

// hasProperty reports whether entity or one of its ancestors declares prop.
func hasProperty(idx ir.SchemaIndex, entity, prop string) bool {
	for _, s := range idx.Chain(entity) {
		if _, ok := s.Property(prop); ok {
			return true
		}
	}
	return false
}
