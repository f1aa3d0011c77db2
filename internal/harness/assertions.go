package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/stiprobe/internal/mapper"
)

// AssertionError describes a failed expectation.
type AssertionError struct {
	Where    string // instance, fork and step
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Where, e.Expected, e.Actual)
}

// assertDelta compares rendered drift records exactly, order included.
func assertDelta(where string, expected, actual []string) error {
	if len(expected) == 0 && len(actual) == 0 {
		return nil
	}
	if reflect.DeepEqual(expected, actual) {
		return nil
	}
	return &AssertionError{
		Where:    where,
		Expected: formatList(expected),
		Actual:   formatList(actual),
	}
}

// assertFound checks a found entity against a FindStep. Expect is a subset
// match; extra fields are ignored.
func assertFound(where string, step FindStep, e *mapper.Entity) error {
	if step.Class != "" && e.Class != step.Class {
		return &AssertionError{Where: where, Expected: "class " + step.Class, Actual: "class " + e.Class}
	}
	for _, key := range sortedKeys(step.Expect) {
		want := step.Expect[key]
		got, ok := e.Fields[key]
		if !ok {
			return &AssertionError{
				Where:    where,
				Expected: fmt.Sprintf("field %s=%s", key, formatValue(want)),
				Actual:   "no such field",
			}
		}
		if !valuesEqual(want, got) {
			return &AssertionError{
				Where:    where,
				Expected: fmt.Sprintf("%s=%s", key, formatValue(want)),
				Actual:   fmt.Sprintf("%s=%s", key, formatValue(got)),
			}
		}
	}
	return nil
}

// valuesEqual compares a YAML-decoded expectation with a stored value.
// SQLite hands integers back as int64 and booleans as 0/1.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case int:
		return intEqual(int64(exp), actual)
	case int64:
		return intEqual(exp, actual)
	case float64:
		switch act := actual.(type) {
		case float64:
			return exp == act
		case int64:
			return exp == float64(act)
		}
		return false
	case bool:
		switch act := actual.(type) {
		case bool:
			return exp == act
		case int64:
			return exp == (act != 0)
		}
		return false
	}
	return reflect.DeepEqual(expected, actual)
}

func intEqual(exp int64, actual any) bool {
	switch act := actual.(type) {
	case int64:
		return exp == act
	case int:
		return exp == int64(act)
	case float64:
		return float64(exp) == act
	}
	return false
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	return "[" + strings.Join(items, "; ") + "]"
}

// formatValue renders a field value: strings quoted, nil as null.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatFields renders a field map with sorted keys.
func formatFields(fields map[string]any) string {
	parts := make([]string, 0, len(fields))
	for _, key := range sortedKeys(fields) {
		parts = append(parts, key+"="+formatValue(fields[key]))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
