// =============================================================================
// Workbook Merger - Validation
// =============================================================================
//
// This module validates settings before a merge starts. Struct-level rules are
// declared with `validate:"..."` tags and checked by go-playground/validator;
// filesystem rules (the input directory must exist) are checked here too.
//
// ERROR HANDLING:
//   - All violations are collected, not reported one at a time
//   - Each error names the offending field and the rule it broke
//   - Errors are returned as a single Errors value usable with errors.As
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single rule violation.
type ValidationError struct {
	// Field is the yaml name of the field that failed validation.
	Field string

	// Value is the rejected value.
	Value string

	// Rule is the validation tag that was violated (e.g. "oneof").
	Rule string

	// Param is the rule parameter (e.g. "trash delete none").
	Param string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "oneof":
		return fmt.Sprintf("%s: %q is not one of [%s]", e.Field, e.Value, e.Param)
	case "min":
		return fmt.Sprintf("%s: needs at least %s value(s)", e.Field, e.Param)
	case "startswith":
		return fmt.Sprintf("%s: %q must start with %q", e.Field, e.Value, e.Param)
	case "dir":
		return fmt.Sprintf("%s: %q is not an existing directory", e.Field, e.Value)
	default:
		return fmt.Sprintf("%s: %q failed rule %q", e.Field, e.Value, e.Rule)
	}
}

// Errors is a list of violations returned as one error.
type Errors []*ValidationError

// Error implements the error interface.
func (errs Errors) Error() string {
	return FormatErrors(errs)
}

// =============================================================================
// VALIDATOR
// =============================================================================

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// instance returns the shared validator, configured to report yaml field names.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates v against its `validate` tags.
//
// RETURNS:
//   - nil when every rule passes.
//   - Errors listing every violation otherwise.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, &ValidationError{
			Field: fieldPath(fe),
			Value: fmt.Sprint(fe.Value()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace
// ("Config.extensions[0]" -> "extensions[0]").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Directory checks that path exists and is a directory.
func Directory(field, path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return Errors{{Field: field, Value: path, Rule: "dir"}}
	}
	return nil
}

// Join merges several validation results into one, dropping nils.
func Join(results ...error) error {
	var out Errors
	for _, err := range results {
		if err == nil {
			continue
		}
		var errs Errors
		if errors.As(err, &errs) {
			out = append(out, errs...)
			continue
		}
		return err
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%d validation errors:", len(errs)))
	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("\n  %d. %s", i+1, err.Error()))
	}
	return builder.String()
}
