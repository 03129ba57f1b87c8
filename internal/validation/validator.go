// =============================================================================
// Depot View - Validation Engine
// =============================================================================
//
// This module checks parsed job rows before they are mapped and aggregated.
// The aggregation itself never rejects a job: a missing supplier or EWC code
// simply forms its own group. Validation is where such rows are reported, so
// that a degenerate "(blank)" group in a report can be traced back to the
// rows that caused it.
//
// VALIDATION LEVELS:
//   1. File-level: every grouping column must exist in the header row
//   2. Row-level: grouping keys, dates, EWC code format, licence expiry
//
// ERROR HANDLING:
//   - Errors are collected, not returned on first failure
//   - Each error includes the row number, column, value and rule
//   - "error" severity fails the file; "warning" severity is reported only,
//     unless TreatWarningsAsErrors is set
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/types"
)

// Severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rules.
const (
	RuleMissingColumn  = "missing_column"
	RuleEmptyKey       = "empty_key"
	RuleInvalidDate    = "invalid_date"
	RuleEWCFormat      = "ewc_format"
	RuleLicenseExpired = "license_expired"
	RuleCustom         = "custom"
)

// ewcCodeRe matches a six digit European Waste Catalogue code written as
// "170101", "17 01 01" or "17-01-01", optionally followed by the "*"
// hazardous waste marker.
var ewcCodeRe = regexp.MustCompile(`^\d{2}[ -]?\d{2}[ -]?\d{2}\s?\*?$`)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation error.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the column header that failed validation.
	Field string

	// Value is the actual value that failed validation.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string

	// RowNumber is the source row number. Zero for file-level errors.
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.RowNumber == 0 {
		return fmt.Sprintf("[%s] Field '%s': %s",
			strings.ToUpper(e.Severity),
			e.Field,
			e.Message,
		)
	}
	return fmt.Sprintf("[%s] Row %d, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.RowNumber,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all validation errors (including warnings).
	Errors []*ValidationError

	// ErrorCount is the number of fatal errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// RowsValidated is the number of rows checked.
	RowsValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks job rows against a source's column mapping.
type Validator struct {
	columns config.ColumnMapping
	layouts []string
	options ValidationOptions
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first fatal error.
	StopOnFirstError bool

	// TreatWarningsAsErrors marks the result invalid when there are warnings.
	TreatWarningsAsErrors bool

	// ReferenceTime is the moment licence expiry is checked against.
	// Default: time.Now() when the validator is created.
	ReferenceTime time.Time

	// CustomValidators maps a column header to an extra check.
	CustomValidators map[string]CustomValidatorFunc
}

// CustomValidatorFunc checks a value and returns an error message, or ""
// when the value is acceptable. Custom failures are warnings.
type CustomValidatorFunc func(value string, ctx ValidationContext) string

// ValidationContext provides context for custom validators.
type ValidationContext struct {
	FieldName string
	Row       types.Row
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		ReferenceTime:    time.Now(),
		CustomValidators: make(map[string]CustomValidatorFunc),
	}
}

// NewValidator creates a validator for the given columns and date layouts.
func NewValidator(columns config.ColumnMapping, layouts []string) *Validator {
	return NewValidatorWithOptions(columns, layouts, DefaultValidationOptions())
}

// NewValidatorWithOptions creates a validator with custom options.
func NewValidatorWithOptions(columns config.ColumnMapping, layouts []string, options ValidationOptions) *Validator {
	if options.ReferenceTime.IsZero() {
		options.ReferenceTime = time.Now()
	}
	return &Validator{
		columns: columns,
		layouts: layouts,
		options: options,
	}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate validates a table with default options and returns its errors.
func Validate(table *types.Table, columns config.ColumnMapping, layouts []string) []*ValidationError {
	return NewValidator(columns, layouts).ValidateTable(table).Errors
}

// ValidateTable validates the header row and every data row of a table.
func (v *Validator) ValidateTable(table *types.Table) *ValidationResult {
	result := &ValidationResult{
		IsValid: true,
		Errors:  make([]*ValidationError, 0),
	}

	for _, header := range v.columns.GroupingColumns() {
		if !table.HasHeader(header) {
			if v.record(result, &ValidationError{
				Severity: SeverityError,
				Field:    header,
				Rule:     RuleMissingColumn,
				Message:  "grouping column is missing from the header row",
			}) {
				return result
			}
		}
	}

	// Without the grouping columns every row would report the same problem.
	if result.ErrorCount > 0 {
		return result
	}

	for _, row := range table.Rows {
		result.RowsValidated++
		for _, e := range v.ValidateRow(row) {
			if v.record(result, e) {
				return result
			}
		}
	}

	return result
}

// record adds e to result and reports whether validation should stop.
func (v *Validator) record(result *ValidationResult, e *ValidationError) bool {
	result.Errors = append(result.Errors, e)

	if e.Severity == SeverityError {
		result.ErrorCount++
		result.IsValid = false
		return v.options.StopOnFirstError
	}

	result.WarningCount++
	if v.options.TreatWarningsAsErrors {
		result.IsValid = false
	}
	return false
}

// ValidateRow validates a single row.
func (v *Validator) ValidateRow(row types.Row) []*ValidationError {
	var errs []*ValidationError

	warn := func(field, rule, message string) {
		errs = append(errs, &ValidationError{
			Severity:  SeverityWarning,
			Field:     field,
			Value:     row.Fields[field],
			Rule:      rule,
			Message:   message,
			RowNumber: row.Number,
		})
	}

	for _, header := range v.columns.GroupingColumns() {
		if strings.TrimSpace(row.Fields[header]) == "" {
			warn(header, RuleEmptyKey, "grouping key is empty; the job is grouped under a blank key")
		}
	}

	if code := strings.TrimSpace(row.Fields[v.columns.EWCCode]); code != "" && !ewcCodeRe.MatchString(code) {
		warn(v.columns.EWCCode, RuleEWCFormat, "not a six digit EWC code")
	}

	for _, header := range v.columns.DateColumns() {
		value, ok := row.Fields[header]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if _, parsed := types.ParseDate(value, v.layouts); !parsed {
			warn(header, RuleInvalidDate, "date does not match any configured layout; treated as empty")
		}
	}

	if expiry, ok := types.ParseDate(row.Fields[v.columns.LicenseExpiry], v.layouts); ok {
		if expiry.Before(v.options.ReferenceTime) {
			warn(v.columns.LicenseExpiry, RuleLicenseExpired,
				fmt.Sprintf("carrier licence %s expired", row.Fields[v.columns.LicenseNumber]))
		}
	}

	for field, check := range v.options.CustomValidators {
		if msg := check(row.Fields[field], ValidationContext{FieldName: field, Row: row}); msg != "" {
			warn(field, RuleCustom, msg)
		}
	}

	return errs
}

// =============================================================================
// ERROR REPORTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d issue(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to a log file.
//
// PARAMETERS:
//   - errors: The validation errors to write.
//   - source: The input file the errors belong to.
//   - filePath: The path to the output file.
//
// RETURNS:
//   - An error if writing fails.
func WriteErrorLog(errors []*ValidationError, source, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Validation report for %s\n", source)
	fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(errors))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
