package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/types"
)

var headers = []string{
	"supplierName", "depotDispose", "wasteType", "ewcCode",
	"deliveryDate", "collectionDate", "licenseNumber", "licenseExpiry",
}

func row(n int, kv ...string) types.Row {
	fields := map[string]string{
		"supplierName": "Acme",
		"depotDispose": "North",
		"wasteType":    "Glass",
		"ewcCode":      "200102",
	}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return types.Row{Number: n, Fields: fields}
}

func newValidator(opts ValidationOptions) *Validator {
	if opts.ReferenceTime.IsZero() {
		opts.ReferenceTime = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	return NewValidatorWithOptions(config.DefaultColumns(), types.DefaultDateLayouts, opts)
}

func rules(errs []*ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Rule
	}
	return out
}

func TestValidateTable_Clean(t *testing.T) {
	table := &types.Table{Headers: headers, Rows: []types.Row{
		row(2, "deliveryDate", "2024-05-01", "licenseExpiry", "2025-01-01"),
		row(3, "ewcCode", "17 01 01", "collectionDate", "02/05/2024"),
		row(4, "ewcCode", "17-05-03*"),
	}}

	result := newValidator(ValidationOptions{}).ValidateTable(table)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 3, result.RowsValidated)
}

func TestValidateTable_MissingGroupingColumn(t *testing.T) {
	table := &types.Table{
		Headers: []string{"supplierName", "depotDispose", "ewcCode"},
		Rows:    []types.Row{row(2)},
	}

	result := newValidator(ValidationOptions{}).ValidateTable(table)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, RuleMissingColumn, result.Errors[0].Rule)
	assert.Equal(t, "wasteType", result.Errors[0].Field)
	assert.Equal(t, 0, result.RowsValidated)
}

func TestValidateRow_Warnings(t *testing.T) {
	v := newValidator(ValidationOptions{})

	errs := v.ValidateRow(row(5,
		"supplierName", " ",
		"ewcCode", "20010",
		"deliveryDate", "yesterday",
		"licenseNumber", "EPR/AB1234",
		"licenseExpiry", "2024-01-31",
	))

	assert.ElementsMatch(t,
		[]string{RuleEmptyKey, RuleEWCFormat, RuleInvalidDate, RuleLicenseExpired},
		rules(errs))
	for _, e := range errs {
		assert.Equal(t, SeverityWarning, e.Severity)
		assert.Equal(t, 5, e.RowNumber)
	}
}

func TestValidateTable_StrictAndStop(t *testing.T) {
	table := &types.Table{Headers: headers, Rows: []types.Row{row(2, "ewcCode", "")}}

	lenient := newValidator(ValidationOptions{}).ValidateTable(table)
	assert.True(t, lenient.IsValid)
	assert.Equal(t, 1, lenient.WarningCount)

	strict := newValidator(ValidationOptions{TreatWarningsAsErrors: true}).ValidateTable(table)
	assert.False(t, strict.IsValid)

	missing := &types.Table{Headers: []string{"x"}}
	stopped := newValidator(ValidationOptions{StopOnFirstError: true}).ValidateTable(missing)
	assert.Len(t, stopped.Errors, 1)
}

func TestValidateRow_Custom(t *testing.T) {
	v := newValidator(ValidationOptions{CustomValidators: map[string]CustomValidatorFunc{
		"weight": func(value string, ctx ValidationContext) string {
			if value == "0" {
				return "zero weight on job at " + ctx.Row.Fields["depotDispose"]
			}
			return ""
		},
	}})

	errs := v.ValidateRow(row(2, "weight", "0"))
	require.Len(t, errs, 1)
	assert.Equal(t, RuleCustom, errs[0].Rule)
	assert.Equal(t, "zero weight on job at North", errs[0].Message)
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	out := FormatErrors([]*ValidationError{
		{Severity: SeverityError, Field: "ewcCode", Rule: RuleMissingColumn, Message: "missing"},
		{Severity: SeverityWarning, Field: "ewcCode", Value: "x", Message: "bad", RowNumber: 4},
	})
	assert.Contains(t, out, "2 issue(s)")
	assert.Contains(t, out, "1. [ERROR] Field 'ewcCode': missing")
	assert.Contains(t, out, "2. [WARNING] Row 4, Field 'ewcCode': bad (value: 'x')")
}

func TestWriteErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.errors.log")
	errs := []*ValidationError{{Severity: SeverityWarning, Field: "f", Message: "m", RowNumber: 2}}

	require.NoError(t, WriteErrorLog(errs, "jobs.csv", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Validation report for jobs.csv\n"))
	assert.Contains(t, string(data), "[WARNING] Row 2")
}
