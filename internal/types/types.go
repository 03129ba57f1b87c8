// =============================================================================
// Depot View - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser / xlsxparser (Table, Row)
//   - converter (JobRecord mapping)
//   - jobsort and hierarchy (JobRecord, SortSpec)
//   - validation
//
// =============================================================================

package types

import "time"

// =============================================================================
// JOB RECORDS
// =============================================================================

// JobRecord is a single waste-collection job as exported by a portal.
//
// A JobRecord is treated as immutable once it has been mapped from a source
// row. The aggregation engine reads it but never writes to it; the Fields map
// is shared between copies and must not be modified by consumers.
type JobRecord struct {
	// SupplierID identifies the waste carrier. Used to derive the supplier link.
	SupplierID string

	// SupplierName is the first grouping key.
	SupplierName string

	// DepotDisposeID identifies the disposal depot. Used to derive the depot link.
	DepotDisposeID string

	// DepotDispose is the disposal depot name, the second grouping key.
	DepotDispose string

	// WasteType is the third grouping key (e.g. "Mixed construction waste").
	WasteType string

	// EWCCode is the European Waste Catalogue code, the fourth grouping key.
	EWCCode string

	// DeliveryDate is the service date of the job. Nil when the job has no date.
	DeliveryDate *time.Time

	// CollectionDate is the date the container was collected. Nil when unknown.
	CollectionDate *time.Time

	// LicenseNumber is the carrier's waste licence number.
	LicenseNumber string

	// LicenseExpiry is the expiry date of the carrier licence. Nil when unknown.
	LicenseExpiry *time.Time

	// Fields holds every column that was not mapped onto a named field.
	// Keys are the original column headers.
	Fields map[string]string

	// RowNumber is the row in the source file this record came from (1-indexed).
	// Zero when the record was not read from a file.
	RowNumber int
}

// Field returns a passthrough field value, or "" when absent.
func (j *JobRecord) Field(name string) string {
	if j.Fields == nil {
		return ""
	}
	return j.Fields[name]
}

// =============================================================================
// SORT SPECIFICATION
// =============================================================================

// Sort directions. Anything other than DirectionAsc sorts descending.
const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// SortSpec names the field to order jobs by before grouping.
type SortSpec struct {
	// Field is the sortable field name (e.g. "collectionDate", "supplierName")
	// or the header of a passthrough column.
	Field string `yaml:"field" mapstructure:"field"`

	// Direction is "asc" or "desc".
	Direction string `yaml:"direction" mapstructure:"direction"`
}

// Ascending reports whether s sorts in ascending order.
func (s SortSpec) Ascending() bool {
	return s.Direction == DirectionAsc
}

// =============================================================================
// TABULAR INPUT
// =============================================================================

// Row is a single data row read from a job export.
type Row struct {
	// Number is the row number in the source file (1-indexed).
	Number int

	// Fields maps column header to trimmed cell value.
	Fields map[string]string
}

// Table is a parsed job export, independent of the file format it came from.
type Table struct {
	// Source is the path (or name) of the file the table was read from.
	Source string

	// Headers are the column headers in file order.
	Headers []string

	// Rows are the non-empty data rows in file order.
	Rows []Row
}

// HasHeader reports whether the table has a column with the given header.
func (t *Table) HasHeader(header string) bool {
	for _, h := range t.Headers {
		if h == header {
			return true
		}
	}
	return false
}
