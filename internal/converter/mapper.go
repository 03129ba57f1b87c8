// =============================================================================
// Depot View - Record Mapper
// =============================================================================
//
// Maps table rows onto job records through a source's column mapping.
// Unmapped columns are carried in JobRecord.Fields.
//
// =============================================================================

package converter

import (
	"strings"
	"time"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/types"
)

// MapRecords maps transformed rows onto job records.
//
// Grouping keys are trimmed. Dates that no layout accepts become nil, which
// the validator has already reported. Columns that do not map onto a named
// field are kept in JobRecord.Fields under their header.
func MapRecords(table *types.Table, columns config.ColumnMapping, layouts []string) []types.JobRecord {
	mapped := columns.Mapped()
	jobs := make([]types.JobRecord, 0, len(table.Rows))

	for _, row := range table.Rows {
		get := func(header string) string {
			return strings.TrimSpace(row.Fields[header])
		}

		job := types.JobRecord{
			SupplierID:     get(columns.SupplierID),
			SupplierName:   get(columns.SupplierName),
			DepotDisposeID: get(columns.DepotDisposeID),
			DepotDispose:   get(columns.DepotDispose),
			WasteType:      get(columns.WasteType),
			EWCCode:        get(columns.EWCCode),
			DeliveryDate:   parseDate(get(columns.DeliveryDate), layouts),
			CollectionDate: parseDate(get(columns.CollectionDate), layouts),
			LicenseNumber:  get(columns.LicenseNumber),
			LicenseExpiry:  parseDate(get(columns.LicenseExpiry), layouts),
			RowNumber:      row.Number,
		}

		for header, value := range row.Fields {
			if mapped[header] {
				continue
			}
			if job.Fields == nil {
				job.Fields = make(map[string]string)
			}
			job.Fields[header] = value
		}

		jobs = append(jobs, job)
	}

	return jobs
}

func parseDate(value string, layouts []string) *time.Time {
	t, ok := types.ParseDate(value, layouts)
	if !ok {
		return nil
	}
	return &t
}
