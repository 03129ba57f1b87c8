// =============================================================================
// Depot View - Aggregation Entry Point
// =============================================================================
//
// Aggregate runs sort, build and flatten in one call. Rows lays the flattened
// groups out one row per EWC code group for rowspan renderers.
//
// =============================================================================

package hierarchy

import (
	"github.com/ginjaninja78/depotview/internal/jobsort"
	"github.com/ginjaninja78/depotview/internal/types"
)

// Aggregate sorts jobs by spec, folds them into a tree and flattens it.
// jobs is not modified. Each call builds a fresh tree.
func Aggregate(jobs []types.JobRecord, spec types.SortSpec, opts Options) []SupplierGroup {
	return Flatten(Build(jobsort.Sort(jobs, spec), opts))
}

// CountJobs returns the number of jobs across all leaf groups.
func CountJobs(groups []SupplierGroup) int {
	n := 0
	for _, g := range groups {
		n += g.JobCount()
	}
	return n
}

// CountLeaves returns the number of EWC code groups.
func CountLeaves(groups []SupplierGroup) int {
	n := 0
	for _, g := range groups {
		n += g.Span
	}
	return n
}

// Row is one rendered table row: a single EWC code group together with its
// ancestors. The First* flags mark the row where an ancestor's merged cell
// starts; that cell covers the ancestor's Span rows.
type Row struct {
	Supplier  *SupplierGroup
	Depot     *DepotGroup
	WasteType *WasteTypeGroup
	EwcCode   *EwcCodeGroup

	FirstOfSupplier  bool
	FirstOfDepot     bool
	FirstOfWasteType bool
}

// Rows lays the groups out as table rows, one per EWC code group, in
// display order. The pointers reference elements of groups.
func Rows(groups []SupplierGroup) []Row {
	rows := make([]Row, 0, CountLeaves(groups))
	for si := range groups {
		s := &groups[si]
		for di := range s.Depots {
			d := &s.Depots[di]
			for wi := range d.WasteTypes {
				w := &d.WasteTypes[wi]
				for ei := range w.EwcCodes {
					rows = append(rows, Row{
						Supplier:         s,
						Depot:            d,
						WasteType:        w,
						EwcCode:          &w.EwcCodes[ei],
						FirstOfSupplier:  di == 0 && wi == 0 && ei == 0,
						FirstOfDepot:     wi == 0 && ei == 0,
						FirstOfWasteType: ei == 0,
					})
				}
			}
		}
	}
	return rows
}
