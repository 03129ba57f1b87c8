// =============================================================================
// Depot View - Tree Flattener
// =============================================================================
//
// This module turns the builder's mutable tree into ordered, value-typed
// group views for the renderers. Views share no state with the tree.
//
// =============================================================================

package hierarchy

import (
	"slices"
	"time"

	"github.com/ginjaninja78/depotview/internal/types"
)

// SupplierGroup is the render-ready view of one supplier.
//
// FirstService and LastService stay nil unless the tree was built with
// Options.RollupServiceRange.
type SupplierGroup struct {
	SupplierName  string
	Link          string
	LicenseNumber string
	LicenseExpiry *time.Time
	Span          int
	FirstService  *time.Time
	LastService   *time.Time
	Depots        []DepotGroup
}

// DepotGroup is the render-ready view of one disposal depot of a supplier.
type DepotGroup struct {
	DepotDispose string
	Link         string
	Span         int
	FirstService *time.Time
	LastService  *time.Time
	WasteTypes   []WasteTypeGroup
}

// WasteTypeGroup is the render-ready view of one waste type within a depot.
type WasteTypeGroup struct {
	WasteType    string
	Span         int
	FirstService *time.Time
	LastService  *time.Time
	EwcCodes     []EwcCodeGroup
}

// EwcCodeGroup is a leaf group. Span is always 1.
type EwcCodeGroup struct {
	EwcCode      string
	Span         int
	FirstService *time.Time
	LastService  *time.Time
	Jobs         []types.JobRecord
}

// JobCount returns the number of jobs under the supplier.
func (g SupplierGroup) JobCount() int {
	n := 0
	for _, d := range g.Depots {
		n += d.JobCount()
	}
	return n
}

// JobCount returns the number of jobs under the depot.
func (g DepotGroup) JobCount() int {
	n := 0
	for _, w := range g.WasteTypes {
		n += w.JobCount()
	}
	return n
}

// JobCount returns the number of jobs under the waste type.
func (g WasteTypeGroup) JobCount() int {
	n := 0
	for _, e := range g.EwcCodes {
		n += len(e.Jobs)
	}
	return n
}

// Flatten converts a tree into ordered slices, one level at a time from the
// leaves up. The result shares no memory with the tree, so it is safe to hand
// to several readers. A nil or empty tree yields an empty, non-nil slice.
func Flatten(t *Tree) []SupplierGroup {
	if t == nil {
		return []SupplierGroup{}
	}
	order := t.opts.KeyOrder

	suppliers := t.suppliers.values(order)
	out := make([]SupplierGroup, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, flattenSupplier(s, order))
	}
	return out
}

func flattenSupplier(s *supplierNode, order KeyOrder) SupplierGroup {
	depots := s.depots.values(order)
	views := make([]DepotGroup, 0, len(depots))
	for _, d := range depots {
		views = append(views, flattenDepot(d, order))
	}

	return SupplierGroup{
		SupplierName:  s.name,
		Link:          s.link,
		LicenseNumber: s.licenseNumber,
		LicenseExpiry: copyTime(s.licenseExpiry),
		Span:          s.span,
		FirstService:  copyTime(s.service.first),
		LastService:   copyTime(s.service.last),
		Depots:        views,
	}
}

func flattenDepot(d *depotNode, order KeyOrder) DepotGroup {
	wasteTypes := d.wasteTypes.values(order)
	views := make([]WasteTypeGroup, 0, len(wasteTypes))
	for _, w := range wasteTypes {
		views = append(views, flattenWasteType(w, order))
	}

	return DepotGroup{
		DepotDispose: d.name,
		Link:         d.link,
		Span:         d.span,
		FirstService: copyTime(d.service.first),
		LastService:  copyTime(d.service.last),
		WasteTypes:   views,
	}
}

func flattenWasteType(w *wasteTypeNode, order KeyOrder) WasteTypeGroup {
	leaves := w.ewcCodes.values(order)
	views := make([]EwcCodeGroup, 0, len(leaves))
	for _, e := range leaves {
		views = append(views, EwcCodeGroup{
			EwcCode:      e.code,
			Span:         e.span,
			FirstService: copyTime(e.service.first),
			LastService:  copyTime(e.service.last),
			Jobs:         slices.Clone(e.jobs),
		})
	}

	return WasteTypeGroup{
		WasteType:    w.name,
		Span:         w.span,
		FirstService: copyTime(w.service.first),
		LastService:  copyTime(w.service.last),
		EwcCodes:     views,
	}
}
