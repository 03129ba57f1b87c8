// =============================================================================
// Depot View - Job Comparator
// =============================================================================
//
// This module builds the ordering function used to sort job records before
// they are grouped. The sort order chosen here becomes the display order of
// every level of the hierarchy, because the hierarchy builder preserves
// first-seen order.
//
// FIELD ACCESS:
//   Known fields are resolved through a typed accessor table:
//     - text fields compare lexicographically
//     - date fields compare chronologically
//   Any other name is looked up in JobRecord.Fields and compared by its
//   natural ordering. Mixed columns order by value class: empty, numbers,
//   dates, then text.
//
// MISSING VALUES:
//   A missing or null value compares as the empty string. It therefore sorts
//   first in ascending order and last in descending order.
//
// =============================================================================

package jobsort

import (
	"cmp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/depotview/internal/types"
)

// Compare orders two job records. It returns -1, 0 or 1.
type Compare func(a, b *types.JobRecord) int

// =============================================================================
// ACCESSOR TABLE
// =============================================================================

// accessor extracts a typed sort key from a job. Exactly one of text/date is set.
type accessor struct {
	text func(j *types.JobRecord) string
	date func(j *types.JobRecord) *time.Time
}

// accessors maps the sortable field names used by the portal to typed getters.
var accessors = map[string]accessor{
	"supplierId":     {text: func(j *types.JobRecord) string { return j.SupplierID }},
	"supplierName":   {text: func(j *types.JobRecord) string { return j.SupplierName }},
	"depotDisposeId": {text: func(j *types.JobRecord) string { return j.DepotDisposeID }},
	"depotDispose":   {text: func(j *types.JobRecord) string { return j.DepotDispose }},
	"wasteType":      {text: func(j *types.JobRecord) string { return j.WasteType }},
	"ewcCode":        {text: func(j *types.JobRecord) string { return j.EWCCode }},
	"licenseNumber":  {text: func(j *types.JobRecord) string { return j.LicenseNumber }},
	"deliveryDate":   {date: func(j *types.JobRecord) *time.Time { return j.DeliveryDate }},
	"collectionDate": {date: func(j *types.JobRecord) *time.Time { return j.CollectionDate }},
	"licenseExpiry":  {date: func(j *types.JobRecord) *time.Time { return j.LicenseExpiry }},
}

// Fields returns the names of the typed sortable fields in alphabetical order.
func Fields() []string {
	names := make([]string, 0, len(accessors))
	for name := range accessors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsKnownField reports whether name has a typed accessor.
func IsKnownField(name string) bool {
	_, ok := accessors[name]
	return ok
}

// =============================================================================
// COMPARATOR CONSTRUCTION
// =============================================================================

// BuildComparator returns an ordering function over fieldName.
//
// PARAMETERS:
//   - fieldName: A typed field name (see Fields) or a passthrough column header.
//   - direction: "asc" for ascending. Any other value, including "desc" and "",
//     sorts descending.
//
// RETURNS:
//   - A pure function returning -1, 0 or 1.
//
// Equal keys compare as 0. The relative order of ties is decided by the sort
// algorithm, not by this function.
func BuildComparator(fieldName, direction string) Compare {
	base := ascending(fieldName)
	if direction == types.DirectionAsc {
		return base
	}
	return func(a, b *types.JobRecord) int {
		return base(b, a)
	}
}

// ascending builds the ascending comparator for a field.
func ascending(fieldName string) Compare {
	acc, ok := accessors[fieldName]
	switch {
	case ok && acc.date != nil:
		return func(a, b *types.JobRecord) int {
			return compareDates(acc.date(a), acc.date(b))
		}
	case ok:
		return func(a, b *types.JobRecord) int {
			return strings.Compare(acc.text(a), acc.text(b))
		}
	default:
		return func(a, b *types.JobRecord) int {
			return compareNatural(a.Field(fieldName), b.Field(fieldName))
		}
	}
}

// compareDates orders nullable dates. A nil date behaves like the empty
// string and sorts before any real date.
func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

// Value classes of passthrough fields, in ascending order.
const (
	classEmpty = iota
	classNumber
	classDate
	classText
)

// naturalKey is a raw value classified by its natural type.
type naturalKey struct {
	class int
	num   float64
	date  time.Time
	text  string
}

func classify(s string) naturalKey {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return naturalKey{class: classEmpty, text: s}
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return naturalKey{class: classNumber, num: f, text: s}
	}
	if t, ok := types.ParseDate(s, nil); ok {
		return naturalKey{class: classDate, date: t, text: s}
	}
	return naturalKey{class: classText, text: s}
}

// compareNatural orders two raw values by their natural type. Values of
// different types order by class: empty, numbers, dates, then text. Within a
// class numbers compare numerically, dates chronologically and everything
// else lexicographically, so the ordering stays transitive on mixed columns.
func compareNatural(a, b string) int {
	if a == b {
		return 0
	}

	ka, kb := classify(a), classify(b)
	if c := cmp.Compare(ka.class, kb.class); c != 0 {
		return c
	}

	var c int
	switch ka.class {
	case classNumber:
		c = cmp.Compare(ka.num, kb.num)
	case classDate:
		c = ka.date.Compare(kb.date)
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// =============================================================================
// SORTING
// =============================================================================

// Sort returns a copy of jobs ordered by spec. The input slice is not modified.
//
// The sort is stable, so jobs with equal keys keep their input order. Callers
// should not depend on that: tie order is an implementation detail.
func Sort(jobs []types.JobRecord, spec types.SortSpec) []types.JobRecord {
	sorted := slices.Clone(jobs)
	if spec.Field == "" {
		return sorted
	}

	compare := BuildComparator(spec.Field, spec.Direction)
	slices.SortStableFunc(sorted, func(a, b types.JobRecord) int {
		return compare(&a, &b)
	})

	return sorted
}
