// =============================================================================
// Depot View - Hierarchy Builder
// =============================================================================
//
// This module folds a sorted sequence of job records into the four-level
// depot view hierarchy:
//
//   supplier -> disposal depot -> waste type -> EWC code -> jobs
//
// FOLD RULES:
//   - Jobs are processed once, left to right. The builder never sorts.
//   - Every level keeps its children in first-seen order (see KeyOrder).
//   - When a job creates a new EWC code group, the span of that group and
//     of its three ancestors is incremented together. A span is therefore
//     the number of distinct EWC code groups underneath a node.
//   - First/last service dates are tracked on the EWC code group only,
//     unless Options.RollupServiceRange is set.
//   - Empty grouping keys form their own group.
//
// The builder owns every node while the fold runs. Renderers never see the
// nodes: they receive the value copies produced by Flatten.
//
// =============================================================================

package hierarchy

import (
	"time"

	"github.com/ginjaninja78/depotview/internal/types"
)

// Options tune how the tree is built.
type Options struct {
	// KeyOrder selects the iteration order of children at every level.
	KeyOrder KeyOrder

	// RollupServiceRange also tracks first/last service dates on waste type,
	// depot and supplier groups. Off by default: historically those levels
	// never carried a range, and reports built on that behaviour expect them
	// to stay empty.
	RollupServiceRange bool
}

// =============================================================================
// TREE NODES
// =============================================================================

// serviceRange accumulates the earliest and latest delivery date seen.
type serviceRange struct {
	first *time.Time
	last  *time.Time
}

// observe widens the range to include t. A nil date never changes the range.
func (r *serviceRange) observe(t *time.Time) {
	if t == nil {
		return
	}
	if r.first == nil || t.Before(*r.first) {
		r.first = copyTime(t)
	}
	if r.last == nil || t.After(*r.last) {
		r.last = copyTime(t)
	}
}

type supplierNode struct {
	name          string
	link          string
	licenseNumber string
	licenseExpiry *time.Time
	span          int
	service       serviceRange
	depots        *index[*depotNode]
}

type depotNode struct {
	name       string
	link       string
	span       int
	service    serviceRange
	wasteTypes *index[*wasteTypeNode]
}

type wasteTypeNode struct {
	name     string
	span     int
	service  serviceRange
	ewcCodes *index[*ewcNode]
}

type ewcNode struct {
	code    string
	span    int
	service serviceRange
	jobs    []types.JobRecord
}

// Tree is the intermediate, map-backed result of a fold.
type Tree struct {
	opts      Options
	suppliers *index[*supplierNode]
	jobs      int
	leaves    int
}

func newTree(opts Options) *Tree {
	return &Tree{
		opts:      opts,
		suppliers: newIndex[*supplierNode](),
	}
}

// Len returns the number of supplier groups.
func (t *Tree) Len() int {
	return t.suppliers.len()
}

// Jobs returns the number of jobs folded into the tree.
func (t *Tree) Jobs() int {
	return t.jobs
}

// Leaves returns the number of distinct EWC code groups.
func (t *Tree) Leaves() int {
	return t.leaves
}

// Keys returns the supplier keys in iteration order.
func (t *Tree) Keys() []string {
	return t.suppliers.orderedKeys(t.opts.KeyOrder)
}

// Options returns the options the tree was built with.
func (t *Tree) Options() Options {
	return t.opts
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder folds jobs into a Tree one at a time.
type Builder struct {
	opts Options
	tree *Tree
}

// NewBuilder returns a builder with an empty tree.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts, tree: newTree(opts)}
}

// Build folds jobs, in the order given, into a new tree.
//
// PARAMETERS:
//   - jobs: Job records, already sorted into display order.
//   - opts: Build options.
//
// RETURNS:
//   - The populated tree. An empty input yields an empty tree.
func Build(jobs []types.JobRecord, opts Options) *Tree {
	b := NewBuilder(opts)
	for i := range jobs {
		b.Add(jobs[i])
	}
	return b.Tree()
}

// Add routes one job to its leaf group, creating groups on the way down.
func (b *Builder) Add(job types.JobRecord) {
	t := b.tree

	supplier, ok := t.suppliers.get(job.SupplierName)
	if !ok {
		supplier = &supplierNode{
			name:          job.SupplierName,
			link:          linkTo(job.SupplierID),
			licenseNumber: job.LicenseNumber,
			licenseExpiry: copyTime(job.LicenseExpiry),
			depots:        newIndex[*depotNode](),
		}
		t.suppliers.put(job.SupplierName, supplier)
	}

	depot, ok := supplier.depots.get(job.DepotDispose)
	if !ok {
		depot = &depotNode{
			name:       job.DepotDispose,
			link:       linkTo(job.DepotDisposeID),
			wasteTypes: newIndex[*wasteTypeNode](),
		}
		supplier.depots.put(job.DepotDispose, depot)
	}

	wasteType, ok := depot.wasteTypes.get(job.WasteType)
	if !ok {
		wasteType = &wasteTypeNode{
			name:     job.WasteType,
			ewcCodes: newIndex[*ewcNode](),
		}
		depot.wasteTypes.put(job.WasteType, wasteType)
	}

	leaf, exists := wasteType.ewcCodes.get(job.EWCCode)
	isNewLeaf := !exists
	if isNewLeaf {
		leaf = &ewcNode{code: job.EWCCode}
		wasteType.ewcCodes.put(job.EWCCode, leaf)
	}

	leaf.jobs = append(leaf.jobs, job)
	leaf.service.observe(job.DeliveryDate)

	if b.opts.RollupServiceRange {
		wasteType.service.observe(job.DeliveryDate)
		depot.service.observe(job.DeliveryDate)
		supplier.service.observe(job.DeliveryDate)
	}

	if isNewLeaf {
		leaf.span++
		wasteType.span++
		depot.span++
		supplier.span++
		t.leaves++
	}

	t.jobs++
}

// Tree returns the tree built so far and resets the builder, so later calls
// to Add start a new tree.
func (b *Builder) Tree() *Tree {
	t := b.tree
	b.tree = newTree(b.opts)
	return t
}

// linkTo derives the record link for an id. Records without an id get no link.
func linkTo(id string) string {
	if id == "" {
		return ""
	}
	return "/" + id
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
