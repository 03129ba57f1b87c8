// =============================================================================
// Depot View - Ordered Group Index
// =============================================================================
//
// Each level of the hierarchy keeps its children in an index that remembers
// insertion order. KeyOrder decides how the keys are read back:
//   - InsertionOrder   : first-seen order (default)
//   - IntegerKeysFirst : canonical array-index keys ascending, then the rest
//                        in first-seen order
//
// =============================================================================

package hierarchy

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// KeyOrder controls the iteration order of the children of a group.
type KeyOrder int

const (
	// InsertionOrder iterates children strictly in first-seen order.
	InsertionOrder KeyOrder = iota

	// IntegerKeysFirst iterates keys that are canonical non-negative integers
	// (below 2^32-1, no leading zeros) first, in ascending numeric order, then
	// every other key in first-seen order. This matches how the portal's
	// browser component enumerated its grouping objects, which matters for
	// EWC codes such as "170101".
	IntegerKeysFirst
)

// String returns the configuration spelling of the key order.
func (o KeyOrder) String() string {
	switch o {
	case IntegerKeysFirst:
		return "integer_first"
	default:
		return "insertion"
	}
}

// ParseKeyOrder parses the configuration spelling of a key order.
// An empty string selects InsertionOrder.
func ParseKeyOrder(s string) (KeyOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insertion":
		return InsertionOrder, nil
	case "integer_first":
		return IntegerKeysFirst, nil
	default:
		return InsertionOrder, fmt.Errorf("unknown key order %q (want insertion or integer_first)", s)
	}
}

// index is a string-keyed map that remembers insertion order.
type index[V any] struct {
	keys  []string
	items map[string]V
}

func newIndex[V any]() *index[V] {
	return &index[V]{items: make(map[string]V)}
}

func (ix *index[V]) get(key string) (V, bool) {
	v, ok := ix.items[key]
	return v, ok
}

// put stores a new key. Callers check get first; put never reorders.
func (ix *index[V]) put(key string, v V) {
	if _, exists := ix.items[key]; !exists {
		ix.keys = append(ix.keys, key)
	}
	ix.items[key] = v
}

func (ix *index[V]) len() int {
	return len(ix.keys)
}

// orderedKeys returns the keys in the iteration order selected by order.
func (ix *index[V]) orderedKeys(order KeyOrder) []string {
	if order != IntegerKeysFirst {
		return slices.Clone(ix.keys)
	}

	type numbered struct {
		key string
		n   uint64
	}

	var ints []numbered
	rest := make([]string, 0, len(ix.keys))
	for _, k := range ix.keys {
		if n, ok := arrayIndex(k); ok {
			ints = append(ints, numbered{key: k, n: n})
			continue
		}
		rest = append(rest, k)
	}

	sort.Slice(ints, func(i, j int) bool { return ints[i].n < ints[j].n })

	keys := make([]string, 0, len(ix.keys))
	for _, e := range ints {
		keys = append(keys, e.key)
	}
	return append(keys, rest...)
}

// values returns the stored values in the iteration order selected by order.
func (ix *index[V]) values(order KeyOrder) []V {
	keys := ix.orderedKeys(order)
	out := make([]V, len(keys))
	for i, k := range keys {
		out[i] = ix.items[k]
	}
	return out
}

// arrayIndex reports whether key is the canonical decimal form of an integer
// in [0, 2^32-2].
func arrayIndex(key string) (uint64, bool) {
	if key == "" || len(key) > 10 {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	if strconv.FormatUint(n, 10) != key {
		return 0, false
	}
	return n, true
}
