// =============================================================================
// Depot View - Date Parsing
// =============================================================================
//
// Shared date layouts and parsing for job exports.
//
// =============================================================================

package types

import (
	"strings"
	"time"
)

// DefaultDateLayouts are tried, in order, when a source does not configure
// its own layouts. The portal export uses ISO dates; spreadsheets saved by
// hand commonly carry day-first dates.
var DefaultDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"20060102",
}

// ParseDate parses value with the first layout that accepts it.
//
// Empty values and values no layout accepts return ok=false; callers treat
// those as a null date rather than an error.
func ParseDate(value string, layouts []string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DatePtr returns a pointer to a copy of t.
func DatePtr(t time.Time) *time.Time {
	return &t
}
