// ABOUTME: Year extraction and sort-date parsing for free-text record dates
// ABOUTME: Year feeds display and categories; sort date feeds ordering only

package normalize

import (
	"regexp"
	"strconv"
	"time"

	"github.com/harper/pubfeed/internal/timeutil"
)

var (
	yearRun   = regexp.MustCompile(`\d{4}`)
	yearExact = regexp.MustCompile(`^\d{4}$`)
)

// ExtractYear returns the first 4-digit run of date, or the year of a
// YYYY-MM-DD / YYYY-MM / YYYY parse of the whole string. "" when absent.
func ExtractYear(date string) string {
	if y := yearRun.FindString(date); y != "" {
		return y
	}
	if t, ok := timeutil.ParseDate(date); ok {
		return strconv.Itoa(t.Year())
	}
	return ""
}

// ParseSortDate returns the date used for ordering, independent of the
// extracted year. Anything that is not YYYY-MM-DD, YYYY-MM or YYYY yields the
// zero time, which sorts last.
func ParseSortDate(date string) time.Time {
	if t, ok := timeutil.ParseDate(date); ok {
		return t
	}
	return time.Time{}
}

// ValidYear reports whether s is a well-formed 4-digit year.
func ValidYear(s string) bool {
	return yearExact.MatchString(s)
}
