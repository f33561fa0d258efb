// ABOUTME: Date helpers for bibliographic free-text dates and feed timestamps
// ABOUTME: Parses YYYY-MM-DD, YYYY-MM and YYYY layouts and formats RSS/Atom build times

package timeutil

import (
	"strings"
	"time"
)

// DateLayouts are the layouts tried, in order, against a full date string.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate tries each of DateLayouts against the whole trimmed string.
// Returns false when none matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RSSDate formats t for RSS pubDate and lastBuildDate elements.
func RSSDate(t time.Time) string {
	return t.Format(time.RFC1123Z)
}

// AtomDate formats t for Atom updated elements.
func AtomDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
