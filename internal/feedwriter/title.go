// ABOUTME: Display title and guid derivation shared by the RSS and Atom writers
// ABOUTME: Title is "authors (year) title. journal. volume" with the documented separators

package feedwriter

import (
	"strings"

	"github.com/harper/pubfeed/internal/models"
)

// DisplayTitle concatenates the non-empty parts of item. Parts are joined by
// ". ", except that a part starting with "(" is joined with a single space and
// a part ending in ")" is followed by a space only.
func DisplayTitle(item models.Item) string {
	year := ""
	if item.Year != "" {
		year = "(" + item.Year + ")"
	}
	parts := []string{item.Authors, year, item.Title, item.Journal, item.Volume}

	var b strings.Builder
	prev := ""
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if prev != "" {
			switch {
			case strings.HasPrefix(p, "("), strings.HasSuffix(prev, ")"):
				b.WriteByte(' ')
			default:
				b.WriteString(". ")
			}
		}
		b.WriteString(p)
		prev = p
	}
	return b.String()
}

// GUID picks the item identifier: the record key, else the link (a
// permalink), else the display title. fromTitle reports the last case.
func GUID(item models.Item) (guid string, permaLink, fromTitle bool) {
	switch {
	case item.Key != "":
		return item.Key, false, false
	case item.Link != "":
		return item.Link, true, false
	default:
		return DisplayTitle(item), false, true
	}
}
