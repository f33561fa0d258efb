// ABOUTME: Author list formatting for display titles
// ABOUTME: Supports the full "Last, First; ..." list and the single-author "et al." form

package normalize

import (
	"strings"

	"github.com/harper/pubfeed/internal/models"
)

const authorRole = "author"

// FormatAuthors renders the author-role creators according to mode.
func FormatAuthors(creators []models.Creator, mode models.DisplayMode) string {
	names := make([]string, 0, len(creators))
	for _, c := range creators {
		if c.CreatorType != authorRole {
			continue
		}
		if n := CreatorName(c); n != "" {
			names = append(names, n)
		}
	}

	if len(names) == 0 {
		return ""
	}
	if mode.SingleAuthor() {
		if len(names) > 1 {
			return names[0] + " et al."
		}
		return names[0]
	}
	return strings.Join(names, "; ")
}

// CreatorName returns "Last, First" when both parts are present, otherwise
// whichever of last name, first name or single-field name is set.
func CreatorName(c models.Creator) string {
	last := strings.TrimSpace(c.LastName)
	first := strings.TrimSpace(c.FirstName)
	switch {
	case last != "" && first != "":
		return last + ", " + first
	case last != "":
		return last
	case first != "":
		return first
	default:
		return strings.TrimSpace(c.Name)
	}
}
