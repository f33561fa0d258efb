// ABOUTME: Canonical item model, the normalized form of one publication ready for serialization
// ABOUTME: Empty strings mean "absent"; SortDate is only used for ordering and never displayed

package models

import "time"

// Item is the canonical representation of one publication.
type Item struct {
	Key        string    `json:"key,omitempty"`
	Authors    string    `json:"authors,omitempty"`
	Year       string    `json:"year,omitempty"`
	SortDate   time.Time `json:"-"`
	Title      string    `json:"title"`
	Journal    string    `json:"journal,omitempty"`
	Volume     string    `json:"volume,omitempty"`
	Link       string    `json:"link,omitempty"`
	Categories []string  `json:"categories,omitempty"`
}

// HasSortDate reports whether the item carries a parsed date.
// Undated items hold the zero time and sort last.
func (i Item) HasSortDate() bool {
	return !i.SortDate.IsZero()
}
