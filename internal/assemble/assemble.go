// ABOUTME: Builds canonical items from raw records using the normalize rules
// ABOUTME: Assembly is all-or-nothing per record: an item is either complete or dropped

package assemble

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harper/pubfeed/internal/models"
	"github.com/harper/pubfeed/internal/normalize"
)

var (
	// ErrNoData marks a record without its metadata object.
	ErrNoData = errors.New("record has no data")

	// ErrEmptyTitle marks a record whose title is empty once markup is removed.
	ErrEmptyTitle = errors.New("record has no title")
)

// Assembler converts raw records for one display mode.
type Assembler struct {
	mode      models.DisplayMode
	resolvers []normalize.LinkResolver
	logger    *log.Logger
}

// New returns an Assembler. A nil resolvers slice selects
// normalize.DefaultResolvers with no fallback link.
func New(mode models.DisplayMode, resolvers []normalize.LinkResolver, logger *log.Logger) *Assembler {
	if resolvers == nil {
		resolvers = normalize.DefaultResolvers("")
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Assembler{mode: mode, resolvers: resolvers, logger: logger}
}

// Mode returns the display mode the assembler formats authors for.
func (a *Assembler) Mode() models.DisplayMode {
	return a.mode
}

// Assemble builds the canonical item for rec.
func (a *Assembler) Assemble(rec models.RawRecord) (models.Item, error) {
	if rec.Data == nil {
		return models.Item{}, fmt.Errorf("%s: %w", recordLabel(rec), ErrNoData)
	}
	d := rec.Data

	title := normalize.StripHTML(d.Title)
	if title == "" {
		return models.Item{}, fmt.Errorf("%s: %w", recordLabel(rec), ErrEmptyTitle)
	}

	year := normalize.ExtractYear(d.Date)
	item := models.Item{
		Key:        strings.TrimSpace(rec.Key),
		Authors:    normalize.FormatAuthors(d.Creators, a.mode),
		Year:       year,
		SortDate:   normalize.ParseSortDate(d.Date),
		Title:      title,
		Journal:    journal(d),
		Volume:     normalize.StripHTML(d.Volume),
		Categories: normalize.Categories(year),
	}

	link, source := normalize.ResolveLink(rec, a.resolvers)
	if link == "" {
		a.logger.Warn("no link for record", "key", rec.Key, "title", title)
	} else {
		a.logger.Debug("resolved link", "key", rec.Key, "source", source)
	}
	item.Link = link

	return item, nil
}

// journal prefers the abbreviation over the full publication title.
func journal(d *models.RecordData) string {
	if j := normalize.StripHTML(d.JournalAbbreviation); j != "" {
		return j
	}
	return normalize.StripHTML(d.PublicationTitle)
}

func recordLabel(rec models.RawRecord) string {
	if rec.Key != "" {
		return "record " + rec.Key
	}
	return "record without key"
}
