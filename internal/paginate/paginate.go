// ABOUTME: Drives page requests over one remote collection and assembles canonical items
// ABOUTME: Classifies page failures as hard (nothing usable) or partial (keep what was fetched)

package paginate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/harper/pubfeed/internal/assemble"
	"github.com/harper/pubfeed/internal/fetch"
	"github.com/harper/pubfeed/internal/models"
	"github.com/harper/pubfeed/internal/parse"
)

// DefaultPageSize is the largest page the remote API serves.
const DefaultPageSize = 100

// PageSource returns one page of a collection.
type PageSource interface {
	FetchPage(ctx context.Context, q fetch.PageQuery) (*fetch.Page, error)
}

// Options are the request parameters shared by every page of a run.
type Options struct {
	Library   string
	Format    fetch.Format
	Sort      string
	Direction string
	PageSize  int
}

// Result is the outcome of paginating one collection.
type Result struct {
	Collection string
	Items      []models.Item
	Records    int // raw records received
	Skipped    int // records dropped during decoding or assembly
	Pages      int
	Total      int // -1 when the source never reported one
}

// FetchError aborts pagination of one collection. Partial is set when the
// records fetched before the failure are still usable.
type FetchError struct {
	Collection string
	Offset     int
	Partial    bool
	Err        error
}

func (e *FetchError) Error() string {
	kind := "hard"
	if e.Partial {
		kind = "partial"
	}
	name := e.Collection
	if name == "" {
		name = "top-level items"
	}
	return fmt.Sprintf("%s failure fetching %s at offset %d: %v", kind, name, e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsPartial reports whether err is a FetchError that still carries data.
func IsPartial(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Partial
}

// Fetcher paginates collections with a fixed set of options.
type Fetcher struct {
	source PageSource
	opts   Options
	logger *log.Logger
}

// New returns a Fetcher reading pages from source.
func New(source PageSource, opts Options, logger *log.Logger) *Fetcher {
	if opts.PageSize <= 0 || opts.PageSize > DefaultPageSize {
		opts.PageSize = DefaultPageSize
	}
	if opts.Format == "" {
		opts.Format = fetch.FormatJSON
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Fetcher{source: source, opts: opts, logger: logger}
}

// Fetch collects every record of collection, assembles it with asm and
// returns the items sorted by sort date, newest first.
//
// On a hard failure the result is nil. On a partial failure both the result
// (with the items gathered so far, sorted) and a *FetchError are returned.
func (f *Fetcher) Fetch(ctx context.Context, collection string, asm *assemble.Assembler) (*Result, error) {
	res := &Result{Collection: collection, Total: -1}
	logger := f.logger.With("collection", collectionName(collection))

	offset := 0
	for {
		q := fetch.PageQuery{
			Library:    f.opts.Library,
			Collection: collection,
			Format:     f.opts.Format,
			Sort:       f.opts.Sort,
			Direction:  f.opts.Direction,
			Limit:      f.opts.PageSize,
			Start:      offset,
		}

		n, err := f.page(ctx, q, asm, res, logger)
		if err != nil {
			fe := &FetchError{Collection: collection, Offset: offset, Err: err}
			fe.Partial = res.Pages > 0 && !fetch.IsHardFailure(err)
			if !fe.Partial {
				return nil, fe
			}
			SortItems(res.Items)
			return res, fe
		}

		offset += n
		logger.Debug("fetched page", "start", q.Start, "records", n, "total", res.Total)

		if n == 0 || n < f.opts.PageSize {
			break
		}
		if res.Total >= 0 && offset >= res.Total {
			break
		}
	}

	SortItems(res.Items)
	return res, nil
}

// page fetches, decodes and assembles one page, returning the number of
// records the page carried.
func (f *Fetcher) page(ctx context.Context, q fetch.PageQuery, asm *assemble.Assembler, res *Result, logger *log.Logger) (int, error) {
	page, err := f.source.FetchPage(ctx, q)
	if err != nil {
		return 0, err
	}
	parsed, err := parse.Parse(page.Body, page.Format)
	if err != nil {
		return 0, err
	}

	res.Pages++
	if res.Total < 0 {
		switch {
		case page.HasTotal():
			res.Total = page.Total
		case parsed.Total >= 0:
			res.Total = parsed.Total
		}
	}

	for _, entry := range parsed.Entries {
		res.Records++
		if entry.Err != nil {
			res.Skipped++
			logger.Warn("skipping malformed record", "start", q.Start, "err", entry.Err)
			continue
		}
		item, err := asm.Assemble(entry.Record)
		if err != nil {
			res.Skipped++
			logger.Warn("skipping record", "key", entry.Record.Key, "err", err)
			continue
		}
		res.Items = append(res.Items, item)
	}
	return len(parsed.Entries), nil
}

// SortItems orders items by sort date, newest first. Undated items go last
// and equal dates keep their relative order.
func SortItems(items []models.Item) {
	slices.SortStableFunc(items, func(a, b models.Item) int {
		return b.SortDate.Compare(a.SortDate)
	})
}

func collectionName(key string) string {
	if key == "" {
		return "top"
	}
	return key
}
