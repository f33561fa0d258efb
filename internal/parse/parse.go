// ABOUTME: Decodes one collection page (JSON array or Atom document) into raw records
// ABOUTME: Malformed pages fail as a whole; malformed records are reported in band per entry

package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/harper/pubfeed/internal/fetch"
	"github.com/harper/pubfeed/internal/models"
)

// zoteroNS is the prefix the API uses for its Atom extension elements.
const zoteroNS = "zapi"

// ErrMalformedPage is wrapped by every page-level decoding error. It matches
// fetch.ErrInvalidResponse under errors.Is.
var ErrMalformedPage = fmt.Errorf("%w: malformed page payload", fetch.ErrInvalidResponse)

// Entry is one decoded record, or the reason it could not be decoded.
type Entry struct {
	Index  int
	Record models.RawRecord
	Err    error
}

// ParsedPage is the decoded content of one page.
type ParsedPage struct {
	Entries []Entry
	Total   int // -1 when the payload carried no total
}

// Parse decodes body according to format.
func Parse(body []byte, format fetch.Format) (*ParsedPage, error) {
	switch format {
	case fetch.FormatAtom:
		return ParseAtom(body)
	case fetch.FormatJSON, "":
		return ParseJSON(body)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrMalformedPage, format)
	}
}

// ParseJSON decodes a JSON array of record objects. Each element is decoded
// separately so one bad record does not discard the page.
func ParseJSON(body []byte) (*ParsedPage, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	page := &ParsedPage{Entries: make([]Entry, 0, len(raws)), Total: -1}
	for i, raw := range raws {
		entry := Entry{Index: i}
		if err := json.Unmarshal(raw, &entry.Record); err != nil {
			entry.Err = fmt.Errorf("record %d: %w", i, err)
		}
		page.Entries = append(page.Entries, entry)
	}
	return page, nil
}

// ParseAtom decodes an Atom document. Entry metadata comes from the embedded
// JSON content when present, otherwise from the Atom title, alternate link and
// the zapi:key / zapi:year extension elements.
func ParseAtom(body []byte) (*ParsedPage, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	page := &ParsedPage{Entries: make([]Entry, 0, len(feed.Items)), Total: -1}
	if v := extValue(feed.Extensions, "totalResults"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.Total = n
		}
	}

	for i, item := range feed.Items {
		entry := Entry{Index: i}
		rec, err := atomRecord(item)
		if err != nil {
			entry.Err = fmt.Errorf("entry %d: %w", i, err)
		}
		entry.Record = rec
		page.Entries = append(page.Entries, entry)
	}
	return page, nil
}

func atomRecord(item *gofeed.Item) (models.RawRecord, error) {
	rec := models.RawRecord{Key: extValue(item.Extensions, "key")}
	if item.Link != "" {
		rec.Links.Alternate = &models.Link{Href: item.Link, Type: "text/html"}
	}

	content := strings.TrimSpace(item.Content)
	if strings.HasPrefix(content, "{") {
		var data models.RecordData
		if err := json.Unmarshal([]byte(content), &data); err != nil {
			return rec, fmt.Errorf("embedded JSON content: %w", err)
		}
		rec.Data = &data
		return rec, nil
	}

	rec.Data = &models.RecordData{
		Title: item.Title,
		Date:  extValue(item.Extensions, "year"),
	}
	return rec, nil
}

func extValue(exts ext.Extensions, name string) string {
	if exts == nil {
		return ""
	}
	for _, e := range exts[zoteroNS][name] {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}
