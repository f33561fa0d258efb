// ABOUTME: RSS 2.0 writer with a self-referencing atom:link
// ABOUTME: Item pubDate is the build timestamp; guid carries an explicit isPermaLink flag

package feedwriter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/harper/pubfeed/internal/models"
	"github.com/harper/pubfeed/internal/timeutil"
)

// RSSWriter emits RSS 2.0.
type RSSWriter struct {
	logger *log.Logger
}

// ContentType is the MIME type of RSS output.
func (r *RSSWriter) ContentType() string {
	return "application/rss+xml; charset=utf-8"
}

func (r *RSSWriter) Write(w io.Writer, ch models.Channel, items []models.Item) error {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	writeElement(&buf, "title", ch.Title, 4)
	writeElement(&buf, "link", ch.Link, 4)
	writeElement(&buf, "description", ch.Description, 4)
	if ch.SelfURL != "" {
		fmt.Fprintf(&buf, "    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n", escapeAttr(ch.SelfURL))
	}

	built := timeutil.RSSDate(ch.BuildDate)
	writeElement(&buf, "language", ch.Language, 4)
	writeElement(&buf, "lastBuildDate", built, 4)
	writeElement(&buf, "generator", ch.Generator, 4)

	for _, item := range items {
		r.writeItem(&buf, item, built)
	}

	buf.WriteString("  </channel>\n</rss>\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func (r *RSSWriter) writeItem(buf *bytes.Buffer, item models.Item, pubDate string) {
	title := DisplayTitle(item)

	buf.WriteString("    <item>\n")
	writeElement(buf, "title", title, 6)
	writeElement(buf, "link", item.Link, 6)
	for _, c := range item.Categories {
		writeElement(buf, "category", c, 6)
	}

	guid, permaLink, fromTitle := GUID(item)
	if fromTitle {
		r.logger.Warn("item has neither key nor link, using title as guid", "title", title)
	}
	fmt.Fprintf(buf, "      <guid isPermaLink=\"%t\">%s</guid>\n", permaLink, escapeAttr(guid))

	writeElement(buf, "pubDate", pubDate, 6)
	buf.WriteString("    </item>\n")
}
