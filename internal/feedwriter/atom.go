// ABOUTME: Atom 1.0 writer; entry ids are name-based UUIDs so reruns keep identical ids
// ABOUTME: Entry updated is the build timestamp, mirroring the RSS pubDate rule

package feedwriter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/harper/pubfeed/internal/models"
	"github.com/harper/pubfeed/internal/timeutil"
)

// AtomWriter emits Atom 1.0.
type AtomWriter struct {
	logger *log.Logger
}

// ContentType is the MIME type of Atom output.
func (a *AtomWriter) ContentType() string {
	return "application/atom+xml; charset=utf-8"
}

func (a *AtomWriter) Write(w io.Writer, ch models.Channel, items []models.Item) error {
	var buf bytes.Buffer
	updated := timeutil.AtomDate(ch.BuildDate)

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	if ch.Language != "" {
		fmt.Fprintf(&buf, "<feed xmlns=\"http://www.w3.org/2005/Atom\" xml:lang=\"%s\">\n", escapeAttr(ch.Language))
	} else {
		buf.WriteString("<feed xmlns=\"http://www.w3.org/2005/Atom\">\n")
	}

	writeElement(&buf, "title", ch.Title, 2)
	writeElement(&buf, "subtitle", ch.Description, 2)
	writeElement(&buf, "id", FeedID(ch), 2)
	writeElement(&buf, "updated", updated, 2)
	if ch.Author != "" {
		buf.WriteString("  <author>\n")
		writeElement(&buf, "name", ch.Author, 4)
		buf.WriteString("  </author>\n")
	}
	if ch.Link != "" {
		fmt.Fprintf(&buf, "  <link rel=\"alternate\" type=\"text/html\" href=\"%s\"/>\n", escapeAttr(ch.Link))
	}
	if ch.SelfURL != "" {
		fmt.Fprintf(&buf, "  <link rel=\"self\" type=\"application/atom+xml\" href=\"%s\"/>\n", escapeAttr(ch.SelfURL))
	}
	writeElement(&buf, "generator", ch.Generator, 2)

	for _, item := range items {
		a.writeEntry(&buf, item, updated)
	}

	buf.WriteString("</feed>\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func (a *AtomWriter) writeEntry(buf *bytes.Buffer, item models.Item, updated string) {
	title := DisplayTitle(item)
	guid, _, fromTitle := GUID(item)
	if fromTitle {
		a.logger.Warn("item has neither key nor link, using title as id", "title", title)
	}

	buf.WriteString("  <entry>\n")
	writeElement(buf, "title", title, 4)
	writeElement(buf, "id", EntryID(guid), 4)
	writeElement(buf, "updated", updated, 4)
	if item.Link != "" {
		fmt.Fprintf(buf, "    <link rel=\"alternate\" href=\"%s\"/>\n", escapeAttr(item.Link))
	}
	for _, c := range item.Categories {
		fmt.Fprintf(buf, "    <category term=\"%s\"/>\n", escapeAttr(c))
	}
	buf.WriteString("  </entry>\n")
}

// FeedID derives a stable urn:uuid for the feed from its self URL, falling
// back to its title.
func FeedID(ch models.Channel) string {
	name := ch.SelfURL
	if name == "" {
		name = ch.Title
	}
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// EntryID derives a stable urn:uuid for an entry from its guid.
func EntryID(guid string) string {
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(guid)).String()
}
