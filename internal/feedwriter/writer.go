// ABOUTME: Feed writer interface and format selection
// ABOUTME: Writers take channel metadata plus sorted items and emit UTF-8 XML with a declaration

package feedwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/harper/pubfeed/internal/models"
)

// Format names an output syndication format.
type Format string

const (
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
)

// ParseFormat converts a configuration value into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatRSS, FormatAtom:
		return Format(s), nil
	case "":
		return FormatRSS, nil
	default:
		return "", fmt.Errorf("unknown feed format %q (want %q or %q)", s, FormatRSS, FormatAtom)
	}
}

// Writer serializes one feed.
type Writer interface {
	Write(w io.Writer, ch models.Channel, items []models.Item) error
	ContentType() string
}

// New returns the writer for format.
func New(format Format, logger *log.Logger) (Writer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	switch format {
	case FormatRSS, "":
		return &RSSWriter{logger: logger}, nil
	case FormatAtom:
		return &AtomWriter{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown feed format %q", format)
	}
}

// Render writes the feed into memory.
func Render(w Writer, ch models.Channel, items []models.Item) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, ch, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}
	writeIndent(buf, indent)
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	_ = xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func writeIndent(buf *bytes.Buffer, indent int) {
	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
