// ABOUTME: OPML index of the feeds produced by a run, grouped by display mode
// ABOUTME: Lets readers subscribe to every generated feed at once; parses back for the serve command

package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Document is an OPML index with one folder per group of feeds.
type Document struct {
	Title   string
	Folders []Folder
}

// Folder groups related feeds, typically one display mode.
type Folder struct {
	Text  string
	Feeds []Feed
}

// Feed is one subscribable artifact.
type Feed struct {
	Title   string
	Type    string // "rss" or "atom"
	XMLURL  string
	HTMLURL string
}

type opmlXML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    headXML  `xml:"head"`
	Body    bodyXML  `xml:"body"`
}

type headXML struct {
	Title string `xml:"title"`
}

type bodyXML struct {
	Outlines []outlineXML `xml:"outline"`
}

type outlineXML struct {
	Text     string       `xml:"text,attr"`
	Title    string       `xml:"title,attr,omitempty"`
	Type     string       `xml:"type,attr,omitempty"`
	XMLURL   string       `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string       `xml:"htmlUrl,attr,omitempty"`
	Children []outlineXML `xml:"outline,omitempty"`
}

// NewDocument creates an empty index.
func NewDocument(title string) *Document {
	return &Document{Title: title}
}

// Add appends feed to folder, creating the folder on first use.
// Feeds with a URL already in the document are ignored.
func (d *Document) Add(folder string, feed Feed) {
	if d.Contains(feed.XMLURL) {
		return
	}
	if feed.Type == "" {
		feed.Type = "rss"
	}
	for i := range d.Folders {
		if d.Folders[i].Text == folder {
			d.Folders[i].Feeds = append(d.Folders[i].Feeds, feed)
			return
		}
	}
	d.Folders = append(d.Folders, Folder{Text: folder, Feeds: []Feed{feed}})
}

// Contains reports whether a feed with url is indexed.
func (d *Document) Contains(url string) bool {
	for _, f := range d.AllFeeds() {
		if f.XMLURL == url {
			return true
		}
	}
	return false
}

// AllFeeds returns every indexed feed in folder order.
func (d *Document) AllFeeds() []Feed {
	var feeds []Feed
	for _, folder := range d.Folders {
		feeds = append(feeds, folder.Feeds...)
	}
	return feeds
}

// Len returns the number of indexed feeds.
func (d *Document) Len() int {
	return len(d.AllFeeds())
}

// Parse reads an index written by Write. Root-level feeds land in a folder
// with empty text.
func Parse(r io.Reader) (*Document, error) {
	var doc opmlXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode OPML: %w", err)
	}

	out := NewDocument(doc.Head.Title)
	for _, o := range doc.Body.Outlines {
		if o.XMLURL != "" {
			out.Add("", fromXML(o))
			continue
		}
		for _, child := range o.Children {
			if child.XMLURL != "" {
				out.Add(o.Text, fromXML(child))
			}
		}
	}
	return out, nil
}

// ParseFile reads an index from path.
func ParseFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Write encodes the document as indented OPML 2.0.
func (d *Document) Write(w io.Writer) error {
	doc := opmlXML{
		Version: "2.0",
		Head:    headXML{Title: d.Title},
	}
	for _, folder := range d.Folders {
		if folder.Text == "" {
			for _, f := range folder.Feeds {
				doc.Body.Outlines = append(doc.Body.Outlines, toXML(f))
			}
			continue
		}
		o := outlineXML{Text: folder.Text}
		for _, f := range folder.Feeds {
			o.Children = append(o.Children, toXML(f))
		}
		doc.Body.Outlines = append(doc.Body.Outlines, o)
	}

	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode OPML: %w", err)
	}
	_, err := w.Write([]byte("\n"))
	return err
}

// WriteFile writes the document to path, creating parent directories.
func (d *Document) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return d.Write(file)
}

func toXML(f Feed) outlineXML {
	return outlineXML{Text: f.Title, Title: f.Title, Type: f.Type, XMLURL: f.XMLURL, HTMLURL: f.HTMLURL}
}

func fromXML(o outlineXML) Feed {
	title := o.Title
	if title == "" {
		title = o.Text
	}
	return Feed{Title: title, Type: o.Type, XMLURL: o.XMLURL, HTMLURL: o.HTMLURL}
}
