// ABOUTME: Tests for the RSS and Atom writers
// ABOUTME: Output is re-parsed with gofeed to check structure and field mapping

package feedwriter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/pubfeed/internal/models"
)

var buildTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testChannel() models.Channel {
	return models.Channel{
		Title:       "Publikationen des IAU",
		Link:        "https://www.example.org/publications",
		Description: "Recent publications",
		Language:    "de",
		Author:      "IAU",
		BuildDate:   buildTime,
		SelfURL:     "https://feeds.example.org/iau.xml",
		Generator:   "pubfeed/test",
	}
}

func testItems() []models.Item {
	return []models.Item{
		{Key: "K1", Authors: "Smith, J", Year: "2022", Title: "Ozone & aerosols", Journal: "Nature", Link: "https://doi.org/10.1/abc", Categories: []string{"2022"}},
		{Link: "https://example.org/paper", Year: "2021", Title: "Second <paper>", Categories: []string{"2021"}},
		{Title: "Untitled draft"},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatRSS, f)

	f, err = ParseFormat("atom")
	require.NoError(t, err)
	assert.Equal(t, FormatAtom, f)

	_, err = ParseFormat("json")
	assert.Error(t, err)
}

func TestRSSWriter(t *testing.T) {
	var logs bytes.Buffer
	w, err := New(FormatRSS, log.New(&logs))
	require.NoError(t, err)
	assert.Contains(t, w.ContentType(), "rss")

	out, err := Render(w, testChannel(), testItems())
	require.NoError(t, err)
	text := string(out)

	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, text, `<atom:link href="https://feeds.example.org/iau.xml" rel="self" type="application/rss+xml" />`)
	assert.Contains(t, text, `<guid isPermaLink="false">K1</guid>`)
	assert.Contains(t, text, `<guid isPermaLink="true">https://example.org/paper</guid>`)
	assert.Contains(t, text, `<guid isPermaLink="false">Untitled draft</guid>`)
	assert.Contains(t, logs.String(), "using title as guid")

	feed, err := gofeed.NewParser().ParseString(text)
	require.NoError(t, err)
	assert.Equal(t, "rss", feed.FeedType)
	assert.Equal(t, "Publikationen des IAU", feed.Title)
	assert.Equal(t, "de", feed.Language)
	require.Len(t, feed.Items, 3)

	first := feed.Items[0]
	assert.Equal(t, "Smith, J (2022) Ozone & aerosols. Nature", first.Title)
	assert.Equal(t, "https://doi.org/10.1/abc", first.Link)
	assert.Equal(t, []string{"2022"}, first.Categories)
	require.NotNil(t, first.PublishedParsed)
	assert.True(t, first.PublishedParsed.Equal(buildTime))

	assert.Equal(t, "(2021) Second <paper>", feed.Items[1].Title)
	assert.Empty(t, feed.Items[2].Link)
	assert.NotContains(t, text, "<link></link>")
}

func TestAtomWriter(t *testing.T) {
	w, err := New(FormatAtom, nil)
	require.NoError(t, err)
	assert.Contains(t, w.ContentType(), "atom")

	out, err := Render(w, testChannel(), testItems())
	require.NoError(t, err)

	feed, err := gofeed.NewParser().ParseString(string(out))
	require.NoError(t, err)
	assert.Equal(t, "atom", feed.FeedType)
	assert.Equal(t, "Publikationen des IAU", feed.Title)
	assert.Equal(t, "https://feeds.example.org/iau.xml", feed.FeedLink)
	assert.Contains(t, string(out), "<id>"+FeedID(testChannel())+"</id>")
	require.Len(t, feed.Items, 3)

	first := feed.Items[0]
	assert.Equal(t, "Smith, J (2022) Ozone & aerosols. Nature", first.Title)
	assert.Equal(t, "https://doi.org/10.1/abc", first.Link)
	assert.Equal(t, EntryID("K1"), first.GUID)
	assert.Equal(t, []string{"2022"}, first.Categories)
	require.NotNil(t, first.UpdatedParsed)
	assert.True(t, first.UpdatedParsed.Equal(buildTime))

	require.NotEmpty(t, feed.Authors)
	assert.Equal(t, "IAU", feed.Authors[0].Name)
}

func TestWriterDeterministic(t *testing.T) {
	for _, format := range []Format{FormatRSS, FormatAtom} {
		w, err := New(format, nil)
		require.NoError(t, err)
		a, err := Render(w, testChannel(), testItems())
		require.NoError(t, err)
		b, err := Render(w, testChannel(), testItems())
		require.NoError(t, err)
		assert.Equal(t, a, b, "format %s", format)
	}
}

func TestEntryIDStable(t *testing.T) {
	assert.Equal(t, EntryID("K1"), EntryID("K1"))
	assert.NotEqual(t, EntryID("K1"), EntryID("K2"))
	assert.True(t, strings.HasPrefix(EntryID("K1"), "urn:uuid:"))
}

func TestEmptyFeed(t *testing.T) {
	w, err := New(FormatRSS, nil)
	require.NoError(t, err)
	out, err := Render(w, testChannel(), nil)
	require.NoError(t, err)
	feed, err := gofeed.NewParser().ParseString(string(out))
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
}
