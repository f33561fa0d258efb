// ABOUTME: End-to-end test of the feed pipeline against a fake library API
// ABOUTME: Runs fetch, parse, assembly, sorting, writing to disk and HTTP serving in one pass

package aggregate_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/pubfeed/internal/aggregate"
	"github.com/harper/pubfeed/internal/config"
	"github.com/harper/pubfeed/internal/fetch"
	"github.com/harper/pubfeed/internal/opml"
	"github.com/harper/pubfeed/internal/server"
)

func record(key, title, date string, year int) map[string]any {
	return map[string]any{
		"key": key,
		"links": map[string]any{
			"alternate": map[string]string{"href": "https://www.zotero.org/groups/1/items/" + key},
		},
		"data": map[string]any{
			"title": title,
			"date":  date,
			"creators": []map[string]string{
				{"creatorType": "author", "firstName": "Ada", "lastName": "Lovelace"},
				{"creatorType": "author", "firstName": "Charles", "lastName": "Babbage"},
			},
			"DOI":                 fmt.Sprintf("10.1000/%d", year),
			"journalAbbreviation": "J. Test",
		},
	}
}

// fakeLibrary serves the top level of groups/1 in pages of the requested limit.
func fakeLibrary(t *testing.T, records []map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/1/items/top" {
			http.NotFound(w, r)
			return
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := min(start+limit, len(records))
		if start > end {
			start = end
		}
		w.Header().Set(fetch.TotalResultsHeader, strconv.Itoa(len(records)))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records[start:end])
	}))
}

func TestPipeline(t *testing.T) {
	for _, k := range []string{"API_KEY", "LIBRARY", "OUTPUT_DIR", "BASE_URL"} {
		t.Setenv(config.EnvPrefix+k, "")
	}

	records := []map[string]any{
		record("OLD00001", "Difference engines", "1822", 1822),
		record("NEW00001", "Analytical <i>engines</i>", "1843-09-01", 1843),
		record("MID00001", "Notes", "1830-03", 1830),
	}
	api := fakeLibrary(t, records)
	defer api.Close()

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
api:
  base_url: %s
  library: groups/1
  page_size: 2
  rate_limit: 1000
  max_retries: 0
output:
  base_url: https://feeds.example.org/
collections:
  - name: lab
    title: Lab publications
`, api.URL)))
	require.NoError(t, err)
	cfg.Output.Dir = t.TempDir()

	agg := aggregate.New(cfg.NewClient(nil), aggregate.NewDirSink(cfg.Output.Dir), nil)
	report, err := agg.Run(t.Context(), cfg, false)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, 2, report.Produced())
	assert.False(t, report.PartialFailure())

	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "lab.xml"))

	srv := httptest.NewServer(server.NewServer(server.NewHandler(cfg, "test", nil)))
	defer srv.Close()

	feed, err := gofeed.NewParser().ParseURL(srv.URL + "/feeds/lab.xml")
	require.NoError(t, err)
	require.Len(t, feed.Items, 3)
	assert.Equal(t, "Lab publications", feed.Title)
	assert.Equal(t, "Lovelace, Ada; Babbage, Charles (1843) Analytical engines. J. Test", feed.Items[0].Title)
	assert.Equal(t, "https://doi.org/10.1000/1843", feed.Items[0].Link)
	assert.Equal(t, []string{"1843"}, feed.Items[0].Categories)
	assert.Contains(t, feed.Items[1].Title, "Notes")
	assert.Contains(t, feed.Items[2].Title, "Difference engines")

	single, err := gofeed.NewParser().ParseURL(srv.URL + "/feeds/lab_single.xml")
	require.NoError(t, err)
	require.Len(t, single.Items, 3)
	assert.Equal(t, "Lovelace, Ada et al. (1843) Analytical engines. J. Test", single.Items[0].Title)

	resp, err := http.Get(srv.URL + "/feeds/" + cfg.OPMLFile())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := opml.Parse(resp.Body)
	require.NoError(t, err)
	assert.True(t, doc.Contains("https://feeds.example.org/lab.xml"))
	assert.True(t, doc.Contains("https://feeds.example.org/lab_single.xml"))
}
