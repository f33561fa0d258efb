// ABOUTME: Tests for the feed HTTP server
// ABOUTME: Exercises feed serving, traversal rejection, health and listing endpoints

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/pubfeed/internal/config"
)

const testYAML = `
api:
  library: groups/1
modes: [all-authors]
collections:
  - name: iau
    title: Publikationen des IAU
`

func newTestServer(t *testing.T, files ...string) (http.Handler, *config.Config) {
	t.Helper()
	cfg, err := config.Parse([]byte(testYAML))
	require.NoError(t, err)
	cfg.Output.Dir = t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.Output.Dir, f), []byte("<rss/>"), 0o644))
	}
	return NewServer(NewHandler(cfg, "test", nil)), cfg
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestGetFeed(t *testing.T) {
	h, _ := newTestServer(t, "iau.xml")

	w := get(h, "/feeds/iau.xml")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "iau.xml", w.Header().Get("X-Feed-Name"))
	assert.Equal(t, "<rss/>", w.Body.String())
}

func TestGetFeedOPML(t *testing.T) {
	h, cfg := newTestServer(t, "feeds.opml")

	w := get(h, "/feeds/"+cfg.OPMLFile())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/x-opml; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestGetFeedRejectsUnknown(t *testing.T) {
	h, cfg := newTestServer(t, "iau.xml")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Output.Dir, "secret.txt"), []byte("x"), 0o644))

	for _, path := range []string{
		"/feeds/secret.txt",
		"/feeds/iau_single.xml",
		"/feeds/.hidden",
	} {
		w := get(h, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestGetFeedMissingFile(t *testing.T) {
	h, _ := newTestServer(t)
	w := get(h, "/feeds/iau.xml")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestServer(t)
	w := get(h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h, _ = newTestServer(t, "iau.xml")
	w = get(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status  string   `json:"status"`
		Feeds   int      `json:"feeds"`
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Feeds)
	assert.Equal(t, []string{"feeds.opml"}, body.Missing)
}

func TestIndex(t *testing.T) {
	h, _ := newTestServer(t)
	w := get(h, "/")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Feeds   []struct {
			Collection string `json:"collection"`
			Mode       string `json:"mode"`
			URL        string `json:"url"`
		} `json:"feeds"`
		Endpoints map[string]string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "pubfeed", body.Service)
	assert.Equal(t, "test", body.Version)
	require.Len(t, body.Feeds, 1)
	assert.Equal(t, "iau", body.Feeds[0].Collection)
	assert.Equal(t, "all-authors", body.Feeds[0].Mode)
	assert.Equal(t, "/feeds/iau.xml", body.Feeds[0].URL)
	assert.Equal(t, "/feeds/feeds.opml", body.Endpoints["index"])
}

func TestFavicon(t *testing.T) {
	h, _ := newTestServer(t)
	assert.Equal(t, http.StatusNoContent, get(h, "/favicon.ico").Code)
}
