// ABOUTME: Tests for the page client against httptest servers
// ABOUTME: Covers headers, query parameters, total counts, error classes and bounded retry

package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harper/pubfeed/internal/fetch"
)

func newClient(url string, opts ...fetch.ClientOption) *fetch.Client {
	base := []fetch.ClientOption{
		fetch.WithBaseURL(url),
		fetch.WithRateLimit(0),
		fetch.WithRetries(2, time.Millisecond),
	}
	return fetch.NewClient(append(base, opts...)...)
}

func TestFetchPage_Fresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/42/items/top" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("format") != "json" || q.Get("sort") != "dateAdded" || q.Get("direction") != "desc" ||
			q.Get("limit") != "100" || q.Get("start") != "200" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if v := r.Header.Get("Zotero-API-Version"); v != "3" {
			t.Errorf("expected Zotero-API-Version 3, got %q", v)
		}
		if k := r.Header.Get("Zotero-API-Key"); k != "secret" {
			t.Errorf("expected API key header, got %q", k)
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("expected a User-Agent header")
		}

		w.Header().Set("Total-Results", "250")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newClient(server.URL, fetch.WithAPIKey("secret"))
	page, err := client.FetchPage(context.Background(), fetch.PageQuery{
		Library:   "groups/42",
		Sort:      "dateAdded",
		Direction: "desc",
		Limit:     100,
		Start:     200,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(page.Body) != "[]" {
		t.Errorf("expected body '[]', got %q", page.Body)
	}
	if !page.HasTotal() || page.Total != 250 {
		t.Errorf("expected total 250, got %d", page.Total)
	}
	if page.Format != fetch.FormatJSON {
		t.Errorf("expected json format, got %q", page.Format)
	}
}

func TestFetchPage_CollectionPathAndMissingTotal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/42/collections/ABC123/items/top" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "atom" {
			t.Errorf("expected atom format, got %q", r.URL.Query().Get("format"))
		}
		w.Write([]byte(`<feed/>`))
	}))
	defer server.Close()

	page, err := newClient(server.URL).FetchPage(context.Background(), fetch.PageQuery{
		Library:    "groups/42",
		Collection: "ABC123",
		Format:     fetch.FormatAtom,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.HasTotal() {
		t.Errorf("expected unknown total, got %d", page.Total)
	}
}

func TestFetchPage_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
		hard   bool
	}{
		{http.StatusNotFound, fetch.ErrNotFound, true},
		{http.StatusForbidden, fetch.ErrForbidden, true},
		{http.StatusBadRequest, nil, false},
	}

	for _, tt := range tests {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(tt.status)
			w.Write([]byte("nope"))
		}))

		_, err := newClient(server.URL).FetchPage(context.Background(), fetch.PageQuery{Library: "groups/1"})
		server.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		var statusErr *fetch.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
			t.Errorf("status %d: expected StatusError, got %v", tt.status, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
		if fetch.IsHardFailure(err) != tt.hard {
			t.Errorf("status %d: IsHardFailure = %v", tt.status, !tt.hard)
		}
		if hits.Load() != 1 {
			t.Errorf("status %d: expected no retry, got %d requests", tt.status, hits.Load())
		}
	}
}

func TestFetchPage_RetriesTransientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	page, err := newClient(server.URL).FetchPage(context.Background(), fetch.PageQuery{Library: "groups/1"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(page.Body) != "[]" {
		t.Errorf("unexpected body %q", page.Body)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", hits.Load())
	}
}

func TestFetchPage_RetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newClient(server.URL).FetchPage(context.Background(), fetch.PageQuery{Library: "groups/1"})
	if !errors.Is(err, fetch.ErrServer) {
		t.Fatalf("expected ErrServer, got %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 1 request + 2 retries, got %d", hits.Load())
	}
}

func TestFetchPage_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newClient(url, fetch.WithRetries(0, 0)).FetchPage(context.Background(), fetch.PageQuery{Library: "groups/1"})
	if !errors.Is(err, fetch.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if fetch.IsHardFailure(err) {
		t.Error("network errors must not be hard failures")
	}
}

func TestPageURL(t *testing.T) {
	client := fetch.NewClient(fetch.WithBaseURL("https://api.example.org/"))
	got := client.PageURL(fetch.PageQuery{Library: "/users/7/", Limit: 25, Start: 0})
	want := "https://api.example.org/users/7/items/top?format=json&limit=25&start=0"
	if got != want {
		t.Errorf("PageURL() = %q, want %q", got, want)
	}
}
