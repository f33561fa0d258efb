// ABOUTME: Tests for collection pagination against synthetic page sources
// ABOUTME: Covers completeness, stop conditions, failure classes and final ordering

package paginate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/pubfeed/internal/assemble"
	"github.com/harper/pubfeed/internal/fetch"
	"github.com/harper/pubfeed/internal/models"
)

// fakeSource serves records in pages and records every query it saw.
type fakeSource struct {
	records   []models.RawRecord
	total     int            // header total, -1 to omit
	short     map[int]int    // start offset -> forced page length
	failAt    map[int]error  // start offset -> error
	rawBodies map[int][]byte // start offset -> literal body
	queries   []fetch.PageQuery
}

func (s *fakeSource) FetchPage(_ context.Context, q fetch.PageQuery) (*fetch.Page, error) {
	s.queries = append(s.queries, q)
	if err, ok := s.failAt[q.Start]; ok {
		return nil, err
	}
	if body, ok := s.rawBodies[q.Start]; ok {
		return &fetch.Page{Body: body, Format: fetch.FormatJSON, Total: s.total}, nil
	}

	end := q.Start + q.Limit
	if n, ok := s.short[q.Start]; ok {
		end = q.Start + n
	}
	if end > len(s.records) {
		end = len(s.records)
	}
	chunk := []models.RawRecord{}
	if q.Start < end {
		chunk = s.records[q.Start:end]
	}
	body, err := json.Marshal(chunk)
	if err != nil {
		return nil, err
	}
	return &fetch.Page{Body: body, Format: fetch.FormatJSON, Total: s.total}, nil
}

func makeRecords(n int) []models.RawRecord {
	recs := make([]models.RawRecord, n)
	for i := range recs {
		recs[i] = models.RawRecord{
			Key: fmt.Sprintf("K%03d", i),
			Data: &models.RecordData{
				Title: fmt.Sprintf("Paper %d", i),
				Date:  strconv.Itoa(2000 + i%20),
			},
		}
	}
	return recs
}

func newFetcher(src PageSource, pageSize int) *Fetcher {
	return New(src, Options{Library: "groups/1", Sort: "dateAdded", Direction: "desc", PageSize: pageSize}, nil)
}

func allAuthors() *assemble.Assembler {
	return assemble.New(models.ModeAllAuthors, nil, nil)
}

func TestFetchCompleteness(t *testing.T) {
	cases := []struct {
		n, pageSize int
		total       int
	}{
		{0, 10, 0},
		{7, 10, 7},
		{10, 10, 10},
		{25, 10, 25},
		{30, 10, 30},
		{30, 10, -1},
		{23, 5, -1},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("n=%d/p=%d/total=%d", c.n, c.pageSize, c.total), func(t *testing.T) {
			src := &fakeSource{records: makeRecords(c.n), total: c.total}
			res, err := newFetcher(src, c.pageSize).Fetch(context.Background(), "", allAuthors())
			require.NoError(t, err)
			assert.Len(t, res.Items, c.n)
			assert.Equal(t, c.n, res.Records)

			seen := map[string]bool{}
			for _, it := range res.Items {
				assert.False(t, seen[it.Key], "duplicate %s", it.Key)
				seen[it.Key] = true
			}
		})
	}
}

func TestFetchStopsAtTotal(t *testing.T) {
	src := &fakeSource{records: makeRecords(20), total: 20}
	_, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	require.NoError(t, err)
	// Two full pages reach the total, so no third empty request is made.
	assert.Len(t, src.queries, 2)
}

func TestFetchEmptyTrailingPage(t *testing.T) {
	src := &fakeSource{records: makeRecords(20), total: -1}
	_, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	require.NoError(t, err)
	require.Len(t, src.queries, 3)
	assert.Equal(t, 20, src.queries[2].Start)
}

func TestFetchShortPageEndsPagination(t *testing.T) {
	// The server returns 4 of 10 requested records at offset 10. That page is
	// taken as the last one even though more records exist.
	src := &fakeSource{records: makeRecords(30), total: -1, short: map[int]int{10: 4}}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	require.NoError(t, err)
	assert.Len(t, res.Items, 14)
	assert.Len(t, src.queries, 2)
}

func TestFetchOffsetAdvancesByReturnedCount(t *testing.T) {
	src := &fakeSource{records: makeRecords(30), total: 30, short: map[int]int{0: 10}}
	_, err := newFetcher(src, 10).Fetch(context.Background(), "ABC", allAuthors())
	require.NoError(t, err)
	require.Len(t, src.queries, 3)
	assert.Equal(t, []int{0, 10, 20}, []int{src.queries[0].Start, src.queries[1].Start, src.queries[2].Start})
	for _, q := range src.queries {
		assert.Equal(t, "ABC", q.Collection)
		assert.Equal(t, 10, q.Limit)
		assert.Equal(t, "groups/1", q.Library)
	}
}

func TestFetchSkipsBadRecords(t *testing.T) {
	recs := makeRecords(5)
	recs[1].Data.Title = "<i></i>"
	recs[3].Data = nil
	src := &fakeSource{records: recs, total: 5}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, 2, res.Skipped)
	for _, it := range res.Items {
		assert.NotEmpty(t, it.Title)
	}
}

func TestFetchSkipsMalformedElements(t *testing.T) {
	body := []byte(`[{"key":"A","data":{"title":"Good","date":"2020"}},{"key":"B","data":[1,2]}]`)
	src := &fakeSource{total: -1, rawBodies: map[int][]byte{0: body}}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "A", res.Items[0].Key)
	assert.Equal(t, 1, res.Skipped)
}

func TestFetchFirstPageForbiddenIsHard(t *testing.T) {
	src := &fakeSource{failAt: map[int]error{0: &fetch.StatusError{StatusCode: http.StatusForbidden}}}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "B", allAuthors())
	assert.Nil(t, res)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.False(t, fe.Partial)
	assert.Equal(t, "B", fe.Collection)
	assert.ErrorIs(t, err, fetch.ErrForbidden)
	assert.False(t, IsPartial(err))
}

func TestFetchFirstPageNetworkErrorIsHard(t *testing.T) {
	src := &fakeSource{failAt: map[int]error{0: fetch.ErrNetwork}}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, fetch.ErrNetwork)
	assert.False(t, IsPartial(err))
}

func TestFetchLaterPageNetworkErrorIsPartial(t *testing.T) {
	src := &fakeSource{records: makeRecords(30), total: 30, failAt: map[int]error{20: fetch.ErrNetwork}}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	require.Error(t, err)
	require.NotNil(t, res)
	assert.True(t, IsPartial(err))
	assert.Len(t, res.Items, 20)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 20, fe.Offset)
}

func TestFetchLaterPageMalformedIsPartial(t *testing.T) {
	src := &fakeSource{records: makeRecords(30), total: 30, rawBodies: map[int][]byte{10: []byte("<html>oops")}}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	require.NotNil(t, res)
	assert.True(t, IsPartial(err))
	assert.ErrorIs(t, err, fetch.ErrInvalidResponse)
	assert.Len(t, res.Items, 10)
}

func TestFetchLaterPageNotFoundIsHard(t *testing.T) {
	src := &fakeSource{records: makeRecords(30), total: 30, failAt: map[int]error{10: &fetch.StatusError{StatusCode: http.StatusNotFound}}}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, fetch.ErrNotFound)
	assert.False(t, IsPartial(err))
}

func TestFetchSortsByDateDescending(t *testing.T) {
	dates := []string{"2020", "2022-05", "", "2021-01-15"}
	recs := make([]models.RawRecord, len(dates))
	for i, d := range dates {
		recs[i] = models.RawRecord{Key: d, Data: &models.RecordData{Title: "T" + d, Date: d}}
	}
	src := &fakeSource{records: recs, total: -1}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	require.NoError(t, err)

	var got []string
	for _, it := range res.Items {
		got = append(got, it.Key)
	}
	assert.Equal(t, []string{"2022-05", "2021-01-15", "2020", ""}, got)
}

func TestSortItemsStableForTies(t *testing.T) {
	recs := []models.RawRecord{
		{Key: "a", Data: &models.RecordData{Title: "a", Date: "2020"}},
		{Key: "b", Data: &models.RecordData{Title: "b"}},
		{Key: "c", Data: &models.RecordData{Title: "c", Date: "2020"}},
		{Key: "d", Data: &models.RecordData{Title: "d"}},
	}
	src := &fakeSource{records: recs, total: -1}
	res, err := newFetcher(src, 10).Fetch(context.Background(), "", allAuthors())
	require.NoError(t, err)

	var got []string
	for _, it := range res.Items {
		got = append(got, it.Key)
	}
	assert.Equal(t, []string{"a", "c", "b", "d"}, got)
}

func TestFetchWithHTTPClient(t *testing.T) {
	recs := makeRecords(12)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := start + limit
		if end > len(recs) {
			end = len(recs)
		}
		w.Header().Set(fetch.TotalResultsHeader, strconv.Itoa(len(recs)))
		_ = json.NewEncoder(w).Encode(recs[start:end])
	}))
	defer server.Close()

	client := fetch.NewClient(fetch.WithBaseURL(server.URL), fetch.WithRateLimit(0))
	f := New(client, Options{Library: "groups/1", PageSize: 5}, nil)
	res, err := f.Fetch(context.Background(), "", allAuthors())
	require.NoError(t, err)
	assert.Len(t, res.Items, 12)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 12, res.Total)
}
