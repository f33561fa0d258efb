// ABOUTME: HTTP client for one page of a remote bibliographic collection
// ABOUTME: Sets API headers, paces requests, bounds body size and retries transient failures

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Zotero web API.
	DefaultBaseURL = "https://api.zotero.org"

	// DefaultAPIVersion is sent as Zotero-API-Version.
	DefaultAPIVersion = 3

	// DefaultTimeout bounds one page request of up to 100 records.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the number of requests per second.
	DefaultRateLimit = 5.0

	// MaxResponseSize caps a page body.
	MaxResponseSize = 20 * 1024 * 1024

	// TotalResultsHeader carries the collection size on every page.
	TotalResultsHeader = "Total-Results"

	maxRetryAfter = 30 * time.Second
)

// Format selects the page payload encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatAtom Format = "atom"
)

// PageQuery describes one page request.
type PageQuery struct {
	Library    string // e.g. "groups/5560460" or "users/12345"
	Collection string // empty selects the top-level item set
	Format     Format
	Sort       string
	Direction  string
	Limit      int
	Start      int
}

// Page is one successfully fetched page.
type Page struct {
	Body   []byte
	Format Format
	Total  int // -1 when the response carried no total count
	URL    string
}

// HasTotal reports whether the total result count is known.
func (p *Page) HasTotal() bool {
	return p.Total >= 0
}

// Client fetches collection pages from the remote API.
type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	baseURL      string
	apiKey       string
	apiVersion   int
	userAgent    string
	maxRetries   int
	retryBackoff time.Duration
	logger       *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the key sent as Zotero-API-Key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom API root (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit sets the request pace in requests per second. Zero disables pacing.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRetries sets how often a transient failure is retried and the initial backoff.
func WithRetries(n int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// WithAPIVersion sets the Zotero-API-Version header value.
func WithAPIVersion(v int) ClientOption {
	return func(c *Client) {
		if v > 0 {
			c.apiVersion = v
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a page client with default settings.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:      DefaultBaseURL,
		apiVersion:   DefaultAPIVersion,
		userAgent:    "pubfeed/1.0 (publication feeds)",
		retryBackoff: time.Second,
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageURL builds the request URL for q.
func (c *Client) PageURL(q PageQuery) string {
	path := "/" + strings.Trim(q.Library, "/")
	if q.Collection != "" {
		path += "/collections/" + url.PathEscape(q.Collection)
	}
	path += "/items/top"

	params := url.Values{}
	format := q.Format
	if format == "" {
		format = FormatJSON
	}
	params.Set("format", string(format))
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Direction != "" {
		params.Set("direction", q.Direction)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	params.Set("start", strconv.Itoa(q.Start))

	return c.baseURL + path + "?" + params.Encode()
}

// FetchPage requests one page, retrying transient failures. Retries re-request
// the same offset, so a page is never counted twice.
func (c *Client) FetchPage(ctx context.Context, q PageQuery) (*Page, error) {
	pageURL := c.PageURL(q)
	backoff := c.retryBackoff

	for attempt := 0; ; attempt++ {
		page, wait, err := c.do(ctx, pageURL, q.Format)
		if err == nil {
			return page, nil
		}
		if attempt >= c.maxRetries || !IsTransient(err) {
			return nil, err
		}

		if wait <= 0 {
			wait = backoff
			backoff *= 2
		}
		c.logger.Warn("retrying page request", "url", pageURL, "attempt", attempt+1, "wait", wait, "err", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
		case <-timer.C:
		}
	}
}

// do performs a single request. The returned duration is the server's
// Retry-After hint, if any.
func (c *Client) do(ctx context.Context, pageURL string, format Format) (*Page, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("%w: rate limiter: %v", ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Zotero-API-Version", strconv.Itoa(c.apiVersion))
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, retryAfter(resp), &StatusError{
			StatusCode: resp.StatusCode,
			URL:        pageURL,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to read response body: %v", ErrNetwork, err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, 0, fmt.Errorf("%w: response too large (exceeds %d bytes)", ErrInvalidResponse, MaxResponseSize)
	}

	if format == "" {
		format = FormatJSON
	}
	return &Page{
		Body:   body,
		Format: format,
		Total:  parseTotal(resp.Header.Get(TotalResultsHeader)),
		URL:    pageURL,
	}, 0, nil
}

func parseTotal(v string) int {
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		v = resp.Header.Get("Backoff")
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

