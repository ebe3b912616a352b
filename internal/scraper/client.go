// Package scraper fetches and extracts heavy metal release calendars from the
// wiki "year in heavy metal music" page and the metal archives upcoming-releases feed.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	wikiBaseURL    = "https://en.wikipedia.org"
	archiveBaseURL = "https://www.metal-archives.com"
	userAgent      = "heavy-metal-notifier/1.0 (+https://github.com/reaper47/heavy-metal-notifier)"

	// PageSize is the number of records requested per archive page.
	PageSize = 100

	defaultTimeout    = 30 * time.Second
	defaultProbeDelay = 200 * time.Millisecond
)

// Sentinel errors.
var (
	// ErrNoMoreData is returned by FetchArchivePage when a page holds no rows.
	ErrNoMoreData = errors.New("no more data")

	// ErrUnexpectedStatus is returned when a source answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// WikiFetcher fetches the wiki release page of a year.
type WikiFetcher interface {
	FetchWikiPage(ctx context.Context, year int) (*goquery.Document, error)
}

// ArchiveFetcher fetches one page of the archive's upcoming releases.
type ArchiveFetcher interface {
	FetchArchivePage(ctx context.Context, page int) (*ArchivePage, error)
}

// ArtistProber checks whether an artist has a Bandcamp page.
type ArtistProber interface {
	ProbeArtistPresence(ctx context.Context, artist string) (string, bool)
}

// Client is the full set of outbound fetches used by the notifier.
type Client interface {
	WikiFetcher
	ArchiveFetcher
	ArtistProber
}

// ArchivePage is one decoded page of the archive listing.
type ArchivePage struct {
	TotalRecords        int
	TotalDisplayRecords int

	// Rows holds the text/HTML cells of each record. A row that could not be
	// decoded as a list of strings is nil.
	Rows [][]string
}

// archiveResponse is the JSON body returned by the archive listing.
type archiveResponse struct {
	TotalRecords        int               `json:"iTotalRecords"`
	TotalDisplayRecords int               `json:"iTotalDisplayRecords"`
	Data                []json.RawMessage `json:"aaData"`
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	httpClient     *http.Client
	wikiBaseURL    string
	archiveBaseURL string
	probeURL       func(slug string) string
	probeDelay     time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithClientLogger sets the logger used for probe failures.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProbeDelay sets the pause taken before each Bandcamp probe.
func WithProbeDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.probeDelay = d
	}
}

// WithClock overrides the clock used for the archive "from date".
func WithClock(now func() time.Time) ClientOption {
	return func(c *HTTPClient) {
		c.now = now
	}
}

// NewHTTPClient creates a client for the public sources.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		httpClient:     &http.Client{Timeout: defaultTimeout},
		wikiBaseURL:    wikiBaseURL,
		archiveBaseURL: archiveBaseURL,
		probeURL:       bandcampURL,
		probeDelay:     defaultProbeDelay,
		now:            time.Now,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WikiURL returns the address of the wiki page for a year.
func (c *HTTPClient) WikiURL(year int) string {
	return fmt.Sprintf("%s/wiki/%d_in_heavy_metal_music", c.wikiBaseURL, year)
}

// FetchWikiPage fetches and parses the wiki page for a year.
func (c *HTTPClient) FetchWikiPage(ctx context.Context, year int) (*goquery.Document, error) {
	body, err := c.get(ctx, c.WikiURL(year))
	if err != nil {
		return nil, fmt.Errorf("fetching wiki page for %d: %w", year, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing wiki page for %d: %w", year, err)
	}
	return doc, nil
}

// ArchiveURL returns the address of an archive page, listing releases from today onward.
func (c *HTTPClient) ArchiveURL(page int) string {
	now := c.now()
	params := url.Values{
		"sEcho":           {"3"},
		"iColumns":        {"6"},
		"sColumns":        {""},
		"iDisplayStart":   {strconv.Itoa(page * PageSize)},
		"iDisplayLength":  {strconv.Itoa(PageSize)},
		"iSortCol_0":      {"4"},
		"sSortDir_0":      {"asc"},
		"iSortingCols":    {"1"},
		"includeVersions": {"0"},
		"fromDate":        {fmt.Sprintf("%d-%d-%d", now.Year(), int(now.Month()), now.Day())},
		"toDate":          {"0000-00-00"},
	}
	for i := 0; i < 6; i++ {
		col := strconv.Itoa(i)
		params.Set("mDataProp_"+col, col)
		params.Set("bSortable_"+col, "true")
	}
	return c.archiveBaseURL + "/release/ajax-upcoming/json/1?" + params.Encode()
}

// FetchArchivePage fetches one page of upcoming releases.
// Returns ErrNoMoreData when the page holds no rows.
func (c *HTTPClient) FetchArchivePage(ctx context.Context, page int) (*ArchivePage, error) {
	body, err := c.get(ctx, c.ArchiveURL(page))
	if err != nil {
		return nil, fmt.Errorf("fetching archive page %d: %w", page, err)
	}
	return decodeArchivePage(body)
}

// decodeArchivePage decodes an archive JSON body. Rows that are not lists of
// strings are kept as nil so that they fail individually later on.
func decodeArchivePage(body []byte) (*ArchivePage, error) {
	var resp archiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding archive page: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoMoreData
	}

	page := &ArchivePage{
		TotalRecords:        resp.TotalRecords,
		TotalDisplayRecords: resp.TotalDisplayRecords,
		Rows:                make([][]string, len(resp.Data)),
	}
	for i, raw := range resp.Data {
		var cells []string
		if err := json.Unmarshal(raw, &cells); err == nil {
			page.Rows[i] = cells
		}
	}
	return page, nil
}

// ProbeArtistPresence reports the Bandcamp URL of an artist when the
// subdomain derived from its name resolves to a real page.
func (c *HTTPClient) ProbeArtistPresence(ctx context.Context, artist string) (string, bool) {
	if c.probeDelay > 0 {
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(c.probeDelay):
		}
	}

	slug := artistSlug(artist)
	if slug == "" {
		return "", false
	}

	target := c.probeURL(slug)
	want, err := url.Parse(target)
	if err != nil {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("bandcamp probe failed",
			zap.String("artist", artist),
			zap.String("url", target),
			zap.Error(err),
		)
		return "", false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	final := resp.Request.URL
	if resp.StatusCode >= http.StatusBadRequest || final.Host != want.Host || final.Path == "/signup" {
		return "", false
	}
	return target, true
}

// get performs a GET request and returns the body of a 2xx response.
func (c *HTTPClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

// artistSlug lower-cases the name and keeps only letters and digits.
func artistSlug(artist string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(artist) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func bandcampURL(slug string) string {
	return "https://" + slug + ".bandcamp.com"
}
