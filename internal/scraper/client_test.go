package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, time.March, 7, 15, 4, 5, 0, time.UTC)
}

func newTestClient(srv *httptest.Server) *HTTPClient {
	c := NewHTTPClient(WithProbeDelay(0), WithClock(fixedClock), WithTimeout(5*time.Second))
	c.wikiBaseURL = srv.URL
	c.archiveBaseURL = srv.URL
	return c
}

func TestArchiveURL(t *testing.T) {
	c := NewHTTPClient(WithClock(fixedClock))

	u, err := url.Parse(c.ArchiveURL(2))
	require.NoError(t, err)

	assert.Equal(t, "www.metal-archives.com", u.Host)
	assert.Equal(t, "/release/ajax-upcoming/json/1", u.Path)

	q := u.Query()
	assert.Equal(t, "200", q.Get("iDisplayStart"))
	assert.Equal(t, "100", q.Get("iDisplayLength"))
	assert.Equal(t, "4", q.Get("iSortCol_0"))
	assert.Equal(t, "asc", q.Get("sSortDir_0"))
	assert.Equal(t, "2024-3-7", q.Get("fromDate"))
	assert.Equal(t, "0000-00-00", q.Get("toDate"))
	assert.Equal(t, "5", q.Get("mDataProp_5"))
}

func TestWikiURL(t *testing.T) {
	c := NewHTTPClient()
	assert.Equal(t, "https://en.wikipedia.org/wiki/2022_in_heavy_metal_music", c.WikiURL(2022))
}

func TestFetchWikiPage(t *testing.T) {
	page, err := os.ReadFile("testdata/wiki_2022.html")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		if r.URL.Path != "/wiki/2022_in_heavy_metal_music" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	c := newTestClient(srv)

	t.Run("found", func(t *testing.T) {
		doc, err := c.FetchWikiPage(context.Background(), 2022)
		require.NoError(t, err)
		assert.Equal(t, 2, doc.Find("[id='table_November']").Length())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.FetchWikiPage(context.Background(), 1970)
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	})
}

func TestFetchArchivePage(t *testing.T) {
	pages := map[string]string{
		"0":   "testdata/archive_page_0.json",
		"100": "testdata/archive_page_1.json",
		"200": "testdata/archive_empty.json",
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/release/ajax-upcoming/json/1" {
			http.NotFound(w, r)
			return
		}
		name, ok := pages[r.URL.Query().Get("iDisplayStart")]
		if !ok {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		body, err := os.ReadFile(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(srv)

	t.Run("rows", func(t *testing.T) {
		page, err := c.FetchArchivePage(context.Background(), 0)
		require.NoError(t, err)

		assert.Equal(t, 207, page.TotalRecords)
		assert.Equal(t, 207, page.TotalDisplayRecords)
		require.Len(t, page.Rows, 3)
		assert.Equal(t, "Full-length", page.Rows[0][cellReleaseType])
	})

	t.Run("undecodable row kept as nil", func(t *testing.T) {
		page, err := c.FetchArchivePage(context.Background(), 1)
		require.NoError(t, err)

		require.Len(t, page.Rows, 5)
		assert.Nil(t, page.Rows[4])
	})

	t.Run("empty", func(t *testing.T) {
		_, err := c.FetchArchivePage(context.Background(), 2)
		assert.ErrorIs(t, err, ErrNoMoreData)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := c.FetchArchivePage(context.Background(), 3)
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	})
}

func TestDecodeArchivePage_InvalidJSON(t *testing.T) {
	_, err := decodeArchivePage([]byte("<html>maintenance</html>"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMoreData)
}

func TestArtistSlug(t *testing.T) {
	tests := []struct {
		artist string
		want   string
	}{
		{"Blind Guardian", "blindguardian"},
		{"AC/DC", "acdc"},
		{"Motörhead", "motörhead"},
		{"Hellripper / Ekpyrosis", "hellripperekpyrosis"},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.artist, func(t *testing.T) {
			assert.Equal(t, tt.want, artistSlug(tt.artist))
		})
	}
}

func TestProbeArtistPresence(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("elsewhere"))
	}))
	defer other.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("slug") {
		case "blindguardian":
			_, _ = w.Write([]byte("music"))
		case "nobody":
			http.Redirect(w, r, "/signup", http.StatusFound)
		case "moved":
			http.Redirect(w, r, other.URL, http.StatusFound)
		case "gone":
			http.NotFound(w, r)
		default:
			if r.URL.Path == "/signup" {
				_, _ = w.Write([]byte("sign up"))
				return
			}
			http.Error(w, "unexpected", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	c.probeURL = func(slug string) string {
		return srv.URL + "/?slug=" + slug
	}

	tests := []struct {
		name    string
		artist  string
		want    string
		wantHit bool
	}{
		{name: "found", artist: "Blind Guardian", want: srv.URL + "/?slug=blindguardian", wantHit: true},
		{name: "redirected to signup", artist: "Nobody"},
		{name: "redirected to another host", artist: "Moved"},
		{name: "not found", artist: "Gone"},
		{name: "empty slug", artist: "!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.ProbeArtistPresence(context.Background(), tt.artist)
			assert.Equal(t, tt.wantHit, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("cancelled during delay", func(t *testing.T) {
		slow := newTestClient(srv)
		slow.probeDelay = time.Hour
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got, ok := slow.ProbeArtistPresence(ctx, "Blind Guardian")
		assert.False(t, ok)
		assert.Empty(t, got)
	})
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	c := NewHTTPClient()

	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, defaultProbeDelay, c.probeDelay)
	assert.True(t, strings.HasPrefix(c.probeURL("abc"), "https://abc."))
}
