package scraper

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reaper47/heavy-metal-notifier/internal/calendar"
)

// fakeArchive serves archive pages from memory.
type fakeArchive struct {
	pages map[int]*ArchivePage
	errs  map[int]error
	// calls tracks number of FetchArchivePage calls
	calls atomic.Int32
	// onFetch runs before each page is served
	onFetch func(page int)
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{
		pages: make(map[int]*ArchivePage),
		errs:  make(map[int]error),
	}
}

func (f *fakeArchive) FetchArchivePage(_ context.Context, page int) (*ArchivePage, error) {
	f.calls.Add(1)
	if f.onFetch != nil {
		f.onFetch(page)
	}
	if err, ok := f.errs[page]; ok {
		return nil, err
	}
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return nil, ErrNoMoreData
}

func loadArchivePage(t *testing.T, name string) *ArchivePage {
	t.Helper()
	body, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)

	page, err := decodeArchivePage(body)
	require.NoError(t, err)
	return page
}

func row(artist, album, date string) []string {
	return []string{
		`<a href="https://example.com/bands/` + artist + `">` + artist + `</a>`,
		`<a href="https://example.com/albums/` + album + `">` + album + `</a>`,
		"Full-length",
		"Heavy Metal",
		date,
		"",
	}
}

func TestScrapeArchive_Golden2022(t *testing.T) {
	fake := newFakeArchive()
	fake.pages[0] = loadArchivePage(t, "archive_page_0.json")
	fake.pages[1] = loadArchivePage(t, "archive_page_1.json")

	got, err := ScrapeArchive(context.Background(), fake, 2022)
	require.NoError(t, err)

	want := []entry{
		{time.August, 31, calendar.NewRelease("Wormrot", "Hiss").WithMetadata(calendar.Metadata{
			ArtistLink:  "https://www.metal-archives.com/bands/Wormrot/105331",
			AlbumLink:   "https://www.metal-archives.com/albums/Wormrot/Hiss/1040707",
			ReleaseType: "Full-length",
			Genre:       "Grindcore",
		})},
		{time.September, 2, calendar.NewRelease("Blind Guardian", "The God Machine").WithMetadata(calendar.Metadata{
			ArtistLink:  "https://www.metal-archives.com/bands/Blind_Guardian/23",
			AlbumLink:   "https://www.metal-archives.com/albums/Blind_Guardian/The_God_Machine/1049361",
			ReleaseType: "Full-length",
			Genre:       "Speed Metal (early); Power Metal (later)",
		})},
		{time.September, 2, calendar.NewRelease("Hellripper / Ekpyrosis", "Necromantic Sabbath").WithMetadata(calendar.Metadata{
			ArtistLink:  "https://www.metal-archives.com/bands/Hellripper/3540393478",
			AlbumLink:   "https://www.metal-archives.com/albums/Hellripper/Necromantic_Sabbath/1051122",
			ReleaseType: "Split",
			Genre:       "Black/Speed Metal | Death/Doom Metal",
		})},
		{time.November, 11, calendar.NewRelease("Sylosis", "A Sign of Things to Come").WithMetadata(calendar.Metadata{
			ArtistLink:  "https://www.metal-archives.com/bands/Sylosis/10385",
			AlbumLink:   "https://www.metal-archives.com/albums/Sylosis/A_Sign_of_Things_to_Come/1070110",
			ReleaseType: "Full-length",
			Genre:       "Thrash Metal/Metalcore",
		})},
	}

	assert.Equal(t, want, entries(got))
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestScrapeArchive_StopsOnEmptyPage(t *testing.T) {
	tests := []struct {
		name  string
		empty *ArchivePage
		err   error
	}{
		{name: "no more data error", err: ErrNoMoreData},
		{name: "page without rows", empty: &ArchivePage{TotalRecords: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeArchive()
			fake.pages[0] = &ArchivePage{Rows: [][]string{row("A", "X", "May 1st, 2024")}}
			fake.pages[1] = &ArchivePage{Rows: [][]string{row("B", "Y", "May 2nd, 2024")}}
			if tt.empty != nil {
				fake.pages[2] = tt.empty
			} else {
				fake.errs[2] = tt.err
			}
			fake.pages[3] = &ArchivePage{Rows: [][]string{row("C", "Z", "May 3rd, 2024")}}

			got, err := ScrapeArchive(context.Background(), fake, 2024)
			require.NoError(t, err)

			assert.Equal(t, int32(3), fake.calls.Load())
			assert.Equal(t, 2, got.Len())
		})
	}
}

func TestScrapeArchive_PageWithoutMatchingYearContinues(t *testing.T) {
	fake := newFakeArchive()
	fake.pages[0] = &ArchivePage{Rows: [][]string{row("A", "X", "December 30th, 2023")}}
	fake.pages[1] = &ArchivePage{Rows: [][]string{row("B", "Y", "January 2nd, 2024")}}

	got, err := ScrapeArchive(context.Background(), fake, 2024)
	require.NoError(t, err)

	assert.Equal(t, int32(3), fake.calls.Load())
	assert.Equal(t, []entry{{time.January, 2, row2024("B", "Y")}}, entries(got))
}

func row2024(artist, album string) calendar.Release {
	return calendar.NewRelease(artist, album).WithMetadata(calendar.Metadata{
		ArtistLink:  "https://example.com/bands/" + artist,
		AlbumLink:   "https://example.com/albums/" + album,
		ReleaseType: "Full-length",
		Genre:       "Heavy Metal",
	})
}

func TestScrapeArchive_Failures(t *testing.T) {
	fetchErr := errors.New("connection reset")

	t.Run("first page", func(t *testing.T) {
		fake := newFakeArchive()
		fake.errs[0] = fetchErr

		got, err := ScrapeArchive(context.Background(), fake, 2024)

		assert.ErrorIs(t, err, fetchErr)
		assert.Nil(t, got)
	})

	t.Run("later page keeps partial result", func(t *testing.T) {
		fake := newFakeArchive()
		fake.pages[0] = &ArchivePage{Rows: [][]string{row("A", "X", "May 1st, 2024")}}
		fake.errs[1] = fetchErr
		fake.pages[2] = &ArchivePage{Rows: [][]string{row("B", "Y", "May 2nd, 2024")}}

		got, err := ScrapeArchive(context.Background(), fake, 2024)
		require.NoError(t, err)

		assert.Equal(t, int32(2), fake.calls.Load())
		assert.Equal(t, 1, got.Len())
	})

	t.Run("context cancelled between pages", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		fake := newFakeArchive()
		fake.pages[0] = &ArchivePage{Rows: [][]string{row("A", "X", "May 1st, 2024")}}
		fake.pages[1] = &ArchivePage{Rows: [][]string{row("B", "Y", "May 2nd, 2024")}}
		fake.onFetch = func(int) { cancel() }

		got, err := ScrapeArchive(ctx, fake, 2024)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, got)
		assert.Equal(t, int32(1), fake.calls.Load())
	})
}

func TestScrapeArchive_MaxPages(t *testing.T) {
	fake := newFakeArchive()
	for i := 0; i < 5; i++ {
		fake.pages[i] = &ArchivePage{Rows: [][]string{row("A", "X", "May 1st, 2024")}}
	}

	_, err := ScrapeArchive(context.Background(), fake, 2024, WithMaxPages(2))
	require.NoError(t, err)

	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestParseArchiveRow(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := parseArchiveRow(row("A", "X", "October 9th, 2024"))
		require.NoError(t, err)

		assert.Equal(t, "A", got.artist)
		assert.Equal(t, "X", got.album)
		assert.Equal(t, "https://example.com/bands/A", got.artistLink)
		assert.Equal(t, time.Date(2024, time.October, 9, 0, 0, 0, 0, time.UTC), got.date)
	})

	tests := []struct {
		name    string
		cells   []string
		wantErr error
	}{
		{name: "nil row", cells: nil, wantErr: ErrMalformedRow},
		{name: "too few cells", cells: row("A", "X", "May 1st, 2024")[:4], wantErr: ErrMalformedRow},
		{
			name:    "artist without link",
			cells:   []string{"A", `<a href="/x">X</a>`, "Demo", "Doom", "May 1st, 2024"},
			wantErr: ErrMalformedRow,
		},
		{
			name:    "album without link",
			cells:   []string{`<a href="/a">A</a>`, "X", "Demo", "Doom", "May 1st, 2024"},
			wantErr: ErrMalformedRow,
		},
		{name: "missing date", cells: row("A", "X", ""), wantErr: ErrBadDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArchiveRow(tt.cells)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseArchiveDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "October 9th, 2024", want: time.Date(2024, time.October, 9, 0, 0, 0, 0, time.UTC)},
		{in: "August 1st, 2024", want: time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)},
		{in: "august 22nd, 2024", want: time.Date(2024, time.August, 22, 0, 0, 0, 0, time.UTC)},
		{in: "March 3rd 2023", want: time.Date(2023, time.March, 3, 0, 0, 0, 0, time.UTC)},
		{in: "June 15, 2025", want: time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)},
		{in: "February 30th, 2024", wantErr: true},
		{in: "Sometime in 2024", wantErr: true},
		{in: "2024", wantErr: true},
		{in: "May 1st, 20x4", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseArchiveDate(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
