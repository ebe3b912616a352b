package scraper

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/reaper47/heavy-metal-notifier/internal/calendar"
)

// headerArtist is the artist cell text of a table's header row.
const headerArtist = "Artist"

// wikiTables lists the table ids of the wiki page in processing order.
// "table_Febuary" is a misspelling found on some years' pages.
var wikiTables = []struct {
	id    string
	month time.Month
}{
	{"table_January", time.January},
	{"table_February", time.February},
	{"table_Febuary", time.February},
	{"table_March", time.March},
	{"table_April", time.April},
	{"table_May", time.May},
	{"table_June", time.June},
	{"table_July", time.July},
	{"table_August", time.August},
	{"table_September", time.September},
	{"table_October", time.October},
	{"table_November", time.November},
	{"table_December", time.December},
}

// ScrapeWiki fetches the wiki page for the year and extracts its calendar.
// Only a failure to fetch the page is returned as an error.
func ScrapeWiki(ctx context.Context, client WikiFetcher, year int, opts ...Option) (*calendar.Calendar, error) {
	o := newOptions(opts)
	o.logger.Info("scraping wiki", zap.Int("year", year))

	doc, err := client.FetchWikiPage(ctx, year)
	if err != nil {
		return nil, err
	}

	cal := ExtractWiki(doc, year, opts...)
	o.logger.Info("wiki calendar created", zap.Int("year", year), zap.Int("releases", cal.Len()))
	return cal, nil
}

// ExtractWiki builds a calendar from the month tables of a wiki page.
// Missing or garbled tables yield no releases for their month.
func ExtractWiki(doc *goquery.Document, year int, opts ...Option) *calendar.Calendar {
	o := newOptions(opts)
	cal := calendar.New(year)

	// The carried day and artist are not reset between tables.
	state := &wikiState{day: 1}

	for _, t := range wikiTables {
		tables := doc.Find("[id='" + t.id + "']")
		o.logger.Debug("wiki tables found", zap.String("id", t.id), zap.Int("count", tables.Length()))

		switch {
		case tables.Length() == 2 && t.month == time.November:
			state.processTable(cal, tables.Eq(0), time.October)
			state.processTable(cal, tables.Eq(1), time.November)
		case tables.Length() == 1:
			state.processTable(cal, tables, t.month)
		}
	}
	return cal
}

// wikiState is the day and artist carried over rows whose cells were merged
// vertically on the page.
type wikiState struct {
	day    int
	artist string
}

// processTable scans the body rows of a table, classifying each row by its cell count:
//
//	3 cells: day, artist, album
//	2 cells: artist, album (same day)
//	1 cell:  album (same day and artist)
func (s *wikiState) processTable(cal *calendar.Calendar, table *goquery.Selection, month time.Month) {
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Children()

		switch cells.Length() {
		case 1:
			album := cellText(cells.Eq(0))
			cal.AddRelease(month, s.day, calendar.NewRelease(s.artist, album))
		case 2:
			s.artist = cellText(cells.Eq(0))
			album := cellText(cells.Eq(1))
			cal.AddRelease(month, s.day, calendar.NewRelease(s.artist, album))
		case 3:
			if day, err := strconv.Atoi(cellText(cells.Eq(0))); err == nil {
				s.day = day
			}
			s.artist = cellText(cells.Eq(1))
			album := cellText(cells.Eq(2))
			if s.artist != headerArtist {
				cal.AddRelease(month, s.day, calendar.NewRelease(s.artist, album))
			}
		}
	})
}

func cellText(cell *goquery.Selection) string {
	return strings.TrimSpace(cell.Text())
}
