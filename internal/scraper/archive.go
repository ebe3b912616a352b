package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reaper47/heavy-metal-notifier/internal/calendar"
)

// Row-level errors. They never escape ScrapeArchive.
var (
	// ErrMalformedRow is returned when a row lacks a cell or an expected link.
	ErrMalformedRow = errors.New("malformed archive row")

	// ErrBadDate is returned when a row's release date cannot be parsed.
	ErrBadDate = errors.New("bad release date")
)

// Archive row cell positions.
const (
	cellArtist = iota
	cellAlbum
	cellReleaseType
	cellGenre
	cellDate
)

// archiveRow is a decoded archive record.
type archiveRow struct {
	artist      string
	artistLink  string
	album       string
	albumLink   string
	releaseType string
	genre       string
	date        time.Time
}

func (r archiveRow) release() calendar.Release {
	return calendar.NewRelease(r.artist, r.album).WithMetadata(calendar.Metadata{
		ArtistLink:  r.artistLink,
		AlbumLink:   r.albumLink,
		ReleaseType: r.releaseType,
		Genre:       r.genre,
	})
}

// ScrapeArchive requests archive pages in order until one comes back empty,
// keeping the releases dated in the given year.
//
// A failure on the first page is returned as an error. A failure on a later
// page ends pagination and the releases gathered so far are returned.
func ScrapeArchive(ctx context.Context, client ArchiveFetcher, year int, opts ...Option) (*calendar.Calendar, error) {
	o := newOptions(opts)
	o.logger.Info("scraping metal archives", zap.Int("year", year))

	cal := calendar.New(year)
	start := time.Now()
	pages := 0

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if o.maxPages > 0 && page >= o.maxPages {
			o.logger.Warn("archive page cap reached", zap.Int("max_pages", o.maxPages))
			break
		}

		o.logger.Info("fetching archive entries",
			zap.Int("page", page),
			zap.Int("from", page*PageSize),
			zap.Int("to", page*PageSize+PageSize),
		)

		res, err := client.FetchArchivePage(ctx, page)
		pages++
		if errors.Is(err, ErrNoMoreData) || (err == nil && (res == nil || len(res.Rows) == 0)) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if page == 0 {
				return nil, fmt.Errorf("fetching first archive page: %w", err)
			}
			o.logger.Warn("archive page failed, stopping", zap.Int("page", page), zap.Error(err))
			break
		}

		kept := addArchiveRows(cal, res.Rows, year, o.logger)
		o.logger.Info("archive page processed",
			zap.Int("page", page),
			zap.Int("rows", len(res.Rows)),
			zap.Int("kept", kept),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	o.logger.Info("archive calendar created",
		zap.Int("year", year),
		zap.Int("requests", pages),
		zap.Int("releases", cal.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return cal, nil
}

// addArchiveRows adds the rows of one page dated in year and returns how many were kept.
func addArchiveRows(cal *calendar.Calendar, rows [][]string, year int, logger *zap.Logger) int {
	kept := 0
	for i, cells := range rows {
		row, err := parseArchiveRow(cells)
		if err != nil {
			logger.Debug("skipping archive row", zap.Int("row", i), zap.Error(err))
			continue
		}
		if row.date.Year() != year {
			continue
		}
		cal.AddRelease(row.date.Month(), row.date.Day(), row.release())
		kept++
	}
	return kept
}

// parseArchiveRow decodes the cells [artist, album, type, genre, date, ...] of a record.
func parseArchiveRow(cells []string) (archiveRow, error) {
	if len(cells) <= cellDate {
		return archiveRow{}, fmt.Errorf("%w: %d cells", ErrMalformedRow, len(cells))
	}

	artists, err := ParseAnchors(cells[cellArtist])
	if err != nil {
		return archiveRow{}, fmt.Errorf("%w: artist cell: %v", ErrMalformedRow, err)
	}
	if len(artists) == 0 {
		return archiveRow{}, fmt.Errorf("%w: no artist link", ErrMalformedRow)
	}

	albums, err := ParseAnchors(cells[cellAlbum])
	if err != nil {
		return archiveRow{}, fmt.Errorf("%w: album cell: %v", ErrMalformedRow, err)
	}
	if len(albums) == 0 {
		return archiveRow{}, fmt.Errorf("%w: no album link", ErrMalformedRow)
	}

	date, err := parseArchiveDate(cells[cellDate])
	if err != nil {
		return archiveRow{}, err
	}

	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Text
	}

	return archiveRow{
		artist:      strings.Join(names, " / "),
		artistLink:  artists[0].Href,
		album:       albums[0].Text,
		albumLink:   albums[0].Href,
		releaseType: cells[cellReleaseType],
		genre:       cells[cellGenre],
		date:        date,
	}, nil
}

// parseArchiveDate parses dates such as "October 9th, 2024".
func parseArchiveDate(s string) (time.Time, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", ""))
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}

	month, ok := parseMonth(fields[0])
	if !ok {
		return time.Time{}, fmt.Errorf("%w: month %q", ErrBadDate, fields[0])
	}

	day, err := strconv.Atoi(trimOrdinal(fields[1]))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day %q", ErrBadDate, fields[1])
	}

	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: year %q", ErrBadDate, fields[2])
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Year() != year || date.Month() != month || date.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrBadDate, s)
	}
	return date, nil
}

func parseMonth(name string) (time.Month, bool) {
	for _, m := range calendar.Months() {
		if strings.EqualFold(m.String(), name) {
			return m, true
		}
	}
	return 0, false
}

// trimOrdinal must only see the day token: "August" also ends in "st".
func trimOrdinal(day string) string {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if trimmed, ok := strings.CutSuffix(day, suffix); ok {
			return trimmed
		}
	}
	return day
}
