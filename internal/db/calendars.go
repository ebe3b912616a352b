package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reaper47/heavy-metal-notifier/internal/calendar"
)

const youtubeSearchURL = "https://www.youtube.com/results?search_query="

// CalendarRepository stores whole calendars.
type CalendarRepository struct {
	pool *pgxpool.Pool
}

// Replace swaps the stored releases of the calendar's year for the ones in cal.
// Artists are created on first sight; the genre and archive link of an existing
// artist are only filled in when still unknown.
func (r *CalendarRepository) Replace(ctx context.Context, cal *calendar.Calendar) error {
	batch := newCalendarBatch(cal)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM releases WHERE year = $1`, cal.Year); err != nil {
		return fmt.Errorf("deleting releases of %d: %w", cal.Year, err)
	}

	if len(batch.artists.names) > 0 {
		artistsQuery := `
			INSERT INTO artists (name, genre, url_metallum)
			SELECT * FROM unnest($1::text[], $2::text[], $3::text[])
			ON CONFLICT (name) DO UPDATE SET
				genre = COALESCE(artists.genre, EXCLUDED.genre),
				url_metallum = COALESCE(artists.url_metallum, EXCLUDED.url_metallum)
		`
		_, err = tx.Exec(ctx, artistsQuery, batch.artists.names, batch.artists.genres, batch.artists.metallum)
		if err != nil {
			return fmt.Errorf("upserting artists: %w", err)
		}
	}

	if len(batch.releases.ids) > 0 {
		releasesQuery := `
			INSERT INTO releases (id, year, month, day, artist_id, album, release_type, url_youtube, url_metallum)
			SELECT r.id, $1, r.month, r.day, a.id, r.album, r.release_type, r.url_youtube, r.url_metallum
			FROM unnest($2::uuid[], $3::int[], $4::int[], $5::text[], $6::text[], $7::text[], $8::text[], $9::text[])
				AS r(id, month, day, artist, album, release_type, url_youtube, url_metallum)
			JOIN artists a ON a.name = r.artist
		`
		_, err = tx.Exec(ctx, releasesQuery,
			cal.Year,
			batch.releases.ids,
			batch.releases.months,
			batch.releases.days,
			batch.releases.artists,
			batch.releases.albums,
			batch.releases.types,
			batch.releases.youtube,
			batch.releases.metallum,
		)
		if err != nil {
			return fmt.Errorf("inserting releases: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// calendarBatch holds a calendar as column arrays ready for unnest.
type calendarBatch struct {
	artists struct {
		names    []string
		genres   []*string
		metallum []*string
	}
	releases struct {
		ids      []uuid.UUID
		months   []int
		days     []int
		artists  []string
		albums   []string
		types    []*string
		youtube  []string
		metallum []*string
	}
}

// newCalendarBatch flattens cal in iteration order. Each artist appears once,
// carrying the first non-empty genre and archive link seen for it.
func newCalendarBatch(cal *calendar.Calendar) *calendarBatch {
	b := &calendarBatch{}
	artistIndex := make(map[string]int)

	cal.Each(func(month time.Month, day int, rel calendar.Release) {
		var genre, artistLink, albumLink, releaseType *string
		if m := rel.Metadata; m != nil {
			genre = nonEmpty(m.Genre)
			artistLink = nonEmpty(m.ArtistLink)
			albumLink = nonEmpty(m.AlbumLink)
			releaseType = nonEmpty(m.ReleaseType)
		}

		if i, ok := artistIndex[rel.Artist]; ok {
			if b.artists.genres[i] == nil {
				b.artists.genres[i] = genre
			}
			if b.artists.metallum[i] == nil {
				b.artists.metallum[i] = artistLink
			}
		} else {
			artistIndex[rel.Artist] = len(b.artists.names)
			b.artists.names = append(b.artists.names, rel.Artist)
			b.artists.genres = append(b.artists.genres, genre)
			b.artists.metallum = append(b.artists.metallum, artistLink)
		}

		b.releases.ids = append(b.releases.ids, uuid.New())
		b.releases.months = append(b.releases.months, int(month))
		b.releases.days = append(b.releases.days, day)
		b.releases.artists = append(b.releases.artists, rel.Artist)
		b.releases.albums = append(b.releases.albums, rel.Album)
		b.releases.types = append(b.releases.types, releaseType)
		b.releases.youtube = append(b.releases.youtube, YouTubeSearchURL(rel.Artist, rel.Album))
		b.releases.metallum = append(b.releases.metallum, albumLink)
	})
	return b
}

// YouTubeSearchURL returns a YouTube search for the full album.
func YouTubeSearchURL(artist, album string) string {
	return youtubeSearchURL + url.QueryEscape(artist+" "+album+" full album")
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
