package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReleaseRepository handles release queries.
type ReleaseRepository struct {
	pool *pgxpool.Pool
}

// ByDate returns the releases of a day ordered by artist and album.
func (r *ReleaseRepository) ByDate(ctx context.Context, year int, month time.Month, day int) ([]Release, error) {
	query := `
		SELECT r.id, r.year, r.month, r.day, a.id, a.name, r.album, r.release_type,
		       a.genre, r.url_youtube, r.url_metallum, a.url_bandcamp
		FROM releases r
		JOIN artists a ON a.id = r.artist_id
		WHERE r.year = $1 AND r.month = $2 AND r.day = $3
		ORDER BY a.name, r.album
	`
	rows, err := r.pool.Query(ctx, query, year, int(month), day)
	if err != nil {
		return nil, fmt.Errorf("querying releases: %w", err)
	}
	defer rows.Close()

	var releases []Release
	for rows.Next() {
		var rel Release
		if err := rows.Scan(
			&rel.ID,
			&rel.Year,
			&rel.Month,
			&rel.Day,
			&rel.ArtistID,
			&rel.Artist,
			&rel.Album,
			&rel.ReleaseType,
			&rel.Genre,
			&rel.URLYouTube,
			&rel.URLMetallum,
			&rel.URLBandcamp,
		); err != nil {
			return nil, fmt.Errorf("scanning release: %w", err)
		}
		releases = append(releases, rel)
	}
	return releases, rows.Err()
}

// CountsByMonth returns the number of releases per day of a month.
// Days without releases are absent from the map.
func (r *ReleaseRepository) CountsByMonth(ctx context.Context, year int, month time.Month) (map[int]int, error) {
	query := `
		SELECT day, COUNT(*)
		FROM releases
		WHERE year = $1 AND month = $2
		GROUP BY day
	`
	rows, err := r.pool.Query(ctx, query, year, int(month))
	if err != nil {
		return nil, fmt.Errorf("counting releases: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var day, n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[day] = n
	}
	return counts, rows.Err()
}
