package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ArtistRepository handles artist database operations.
type ArtistRepository struct {
	pool *pgxpool.Pool
}

// WithoutBandcamp returns the artists whose Bandcamp page is unknown, ordered by name.
func (r *ArtistRepository) WithoutBandcamp(ctx context.Context) ([]Artist, error) {
	query := `
		SELECT id, name, genre, url_bandcamp, url_metallum
		FROM artists
		WHERE url_bandcamp IS NULL
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying artists: %w", err)
	}
	defer rows.Close()

	var artists []Artist
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.Genre, &a.URLBandcamp, &a.URLMetallum); err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// SetBandcamp stores the Bandcamp URL of an artist.
func (r *ArtistRepository) SetBandcamp(ctx context.Context, id int, url string) error {
	query := `
		UPDATE artists
		SET url_bandcamp = $2
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, url)
	if err != nil {
		return fmt.Errorf("updating bandcamp url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Names returns every artist name in alphabetical order.
func (r *ArtistRepository) Names(ctx context.Context) ([]string, error) {
	return r.strings(ctx, `SELECT name FROM artists ORDER BY name`)
}

// Genres returns the distinct known genres in alphabetical order.
func (r *ArtistRepository) Genres(ctx context.Context) ([]string, error) {
	return r.strings(ctx, `
		SELECT DISTINCT genre
		FROM artists
		WHERE genre IS NOT NULL AND genre <> ''
		ORDER BY genre
	`)
}

func (r *ArtistRepository) strings(ctx context.Context, query string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying artists: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning artist: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
