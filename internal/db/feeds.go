package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedRepository handles custom feeds and the RSS items published for them.
type FeedRepository struct {
	pool *pgxpool.Pool
}

// CustomFeedID returns the id of the custom feed with the given filters,
// creating it on first use.
func (r *FeedRepository) CustomFeedID(ctx context.Context, bands, genres string) (int, error) {
	query := `
		INSERT INTO custom_feeds (bands, genres)
		VALUES ($1, $2)
		ON CONFLICT (bands, genres) DO UPDATE SET bands = EXCLUDED.bands
		RETURNING id
	`
	var id int
	if err := r.pool.QueryRow(ctx, query, bands, genres).Scan(&id); err != nil {
		return 0, fmt.Errorf("saving custom feed: %w", err)
	}
	return id, nil
}

// CustomFeed returns a custom feed by id.
func (r *FeedRepository) CustomFeed(ctx context.Context, id int) (*CustomFeed, error) {
	query := `SELECT id, bands, genres FROM custom_feeds WHERE id = $1`

	var feed CustomFeed
	err := r.pool.QueryRow(ctx, query, id).Scan(&feed.ID, &feed.Bands, &feed.Genres)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying custom feed: %w", err)
	}
	return &feed, nil
}

// SaveItem stores the item of a day, replacing the one already saved for
// that day and feed.
func (r *FeedRepository) SaveItem(ctx context.Context, item FeedItem) error {
	query := `
		INSERT INTO feeds (custom_feed_id, date, title, link, guid, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (custom_feed_id, date) DO UPDATE SET
			title = EXCLUDED.title,
			link = EXCLUDED.link,
			guid = EXCLUDED.guid,
			description = EXCLUDED.description
	`
	_, err := r.pool.Exec(ctx, query,
		item.CustomFeedID,
		item.Date,
		item.Title,
		item.Link,
		item.GUID,
		item.Description,
	)
	if err != nil {
		return fmt.Errorf("saving feed item: %w", err)
	}
	return nil
}

// RecentItems returns up to limit items of a feed, newest first.
func (r *FeedRepository) RecentItems(ctx context.Context, customFeedID, limit int) ([]FeedItem, error) {
	query := `
		SELECT custom_feed_id, date, title, link, guid, description
		FROM feeds
		WHERE custom_feed_id = $1
		ORDER BY date DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, customFeedID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying feed items: %w", err)
	}
	defer rows.Close()

	var items []FeedItem
	for rows.Next() {
		var item FeedItem
		if err := rows.Scan(
			&item.CustomFeedID,
			&item.Date,
			&item.Title,
			&item.Link,
			&item.GUID,
			&item.Description,
		); err != nil {
			return nil, fmt.Errorf("scanning feed item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
