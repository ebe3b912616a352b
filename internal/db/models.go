package db

import (
	"time"

	"github.com/google/uuid"
)

// Artist represents a band or project.
type Artist struct {
	ID          int
	Name        string
	Genre       *string // nullable
	URLBandcamp *string // nullable
	URLMetallum *string // nullable
}

// Release represents a stored release joined with its artist.
type Release struct {
	ID          uuid.UUID
	Year        int
	Month       int
	Day         int
	ArtistID    int
	Artist      string
	Album       string
	ReleaseType *string // nullable
	Genre       *string // nullable
	URLYouTube  string
	URLMetallum *string // nullable
	URLBandcamp *string // nullable
}

// CustomFeed is a saved release filter. Bands and Genres are lower-cased
// lists joined with "@"; an empty list does not filter.
type CustomFeed struct {
	ID     int
	Bands  string
	Genres string
}

// FeedItem is the RSS item published for one day of a feed.
type FeedItem struct {
	CustomFeedID int // 0 for the unfiltered feed
	Date         time.Time
	Title        string
	Link         string
	GUID         string
	Description  string
}
