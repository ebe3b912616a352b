package web

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/feeds"
	"golang.org/x/net/html"

	"github.com/reaper47/heavy-metal-notifier/internal/db"
)

const (
	feedTitle       = "Heavy Metal Releases"
	feedDescription = "The latest heavy metal album releases."
)

// feedHistory is the number of daily items a feed keeps.
const feedHistory = 12

// newFeedItem returns the item listing the releases of day for a feed.
func newFeedItem(hostURL string, feedID int, day time.Time, releases []ReleaseData) db.FeedItem {
	link := hostURL + dayPath(day)
	name := link
	if feedID > 0 {
		name += "#" + strconv.Itoa(feedID)
	}
	return db.FeedItem{
		CustomFeedID: feedID,
		Date:         day,
		Title:        "Heavy metal releases for " + day.Format(longDate),
		Link:         link,
		GUID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String(),
		Description:  releaseList(releases),
	}
}

// withItem puts item first in history, replacing any item of the same day,
// and keeps at most feedHistory items.
func withItem(history []db.FeedItem, item db.FeedItem) []db.FeedItem {
	day := item.Date.Format(time.DateOnly)
	items := []db.FeedItem{item}
	for _, old := range history {
		if old.Date.Format(time.DateOnly) != day {
			items = append(items, old)
		}
	}
	if len(items) > feedHistory {
		items = items[:feedHistory]
	}
	return items
}

// buildFeed returns a channel holding the given daily items, newest first.
func buildFeed(hostURL string, now time.Time, items []db.FeedItem) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       feedTitle,
		Link:        &feeds.Link{Href: hostURL + "/calendar"},
		Description: feedDescription,
		Created:     now,
	}

	for _, item := range items {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          item.GUID,
			Title:       item.Title,
			Link:        &feeds.Link{Href: item.Link},
			Description: item.Description,
			Created:     item.Date,
		})
	}
	return feed
}

// releaseList renders releases as an HTML list.
func releaseList(releases []ReleaseData) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, r := range releases {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(r.Artist))
		b.WriteString(" - ")
		if r.Links.YouTube != "" {
			b.WriteString(`<a href="` + html.EscapeString(r.Links.YouTube) + `">`)
			b.WriteString(html.EscapeString(r.Album))
			b.WriteString("</a>")
		} else {
			b.WriteString(html.EscapeString(r.Album))
		}
		if r.ReleaseType != "" {
			b.WriteString(" (" + html.EscapeString(r.ReleaseType) + ")")
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
