package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reaper47/heavy-metal-notifier/internal/db"
)

func TestMonthGrid(t *testing.T) {
	// March 2024 starts on a Friday and has 31 days.
	got := monthGrid(2024, time.March, map[int]int{15: 2}, today())

	require.Len(t, got, 6)
	for _, week := range got {
		assert.Len(t, week, 7)
	}

	assert.Equal(t, DayCell{}, got[0][4])
	assert.Equal(t, 1, got[0][5].Day)
	assert.Equal(t, DayCell{Day: 15, Count: 2, IsToday: true, Link: "/calendar/2024/3/15"}, got[2][5])
	assert.Equal(t, 31, got[5][0].Day)
	assert.Equal(t, DayCell{}, got[5][1])
}

func TestMonthGrid_StartsOnSunday(t *testing.T) {
	// September 2024 starts on a Sunday and has 30 days.
	got := monthGrid(2024, time.September, nil, today())

	require.Len(t, got, 5)
	assert.Equal(t, 1, got[0][0].Day)
	assert.False(t, got[0][0].IsToday)
	assert.Equal(t, 30, got[4][1].Day)
}

func TestNewFeedItem(t *testing.T) {
	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	releases := []ReleaseData{{Artist: "A", Album: "<B>"}}

	a := newFeedItem("https://metal.example.com", 0, day, releases)
	b := newFeedItem("https://metal.example.com", 0, day, releases)

	assert.Equal(t, a.GUID, b.GUID)
	assert.Equal(t, "<ul><li>A - &lt;B&gt;</li></ul>", a.Description)
	assert.Equal(t, "https://metal.example.com/calendar/2024/3/15", a.Link)

	assert.NotEqual(t, a.GUID, newFeedItem("https://metal.example.com", 0, day.AddDate(0, 0, 1), releases).GUID)
	assert.NotEqual(t, a.GUID, newFeedItem("https://metal.example.com", 4, day, releases).GUID)
}

func TestBuildFeed(t *testing.T) {
	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	items := []db.FeedItem{
		newFeedItem("https://metal.example.com", 0, now, []ReleaseData{{Artist: "A", Album: "B"}}),
		newFeedItem("https://metal.example.com", 0, now.AddDate(0, 0, -1), []ReleaseData{{Artist: "C", Album: "D"}}),
	}

	feed := buildFeed("https://metal.example.com", now, items)

	require.Len(t, feed.Items, 2)
	assert.Equal(t, items[0].GUID, feed.Items[0].Id)
	assert.Equal(t, items[1].Link, feed.Items[1].Link.Href)
	assert.Equal(t, items[1].Date, feed.Items[1].Created)
	assert.Equal(t, "https://metal.example.com/calendar", feed.Link.Href)
}

func TestWithItem(t *testing.T) {
	day := func(d int) db.FeedItem {
		return db.FeedItem{Date: time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC), Title: "old"}
	}

	t.Run("prepends", func(t *testing.T) {
		got := withItem([]db.FeedItem{day(14), day(13)}, day(15))

		require.Len(t, got, 3)
		assert.Equal(t, 15, got[0].Date.Day())
		assert.Equal(t, 13, got[2].Date.Day())
	})

	t.Run("replaces the same day", func(t *testing.T) {
		fresh := day(15)
		fresh.Title = "new"

		got := withItem([]db.FeedItem{day(15), day(14)}, fresh)

		require.Len(t, got, 2)
		assert.Equal(t, "new", got[0].Title)
		assert.Equal(t, 14, got[1].Date.Day())
	})

	t.Run("caps the history", func(t *testing.T) {
		var history []db.FeedItem
		for d := 20; d > 0; d-- {
			history = append(history, day(d))
		}

		got := withItem(history, day(21))

		require.Len(t, got, feedHistory)
		assert.Equal(t, 21, got[0].Date.Day())
		assert.Equal(t, 10, got[feedHistory-1].Date.Day())
	})
}

func TestMonthPath(t *testing.T) {
	assert.Equal(t, "/calendar/2024/12", monthPath(time.Date(2025, time.January, 0, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "/calendar/2024/3", monthPath(today()))
}
