package web

import (
	"fmt"
	"time"

	"github.com/reaper47/heavy-metal-notifier/internal/db"
)

const longDate = "January 2, 2006"

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	CurrentPath string
}

// CalendarPageData contains data for the calendar page template.
type CalendarPageData struct {
	PageData
	Today     time.Time
	Month     time.Month
	Year      int
	Prev      string
	Next      string
	Weeks     [][]DayCell
	ShowToday bool
	Releases  []ReleaseData
}

// DayPageData contains data for the day page template.
type DayPageData struct {
	PageData
	Date     time.Time
	Prev     string
	Next     string
	Releases []ReleaseData
}

// DayCell is one square of the month grid. Day is zero for padding cells.
type DayCell struct {
	Day     int
	Count   int
	IsToday bool
	Link    string
}

// ReleaseData is a release as rendered in pages and JSON.
type ReleaseData struct {
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseType string `json:"releaseType,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Links       Links  `json:"links"`
}

// Links are the external pages of a release.
type Links struct {
	YouTube  string `json:"youtube"`
	Metallum string `json:"metallum,omitempty"`
	Bandcamp string `json:"bandcamp,omitempty"`
}

// CustomFeedData is the address of a saved custom feed.
type CustomFeedData struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// ArtistsData lists the known artists and genres.
type ArtistsData struct {
	Artists []string `json:"artists"`
	Genres  []string `json:"genres"`
}

func newReleaseData(releases []db.Release) []ReleaseData {
	data := make([]ReleaseData, len(releases))
	for i, r := range releases {
		data[i] = ReleaseData{
			Artist:      r.Artist,
			Album:       r.Album,
			ReleaseType: value(r.ReleaseType),
			Genre:       value(r.Genre),
			Links: Links{
				YouTube:  r.URLYouTube,
				Metallum: value(r.URLMetallum),
				Bandcamp: value(r.URLBandcamp),
			},
		}
	}
	return data
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// dayPath returns the page address of a date.
func dayPath(t time.Time) string {
	return fmt.Sprintf("/calendar/%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}

// monthPath returns the page address of a month.
func monthPath(t time.Time) string {
	return fmt.Sprintf("/calendar/%d/%d", t.Year(), int(t.Month()))
}

// monthGrid lays out a month in weeks starting on Sunday.
func monthGrid(year int, month time.Month, counts map[int]int, today time.Time) [][]DayCell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()

	var weeks [][]DayCell
	week := make([]DayCell, int(first.Weekday()), 7)
	for day := 1; day <= days; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		week = append(week, DayCell{
			Day:     day,
			Count:   counts[day],
			IsToday: date.Year() == today.Year() && date.YearDay() == today.YearDay(),
			Link:    dayPath(date),
		})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]DayCell, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, DayCell{})
		}
		weeks = append(weeks, week)
	}
	return weeks
}
