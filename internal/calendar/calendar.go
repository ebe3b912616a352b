// Package calendar provides the in-memory release calendar shared by the scrapers,
// the reconciler and the persistence layer.
package calendar

import (
	"slices"
	"strings"
	"time"
)

// Metadata holds the extra fields only the archive source provides.
type Metadata struct {
	ArtistLink  string
	AlbumLink   string
	ReleaseType string
	Genre       string
}

// Release is one album announcement by an artist.
type Release struct {
	Artist   string
	Album    string
	Metadata *Metadata // nil for wiki-sourced releases
}

// NewRelease creates a release with a normalized album title.
func NewRelease(artist, album string) Release {
	return Release{
		Artist: artist,
		Album:  NormalizeAlbum(album),
	}
}

// WithMetadata returns a copy of the release carrying the given metadata.
func (r Release) WithMetadata(m Metadata) Release {
	r.Metadata = &m
	return r
}

// Equal reports whether two releases are structurally equal, metadata included.
func (r Release) Equal(other Release) bool {
	if r.Artist != other.Artist || r.Album != other.Album {
		return false
	}
	if r.Metadata == nil || other.Metadata == nil {
		return r.Metadata == nil && other.Metadata == nil
	}
	return *r.Metadata == *other.Metadata
}

// NormalizeAlbum collapses whitespace runs and drops any bracketed qualifier
// such as "[remix album]" from an album title.
func NormalizeAlbum(album string) string {
	album = strings.Join(strings.Fields(album), " ")
	if i := strings.Index(album, "["); i >= 0 {
		album = strings.TrimSpace(album[:i])
	}
	return album
}

// Calendar holds a year's releases indexed by month and day of month.
//
// Day numbers are stored as given; no calendar arithmetic is applied.
type Calendar struct {
	Year int
	data map[time.Month]map[int][]Release
}

// New creates a calendar for the year with every month present and no days.
func New(year int) *Calendar {
	data := make(map[time.Month]map[int][]Release, 12)
	for _, m := range Months() {
		data[m] = make(map[int][]Release)
	}
	return &Calendar{Year: year, data: data}
}

// Months returns the twelve months in calendar order.
func Months() []time.Month {
	return []time.Month{
		time.January, time.February, time.March, time.April,
		time.May, time.June, time.July, time.August,
		time.September, time.October, time.November, time.December,
	}
}

// AddRelease appends the release to the day unless an equal release is already there.
func (c *Calendar) AddRelease(month time.Month, day int, release Release) {
	days, ok := c.data[month]
	if !ok {
		days = make(map[int][]Release)
		c.data[month] = days
	}

	for _, existing := range days[day] {
		if existing.Equal(release) {
			return
		}
	}
	days[day] = append(days[day], release)
}

// Releases returns a copy of the releases stored for the day.
// The boolean is false when the day has no entry.
func (c *Calendar) Releases(month time.Month, day int) ([]Release, bool) {
	releases, ok := c.data[month][day]
	if !ok {
		return nil, false
	}
	return slices.Clone(releases), true
}

// HasMonth reports whether the month key is present.
func (c *Calendar) HasMonth(month time.Month) bool {
	_, ok := c.data[month]
	return ok
}

// Days returns the populated days of a month in ascending order.
func (c *Calendar) Days(month time.Month) []int {
	days := make([]int, 0, len(c.data[month]))
	for day := range c.data[month] {
		days = append(days, day)
	}
	slices.Sort(days)
	return days
}

// Len returns the total number of releases.
func (c *Calendar) Len() int {
	n := 0
	for _, days := range c.data {
		for _, releases := range days {
			n += len(releases)
		}
	}
	return n
}

// Each calls fn for every release, ordered by month, then day, then insertion.
func (c *Calendar) Each(fn func(month time.Month, day int, release Release)) {
	for _, month := range c.months() {
		for _, day := range c.Days(month) {
			for _, release := range c.data[month][day] {
				fn(month, day, release)
			}
		}
	}
}

// Merge returns a new calendar holding the releases of c followed by those of other.
// Neither input is modified.
func (c *Calendar) Merge(other *Calendar) *Calendar {
	merged := New(c.Year)
	c.Each(merged.AddRelease)
	if other != nil {
		other.Each(merged.AddRelease)
	}
	return merged
}

// months returns every month key present, including any outside January-December.
func (c *Calendar) months() []time.Month {
	months := make([]time.Month, 0, len(c.data))
	for m := range c.data {
		months = append(months, m)
	}
	slices.Sort(months)
	return months
}
