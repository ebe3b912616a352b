package web

import (
	"slices"
	"strings"
	"unicode"

	"github.com/reaper47/heavy-metal-notifier/internal/db"
)

const keywordSep = "@"

// feedFilter selects the releases of a custom feed. A release passes when its
// artist is one of bands or its genre contains one of the genre keywords.
type feedFilter struct {
	bands  []string
	genres []string
}

// newFeedFilter normalizes the bands and genres picked for a custom feed.
// A list holding "All" or "None" is cleared. ok is false when both lists are
// empty, in which case the unfiltered feed applies.
func newFeedFilter(bands, genres []string) (f feedFilter, ok bool) {
	f.bands = normalizeList(bands, func(s string) string { return s })
	f.genres = normalizeList(genres, genreKeyword)
	return f, len(f.bands) > 0 || len(f.genres) > 0
}

// parseFeedFilter rebuilds the filter of a stored custom feed.
func parseFeedFilter(feed *db.CustomFeed) feedFilter {
	return feedFilter{
		bands:  splitKeywords(feed.Bands),
		genres: splitKeywords(feed.Genres),
	}
}

// key returns the lists in their stored form.
func (f feedFilter) key() (bands, genres string) {
	return strings.Join(f.bands, keywordSep), strings.Join(f.genres, keywordSep)
}

func (f feedFilter) matches(r ReleaseData) bool {
	if slices.Contains(f.bands, strings.ToLower(r.Artist)) {
		return true
	}
	return r.Genre != "" && containsAnyKeyword(r.Genre, f.genres)
}

func (f feedFilter) apply(releases []ReleaseData) []ReleaseData {
	var kept []ReleaseData
	for _, r := range releases {
		if f.matches(r) {
			kept = append(kept, r)
		}
	}
	return kept
}

// containsAnyKeyword reports whether a word of the genre contains one of the
// keywords. " metal" is dropped and words are split on whitespace or on ','
// and ';', so "Progressive Viking/Black Metal" matches "black".
func containsAnyKeyword(genre string, keywords []string) bool {
	words := strings.FieldsFunc(genreKeyword(strings.ToLower(genre)), func(c rune) bool {
		return unicode.IsSpace(c) || c == ',' || c == ';'
	})
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		for _, word := range words {
			if strings.Contains(word, keyword) {
				return true
			}
		}
	}
	return false
}

func genreKeyword(genre string) string {
	return strings.TrimSpace(strings.ReplaceAll(genre, " metal", ""))
}

// normalizeList lower-cases and trims the values, applies fn, then sorts and
// dedups them so that the same choice always maps to the same custom feed.
func normalizeList(values []string, fn func(string) string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "all" || v == "none" {
			return nil
		}
		v = fn(strings.ReplaceAll(v, keywordSep, ""))
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, keywordSep)
}
