package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/reaper47/heavy-metal-notifier/internal/db"
)

// ReleaseStore reads stored releases.
type ReleaseStore interface {
	ByDate(ctx context.Context, year int, month time.Month, day int) ([]db.Release, error)
	CountsByMonth(ctx context.Context, year int, month time.Month) (map[int]int, error)
}

// ArtistLister lists known artists.
type ArtistLister interface {
	Names(ctx context.Context) ([]string, error)
	Genres(ctx context.Context) ([]string, error)
}

// FeedStore keeps custom feeds and the daily items of every feed.
type FeedStore interface {
	CustomFeedID(ctx context.Context, bands, genres string) (int, error)
	CustomFeed(ctx context.Context, id int) (*db.CustomFeed, error)
	SaveItem(ctx context.Context, item db.FeedItem) error
	RecentItems(ctx context.Context, customFeedID, limit int) ([]db.FeedItem, error)
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	releases  ReleaseStore
	artists   ArtistLister
	feeds     FeedStore
	templates *Templates
	hostURL   string
	now       func() time.Time
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg ServerConfig, templates *Templates) *Handlers {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		releases:  cfg.Releases,
		artists:   cfg.Artists,
		feeds:     cfg.Feeds,
		templates: templates,
		hostURL:   cfg.HostURL,
		now:       now,
		logger:    logger,
	}
}

// Index redirects to the calendar (GET /).
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/calendar", http.StatusFound)
}

// Health reports that the server is up (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Calendar shows the current month and today's releases (GET /calendar).
func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	h.renderMonth(w, r, h.today())
}

// Month shows the grid of a month (GET /calendar/{year}/{month}).
func (h *Handlers) Month(w http.ResponseWriter, r *http.Request) {
	first, ok := parseDate(chi.URLParam(r, "year"), chi.URLParam(r, "month"), "1")
	if !ok {
		http.Error(w, "Invalid month", http.StatusBadRequest)
		return
	}
	h.renderMonth(w, r, first)
}

// renderMonth renders the grid of the month of date. Today's releases are
// listed when it is the current month.
func (h *Handlers) renderMonth(w http.ResponseWriter, r *http.Request, date time.Time) {
	today := h.today()
	year, month := date.Year(), date.Month()

	counts, err := h.releases.CountsByMonth(r.Context(), year, month)
	if err != nil {
		h.serverError(w, "counting releases", err)
		return
	}

	data := CalendarPageData{
		PageData: PageData{
			Title:       date.Format("January 2006") + " releases",
			CurrentPath: r.URL.Path,
		},
		Today: today,
		Month: month,
		Year:  year,
		Prev:  monthPath(time.Date(year, month-1, 1, 0, 0, 0, 0, time.UTC)),
		Next:  monthPath(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)),
		Weeks: monthGrid(year, month, counts, today),
	}

	if year == today.Year() && month == today.Month() {
		releases, err := h.releases.ByDate(r.Context(), today.Year(), today.Month(), today.Day())
		if err != nil {
			h.serverError(w, "loading releases", err)
			return
		}
		data.ShowToday = true
		data.Releases = newReleaseData(releases)
	}
	h.render(w, "calendar", data)
}

// Day shows the releases of a date (GET /calendar/{year}/{month}/{day}).
// With ?format=json the releases are returned as JSON.
func (h *Handlers) Day(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(chi.URLParam(r, "year"), chi.URLParam(r, "month"), chi.URLParam(r, "day"))
	if !ok {
		http.Error(w, "Invalid date", http.StatusBadRequest)
		return
	}

	releases, err := h.releases.ByDate(r.Context(), date.Year(), date.Month(), date.Day())
	if err != nil {
		h.serverError(w, "loading releases", err)
		return
	}
	data := newReleaseData(releases)

	if r.URL.Query().Get("format") == "json" {
		h.writeJSON(w, data)
		return
	}

	h.render(w, "day", DayPageData{
		PageData: PageData{
			Title:       "Releases for " + date.Format(longDate),
			CurrentPath: r.URL.Path,
		},
		Date:     date,
		Prev:     dayPath(date.AddDate(0, 0, -1)),
		Next:     dayPath(date.AddDate(0, 0, 1)),
		Releases: data,
	})
}

// Artists lists the known artists and genres as JSON (GET /artists).
func (h *Handlers) Artists(w http.ResponseWriter, r *http.Request) {
	names, err := h.artists.Names(r.Context())
	if err != nil {
		h.serverError(w, "listing artists", err)
		return
	}
	genres, err := h.artists.Genres(r.Context())
	if err != nil {
		h.serverError(w, "listing genres", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	if genres == nil {
		genres = []string{}
	}
	h.writeJSON(w, ArtistsData{Artists: names, Genres: genres})
}

// Feed serves the daily release items of the last days as RSS
// (GET /calendar/feed.xml). With ?id=N the releases are filtered by the
// custom feed N.
func (h *Handlers) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := h.today()

	feedID := 0
	var filter *feedFilter
	if v := r.URL.Query().Get("id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id < 1 {
			http.Error(w, "Invalid feed id", http.StatusBadRequest)
			return
		}
		custom, err := h.feeds.CustomFeed(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Feed not found", http.StatusNotFound)
			return
		}
		if err != nil {
			h.serverError(w, "loading custom feed", err)
			return
		}
		f := parseFeedFilter(custom)
		feedID, filter = id, &f
	}

	releases, err := h.releases.ByDate(ctx, today.Year(), today.Month(), today.Day())
	if err != nil {
		h.serverError(w, "loading releases", err)
		return
	}
	data := newReleaseData(releases)
	if filter != nil {
		data = filter.apply(data)
	}

	items, err := h.feeds.RecentItems(ctx, feedID, feedHistory)
	if err != nil {
		h.serverError(w, "loading feed items", err)
		return
	}
	if len(data) > 0 {
		item := newFeedItem(h.hostURL, feedID, today, data)
		if err := h.feeds.SaveItem(ctx, item); err != nil {
			h.logger.Warn("saving feed item", zap.Int("feed", feedID), zap.Error(err))
		}
		items = withItem(items, item)
	}

	rss, err := buildFeed(h.hostURL, today, items).ToRss()
	if err != nil {
		h.serverError(w, "rendering feed", err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write([]byte(rss))
}

// CreateFeed saves a custom feed from the bands and genres form lists and
// returns its address (POST /calendar/feed.xml). A choice that filters
// nothing redirects to the unfiltered feed.
func (h *Handlers) CreateFeed(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	filter, ok := newFeedFilter(r.PostForm["bands"], r.PostForm["genres"])
	if !ok {
		http.Redirect(w, r, "/calendar/feed.xml", http.StatusSeeOther)
		return
	}

	bands, genres := filter.key()
	id, err := h.feeds.CustomFeedID(r.Context(), bands, genres)
	if err != nil {
		h.serverError(w, "saving custom feed", err)
		return
	}

	h.writeJSON(w, CustomFeedData{
		ID:  id,
		URL: fmt.Sprintf("%s/calendar/feed.xml?id=%d", h.hostURL, id),
	})
}

func (h *Handlers) today() time.Time {
	now := h.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (h *Handlers) render(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		h.serverError(w, "rendering "+page, err)
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", zap.Error(err))
	}
}

func (h *Handlers) serverError(w http.ResponseWriter, what string, err error) {
	h.logger.Error(what, zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// parseDate validates path values, rejecting dates such as 2024/2/30.
func parseDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 || y > 9999 {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, false
	}

	date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if date.Day() != d || date.Month() != time.Month(m) {
		return time.Time{}, false
	}
	return date, true
}
