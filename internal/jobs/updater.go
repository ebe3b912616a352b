// Package jobs runs the periodic calendar update.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reaper47/heavy-metal-notifier/internal/calendar"
	"github.com/reaper47/heavy-metal-notifier/internal/links"
	"github.com/reaper47/heavy-metal-notifier/internal/scraper"
)

// Sources fetches the raw release listings.
type Sources interface {
	scraper.WikiFetcher
	scraper.ArchiveFetcher
}

// CalendarStore persists a merged calendar.
type CalendarStore interface {
	Replace(ctx context.Context, cal *calendar.Calendar) error
}

// Enricher adds external links to stored artists.
type Enricher interface {
	Enrich(ctx context.Context) (links.Result, error)
}

// Summary describes one update run.
type Summary struct {
	RunID        uuid.UUID
	Year         int
	ArchiveCount int
	WikiCount    int
	MergedCount  int
	Links        links.Result
	Duration     time.Duration
}

// Updater scrapes both sources, merges them and stores the result.
type Updater struct {
	sources    Sources
	store      CalendarStore
	enricher   Enricher
	now        func() time.Time
	logger     *zap.Logger
	scrapeOpts []scraper.Option
}

// Option configures an Updater.
type Option func(*Updater)

// WithEnricher sets the link enrichment run after each stored calendar.
func WithEnricher(e Enricher) Option {
	return func(u *Updater) {
		u.enricher = e
	}
}

// WithClock overrides the clock that picks the year to update.
func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		u.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(u *Updater) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithScrapeOptions passes options to both extractors.
func WithScrapeOptions(opts ...scraper.Option) Option {
	return func(u *Updater) {
		u.scrapeOpts = append(u.scrapeOpts, opts...)
	}
}

// NewUpdater creates an Updater.
func NewUpdater(sources Sources, store CalendarStore, opts ...Option) *Updater {
	u := &Updater{
		sources: sources,
		store:   store,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run updates the calendar of the current year.
// Nothing is stored unless both sources were scraped.
func (u *Updater) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: uuid.New(), Year: u.now().Year()}
	logger := u.logger.With(zap.String("run_id", sum.RunID.String()), zap.Int("year", sum.Year))
	logger.Info("calendar update started")

	got, err := u.collect(ctx, sum.Year, logger)
	if err != nil {
		logger.Error("calendar update failed", zap.Error(err))
		return nil, err
	}
	merged := got.Merged
	sum.ArchiveCount = got.Archive.Len()
	sum.WikiCount = got.Wiki.Len()
	sum.MergedCount = merged.Len()

	if err := u.store.Replace(ctx, merged); err != nil {
		logger.Error("storing calendar failed", zap.Error(err))
		return nil, fmt.Errorf("storing calendar: %w", err)
	}
	logger.Info("calendar stored",
		zap.Int("archive", sum.ArchiveCount),
		zap.Int("wiki", sum.WikiCount),
		zap.Int("merged", sum.MergedCount),
	)

	if u.enricher != nil {
		res, err := u.enricher.Enrich(ctx)
		if err != nil {
			logger.Warn("link enrichment failed", zap.Error(err))
		}
		sum.Links = res
	}

	sum.Duration = time.Since(start)
	logger.Info("calendar update finished", zap.Duration("elapsed", sum.Duration))
	return sum, nil
}

// Collected holds the calendars gathered for one year.
type Collected struct {
	Archive *calendar.Calendar
	Wiki    *calendar.Calendar
	Merged  *calendar.Calendar
}

// Collect scrapes both sources for a year and merges them without storing anything.
func (u *Updater) Collect(ctx context.Context, year int) (*Collected, error) {
	return u.collect(ctx, year, u.logger.With(zap.Int("year", year)))
}

// collect runs both extractors concurrently.
func (u *Updater) collect(ctx context.Context, year int, logger *zap.Logger) (*Collected, error) {
	opts := append([]scraper.Option{scraper.WithLogger(logger)}, u.scrapeOpts...)
	got := &Collected{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cal, err := scraper.ScrapeArchive(gctx, u.sources, year, opts...)
		if err != nil {
			return fmt.Errorf("scraping archive: %w", err)
		}
		got.Archive = cal
		return nil
	})
	g.Go(func() error {
		cal, err := scraper.ScrapeWiki(gctx, u.sources, year, opts...)
		if err != nil {
			return fmt.Errorf("scraping wiki: %w", err)
		}
		got.Wiki = cal
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Archive first so that its entries lead each day.
	got.Merged = calendar.Reconcile(got.Archive, got.Wiki)
	return got, nil
}
