package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/reaper47/heavy-metal-notifier/internal/calendar"
	"github.com/reaper47/heavy-metal-notifier/internal/config"
	"github.com/reaper47/heavy-metal-notifier/internal/db"
	"github.com/reaper47/heavy-metal-notifier/internal/jobs"
	"github.com/reaper47/heavy-metal-notifier/internal/links"
	"github.com/reaper47/heavy-metal-notifier/internal/scraper"
	"github.com/reaper47/heavy-metal-notifier/internal/web"
	webfs "github.com/reaper47/heavy-metal-notifier/web"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "starts the web server and the update schedule",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			database, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			client := newClient(cfg, logger)
			enricher := links.New(database.Artists(), client,
				links.WithEnabled(cfg.IsProd),
				links.WithLogger(logger),
			)
			updater := jobs.NewUpdater(client, database.Calendars(),
				jobs.WithEnricher(enricher),
				jobs.WithLogger(logger),
			)

			scheduler, err := jobs.NewScheduler(updater, cfg.Schedule, logger)
			if err != nil {
				return err
			}
			if err := scheduler.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stop()
				scheduler.Stop()
			}()

			templates, err := fs.Sub(webfs.TemplatesFS, "templates")
			if err != nil {
				return fmt.Errorf("creating templates filesystem: %w", err)
			}
			static, err := fs.Sub(webfs.StaticFS, "static")
			if err != nil {
				return fmt.Errorf("creating static filesystem: %w", err)
			}

			server, err := web.NewServer(web.ServerConfig{
				Addr:        cfg.Addr(),
				HostURL:     cfg.HostURL,
				TemplatesFS: templates,
				StaticFS:    static,
				Releases:    database.Releases(),
				Artists:     database.Artists(),
				Feeds:       database.Feeds(),
				Logger:      logger,
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			logger.Info("serving", zap.String("url", cfg.HostURL))
			return server.Run(ctx)
		},
	}
}

func scrapeCommand() *cli.Command {
	return &cli.Command{
		Name:  "scrape",
		Usage: "scrapes the release calendar of a year and prints a summary",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "year",
				Usage: "year to scrape",
				Value: time.Now().Year(),
			},
			&cli.BoolFlag{
				Name:  "store",
				Usage: "replace the stored calendar of the year",
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "maximum number of archive pages to request, 0 for no limit",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			year := c.Int("year")
			client := newClient(cfg, logger)
			opts := []jobs.Option{
				jobs.WithLogger(logger),
				jobs.WithScrapeOptions(scraper.WithMaxPages(c.Int("max-pages"))),
				jobs.WithClock(func() time.Time {
					return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
				}),
			}

			if !c.Bool("store") {
				got, err := jobs.NewUpdater(client, nil, opts...).Collect(ctx, year)
				if err != nil {
					return err
				}
				return printCounts(c.App.Writer, got)
			}

			database, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			sum, err := jobs.NewUpdater(client, database.Calendars(), opts...).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "stored %d releases for %d (archive %d, wiki %d)\n",
				sum.MergedCount, sum.Year, sum.ArchiveCount, sum.WikiCount)
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "creates the database tables",
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			database, err := openDB(c.Context, cfg)
			if err != nil {
				return err
			}
			database.Close()

			logger.Info("schema applied")
			return nil
		},
	}
}

// openDB connects to the database and applies the schema.
func openDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func newClient(cfg *config.Config, logger *zap.Logger) *scraper.HTTPClient {
	return scraper.NewHTTPClient(
		scraper.WithTimeout(cfg.HTTPTimeout),
		scraper.WithClientLogger(logger),
	)
}

// printCounts writes the number of releases per month of each calendar.
func printCounts(w io.Writer, got *jobs.Collected) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "month\tarchive\twiki\tmerged\t")
	for _, m := range calendar.Months() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t\n", m, monthCount(got.Archive, m), monthCount(got.Wiki, m), monthCount(got.Merged, m))
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t%d\t\n", got.Archive.Len(), got.Wiki.Len(), got.Merged.Len())
	return tw.Flush()
}

func monthCount(cal *calendar.Calendar, month time.Month) int {
	n := 0
	for _, day := range cal.Days(month) {
		releases, _ := cal.Releases(month, day)
		n += len(releases)
	}
	return n
}
