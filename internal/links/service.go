// Package links enriches stored artists with links to their external pages.
package links

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/reaper47/heavy-metal-notifier/internal/db"
)

// DefaultConcurrency is the number of probes in flight at once.
const DefaultConcurrency = 2

// ArtistStore abstracts artist persistence for testing.
type ArtistStore interface {
	WithoutBandcamp(ctx context.Context) ([]db.Artist, error)
	SetBandcamp(ctx context.Context, id int, url string) error
}

// Prober checks whether an artist has a Bandcamp page.
type Prober interface {
	ProbeArtistPresence(ctx context.Context, artist string) (string, bool)
}

// Result summarizes an enrichment pass.
type Result struct {
	Probed int
	Found  int
	Failed int
}

// Service looks up missing artist links.
type Service struct {
	store       ArtistStore
	prober      Prober
	enabled     bool
	concurrency int
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEnabled turns enrichment on or off. It is off by default.
func WithEnabled(enabled bool) Option {
	return func(s *Service) {
		s.enabled = enabled
	}
}

// WithConcurrency sets the number of concurrent probes.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a link enrichment service.
func New(store ArtistStore, prober Prober, opts ...Option) *Service {
	s := &Service{
		store:       store,
		prober:      prober,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enrich probes every artist without a Bandcamp link and stores the links found.
// A failure to store one link is counted in Result.Failed and does not stop the pass.
func (s *Service) Enrich(ctx context.Context) (Result, error) {
	if !s.enabled {
		s.logger.Warn("link enrichment disabled, skipping")
		return Result{}, nil
	}

	artists, err := s.store.WithoutBandcamp(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(artists) == 0 {
		return Result{}, nil
	}

	s.logger.Info("probing bandcamp", zap.Int("artists", len(artists)))

	workCh := make(chan db.Artist, len(artists))
	for _, a := range artists {
		workCh <- a
	}
	close(workCh)

	var (
		mu  sync.Mutex
		res Result
		wg  sync.WaitGroup
	)
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for artist := range workCh {
				if ctx.Err() != nil {
					continue
				}

				link, ok := s.prober.ProbeArtistPresence(ctx, artist.Name)
				var setErr error
				if ok {
					setErr = s.store.SetBandcamp(ctx, artist.ID, link)
					if setErr != nil {
						s.logger.Warn("storing bandcamp link failed",
							zap.String("artist", artist.Name),
							zap.Error(setErr),
						)
					}
				}

				mu.Lock()
				res.Probed++
				switch {
				case setErr != nil:
					res.Failed++
				case ok:
					res.Found++
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	s.logger.Info("bandcamp probing done",
		zap.Int("probed", res.Probed),
		zap.Int("found", res.Found),
		zap.Int("failed", res.Failed),
	)

	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}
