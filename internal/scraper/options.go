package scraper

import "go.uber.org/zap"

// Option configures an extractor run.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	maxPages int
}

// WithLogger sets the logger used while extracting.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxPages caps the number of archive pages requested. Zero means no cap.
func WithMaxPages(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxPages = n
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
