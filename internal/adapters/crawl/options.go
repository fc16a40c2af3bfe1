package crawl

import (
	"time"

	"github.com/okian/scholarsync/internal/domain/dedupe"
	"github.com/okian/scholarsync/pkg/logger"
)

// Config bounds one crawl run.
type Config struct {
	// StartURLs are listing pages. They are scanned for detail links and
	// pagination but never emitted.
	StartURLs []string
	// Seeds are detail pages visited directly, typically feed items.
	Seeds          []string
	AllowedDomains []string
	// MaxPages caps the requests of a run; 0 means unbounded.
	MaxPages int
	// MaxDepth caps how many listing pages deep pagination goes; 0 means
	// unbounded.
	MaxDepth       int
	Delay          time.Duration
	Parallelism    int
	UserAgent      string
	RequestTimeout time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithDeduper skips detail URLs seen by earlier runs.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Session) {
		s.seen = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
