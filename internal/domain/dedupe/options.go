package dedupe

import "time"

const defaultMaxSize = 50000

type settings struct {
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

func defaultSettings() settings {
	return settings{maxSize: defaultMaxSize, now: time.Now}
}

// Option applies a configuration option to a Deduper.
type Option func(*settings)

// WithMaxSize sets the maximum number of IDs to keep in memory.
// If maxSize > 0: bounded mode, oldest entries are evicted first.
// If maxSize <= 0: unbounded mode (no eviction, no size limit).
func WithMaxSize(maxSize int) Option {
	return func(s *settings) {
		s.maxSize = maxSize
	}
}

// WithTTL makes recorded IDs expire. Zero keeps them until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
