package repository

import (
	"time"

	"github.com/google/uuid"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// Option applies a configuration option to a store.
type Option func(*settings)

type settings struct {
	now                   func() time.Time
	newID                 func() string
	metricsUpdateInterval time.Duration
}

func defaultSettings() settings {
	return settings{
		now:                   func() time.Time { return time.Now().UTC() },
		newID:                 newV7,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// newV7 returns a time-ordered id, so ascending id follows insertion order.
func newV7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *settings) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *settings) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
