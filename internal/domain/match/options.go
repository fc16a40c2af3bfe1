package match

import (
	"time"

	"github.com/okian/scholarsync/pkg/logger"
)

// Default engine configuration constants.
const (
	DefaultTopK        = 10
	DefaultThreshold   = 30
	defaultConcurrency = 4
	defaultPageSize    = 500
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTopK bounds the suggestion set size.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithThreshold sets the exclusive minimum qualifying score.
func WithThreshold(t int) Option {
	return func(e *Engine) {
		if t >= 0 && t <= 100 {
			e.threshold = t
		}
	}
}

// WithConcurrency bounds in-flight scoring calls.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithPageSize sets how many candidates are read per store call.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithClock overrides the time source for generated_at and deadline ranking.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
