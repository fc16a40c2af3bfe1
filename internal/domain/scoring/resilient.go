package scoring

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/pkg/logger"
	"github.com/okian/scholarsync/pkg/metrics"
)

const defaultBreakerThreshold = 3

// Resilient wraps a primary scorer with a breaker. After threshold
// consecutive ErrUnavailable failures the fallback scores every later pair.
// The pair whose failure trips the breaker still scores 0. Other failures
// are returned as-is and leave the count alone.
//
// A breaker built by NewResilient is usually not scored through directly:
// each match run takes a Fork so one user's run cannot close a breaker that
// another run tripped. Open on the root reports the latest outcome seen by
// any fork.
type Resilient struct {
	primary   Scorer
	fallback  Scorer
	threshold int32
	parent    *Resilient

	failures atomic.Int32
	open     atomic.Bool
	logger   logger.Logger
}

// ResilientOption configures a Resilient scorer.
type ResilientOption func(*Resilient)

// WithBreakerThreshold sets how many consecutive unavailable replies trip
// the breaker.
func WithBreakerThreshold(n int) ResilientOption {
	return func(r *Resilient) {
		if n > 0 {
			r.threshold = int32(n) //nolint:gosec // small config value
		}
	}
}

// NewResilient builds a breaker around primary.
func NewResilient(primary, fallback Scorer, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		primary:   primary,
		fallback:  fallback,
		threshold: defaultBreakerThreshold,
		logger:    logger.Get().Named("scorer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Score implements Scorer.
func (r *Resilient) Score(ctx context.Context, p model.UserProfile, rec model.Scholarship) (int, error) {
	if r.open.Load() {
		return r.fallback.Score(ctx, p, rec)
	}

	score, err := r.primary.Score(ctx, p, rec)
	if err == nil {
		r.failures.Store(0)
		if r.parent != nil {
			r.parent.open.Store(false)
		}
		return score, nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return 0, err
	}

	if r.failures.Add(1) >= r.threshold && r.open.CompareAndSwap(false, true) {
		if r.parent != nil {
			r.parent.open.Store(true)
		}
		metrics.RecordScorerBreakerTrip()
		r.logger.Warn(ctx, "live scorer unreachable, switching to heuristic",
			logger.Int("consecutive_failures", int(r.threshold)),
			logger.Error(err),
		)
	}
	return 0, err
}

// Open reports whether the fallback is in use.
func (r *Resilient) Open() bool { return r.open.Load() }

// Fork returns a closed breaker over the same scorers whose trips and
// recoveries are mirrored into r.
func (r *Resilient) Fork() Scorer {
	return &Resilient{
		primary:   r.primary,
		fallback:  r.fallback,
		threshold: r.threshold,
		parent:    r,
		logger:    r.logger,
	}
}
