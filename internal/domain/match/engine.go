// Package match scores a user profile against the record pool and keeps a
// bounded, ranked suggestion set per user.
package match

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/internal/domain/scoring"
	"github.com/okian/scholarsync/pkg/logger"
	"github.com/okian/scholarsync/pkg/metrics"
)

// Store is what the engine reads candidates from and writes sets to.
type Store interface {
	List(ctx context.Context, offset, limit int) ([]model.Scholarship, error)
	Suggestions(ctx context.Context, userID string) ([]model.Suggestion, error)
	ReplaceSuggestions(ctx context.Context, userID string, set []model.Suggestion) error
}

// forker is implemented by scorers that keep per-run state.
type forker interface {
	Fork() scoring.Scorer
}

// Engine computes suggestion sets.
type Engine struct {
	store       Store
	scorer      scoring.Scorer
	topK        int
	threshold   int
	concurrency int
	pageSize    int
	now         func() time.Time
	logger      logger.Logger
}

// NewEngine builds an engine over store and scorer.
func NewEngine(store Store, scorer scoring.Scorer, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		scorer:      scorer,
		topK:        DefaultTopK,
		threshold:   DefaultThreshold,
		concurrency: defaultConcurrency,
		pageSize:    defaultPageSize,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.Get().Named("match"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Suggest returns the user's live suggestion set. An existing non-empty
// set is served as-is unless refresh is set.
func (e *Engine) Suggest(ctx context.Context, p model.UserProfile, refresh bool) ([]model.Suggestion, error) {
	if !refresh {
		existing, err := e.store.Suggestions(ctx, p.UserID)
		if err == nil && len(existing) > 0 {
			metrics.RecordMatchRun("cached")
			return existing, nil
		}
		if err != nil {
			e.logger.Warn(ctx, "reading existing suggestions failed, recomputing",
				logger.String("user_id", p.UserID), logger.Error(err))
		}
	}
	return e.Recompute(ctx, p)
}

// Recompute scores every candidate, ranks the qualifying ones and replaces
// the stored set. If the run is cancelled or the replace fails, the
// previous set stays live and is returned with the error.
func (e *Engine) Recompute(ctx context.Context, p model.UserProfile) ([]model.Suggestion, error) {
	metrics.RecordMatchRun("recompute")
	cands, err := e.candidates(ctx)
	if err != nil {
		return e.previous(ctx, p.UserID), fmt.Errorf("%w: %w", ErrCandidates, err)
	}

	scorer := e.scorer
	if f, ok := scorer.(forker); ok {
		scorer = f.Fork()
	}
	scored := e.scoreAll(ctx, scorer, p, cands)
	if err := ctx.Err(); err != nil {
		return e.previous(ctx, p.UserID), fmt.Errorf("recompute cancelled: %w", err)
	}

	now := e.now()
	ranked := Rank(scored, e.threshold, e.topK, now)
	set := make([]model.Suggestion, len(ranked))
	for i, r := range ranked {
		set[i] = model.Suggestion{
			UserID:        p.UserID,
			ScholarshipID: r.Scholarship.ID,
			Rank:          i + 1,
			Score:         r.Score,
			GeneratedAt:   now,
		}
	}

	if err := e.store.ReplaceSuggestions(ctx, p.UserID, set); err != nil {
		metrics.RecordSuggestionReplaceError()
		e.logger.Error(ctx, "replacing suggestion set failed, keeping previous set",
			logger.String("user_id", p.UserID), logger.Error(err))
		return e.previous(ctx, p.UserID), fmt.Errorf("%w: %w", ErrReplaceFailed, err)
	}

	metrics.RecordSuggestionsGenerated(len(set))
	e.logger.Info(ctx, "suggestion set replaced",
		logger.String("user_id", p.UserID),
		logger.Int("candidates", len(cands)),
		logger.Int("suggestions", len(set)),
	)
	return set, nil
}

func (e *Engine) candidates(ctx context.Context) ([]model.Scholarship, error) {
	var all []model.Scholarship
	for offset := 0; ; offset += e.pageSize {
		page, err := e.store.List(ctx, offset, e.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < e.pageSize {
			return all, nil
		}
	}
}

// scoreAll is the barrier: it returns only after every candidate has a
// score or its zero substitute.
func (e *Engine) scoreAll(ctx context.Context, scorer scoring.Scorer, p model.UserProfile, cands []model.Scholarship) []Scored {
	out := make([]Scored, len(cands))
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i := range cands {
		out[i].Scholarship = cands[i]
		g.Go(func() error {
			out[i].Score = e.scoreOne(ctx, scorer, p, cands[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Engine) scoreOne(ctx context.Context, scorer scoring.Scorer, p model.UserProfile, rec model.Scholarship) int {
	start := time.Now()
	score, err := scorer.Score(ctx, p, rec)
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordScoringError()
		e.logger.Debug(ctx, "scoring failed, using zero",
			logger.String("scholarship_id", rec.ID), logger.Error(err))
		return 0
	}
	return scoring.Clamp(score)
}

func (e *Engine) previous(ctx context.Context, userID string) []model.Suggestion {
	prev, err := e.store.Suggestions(context.WithoutCancel(ctx), userID)
	if err != nil {
		return []model.Suggestion{}
	}
	return prev
}
