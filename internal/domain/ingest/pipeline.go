package ingest

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/scholarsync/internal/domain/extract"
	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/internal/domain/normalize"
	"github.com/okian/scholarsync/pkg/logger"
	"github.com/okian/scholarsync/pkg/metrics"
)

// Outcome is what happened to one page.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
	OutcomeSkipped  Outcome = "skipped"  // non-200 response, no item produced
	OutcomeRejected Outcome = "rejected" // not a scholarship or no title
	OutcomeStale    Outcome = "stale"
	OutcomeFailed   Outcome = "failed"
)

// Result of processing one page.
type Result struct {
	URL     string
	Outcome Outcome
	ID      string
	Err     error
}

// Extractor turns a page into a candidate record.
type Extractor interface {
	Extract(p model.Page) (model.Scholarship, error)
}

// Pipeline wires extraction, normalization and upsert. It is safe for
// concurrent use when its collaborators are.
type Pipeline struct {
	extractor  Extractor
	normalizer normalize.Normalizer
	upserter   *Upserter
	logger     logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline builds a pipeline. A nil normalizer means pass-through.
func NewPipeline(ex Extractor, n normalize.Normalizer, u *Upserter, opts ...Option) *Pipeline {
	if n == nil {
		n = normalize.PassThrough{}
	}
	p := &Pipeline{
		extractor:  ex,
		normalizer: n,
		upserter:   u,
		logger:     logger.Get().Named("ingest"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one fetched page. Failures are reported in the Result,
// never by panicking or aborting the caller's batch.
func (p *Pipeline) Process(ctx context.Context, page model.Page) Result {
	res := Result{URL: page.SourceURL()}
	if err := ctx.Err(); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	metrics.RecordPageFetched()

	if page.Status != http.StatusOK {
		metrics.RecordPageRejected("status")
		p.logger.Debug(ctx, "no item for page", logger.String("url", res.URL), logger.Int("status", page.Status))
		res.Outcome = OutcomeSkipped
		return res
	}

	rec, err := p.extractor.Extract(page)
	switch {
	case errors.Is(err, extract.ErrNotScholarship):
		metrics.RecordPageRejected("not_scholarship")
		p.logger.Debug(ctx, "dropping page", logger.String("url", res.URL), logger.String("reason", "not_scholarship"))
		res.Outcome, res.Err = OutcomeRejected, err
		return res
	case errors.Is(err, extract.ErrMissingTitle):
		metrics.RecordPageRejected("missing_title")
		p.logger.Info(ctx, "dropping page", logger.String("url", res.URL), logger.String("reason", "missing_title"))
		res.Outcome, res.Err = OutcomeRejected, err
		return res
	case errors.Is(err, extract.ErrStale):
		metrics.RecordPageRejected("stale")
		p.logger.Info(ctx, "dropping page",
			logger.String("url", res.URL),
			logger.String("reason", "stale"),
			logger.String("title", rec.Title),
			logger.Error(err),
		)
		res.Outcome, res.Err = OutcomeStale, err
		return res
	case err != nil:
		metrics.RecordPageRejected("extract_error")
		p.logger.Error(ctx, "extraction failed", logger.String("url", res.URL), logger.Error(err))
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	normalized, err := p.normalizer.Normalize(ctx, rec)
	if err != nil {
		metrics.RecordNormalizerFallback()
		p.logger.Warn(ctx, "normalization fell back to raw record", logger.String("url", res.URL), logger.Error(err))
		normalized = rec
	}

	up, err := p.upserter.Upsert(ctx, normalized)
	if err != nil {
		p.logger.Error(ctx, "upsert failed", logger.String("url", res.URL), logger.Error(err))
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	res.ID = up.ID
	res.Outcome = OutcomeUpdated
	if up.Inserted {
		res.Outcome = OutcomeInserted
	}
	return res
}

// Summary counts outcomes of a batch.
type Summary map[Outcome]int

// Total is the number of pages handled.
func (s Summary) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// ProcessBatch processes pages in order. A failing item never stops the
// batch; cancellation does, leaving every finished item committed.
func (p *Pipeline) ProcessBatch(ctx context.Context, pages []model.Page) Summary {
	sum := Summary{}
	for _, page := range pages {
		if ctx.Err() != nil {
			break
		}
		sum[p.Process(ctx, page).Outcome]++
	}
	return sum
}
