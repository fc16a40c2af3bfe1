// Package crawl fetches scholarship listing sites and hands detail pages to
// a sink. A Session covers exactly one run.
package crawl

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/okian/scholarsync/internal/domain/dedupe"
	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/pkg/logger"
	"github.com/okian/scholarsync/pkg/metrics"
)

const (
	kindKey     = "kind"
	depthKey    = "depth"
	urlKey      = "url"
	kindListing = "listing"
	kindDetail  = "detail"
)

// Sink receives every fetched detail page.
type Sink interface {
	Accept(ctx context.Context, page model.Page) error
}

// SinkFunc adapts a function, e.g. a queue's EnqueueWait, to Sink.
type SinkFunc func(ctx context.Context, page model.Page) error

// Accept implements Sink.
func (f SinkFunc) Accept(ctx context.Context, page model.Page) error { //nolint:gocritic // hugeParam
	return f(ctx, page)
}

// Stats summarises a finished run.
type Stats struct {
	Listings    int64
	Pages       int64
	SeenSkipped int64
	Errors      int64
}

// Session owns the lifecycle of a single crawl: Run blocks until the
// frontier is exhausted, ctx is done or Stop is called.
type Session struct {
	cfg    Config
	sink   Sink
	seen   dedupe.Deduper
	now    func() time.Time
	logger logger.Logger

	ctx      context.Context
	started  atomic.Bool
	stopped  atomic.Bool
	requests atomic.Int64

	listings    atomic.Int64
	pages       atomic.Int64
	seenSkipped atomic.Int64
	errs        atomic.Int64
}

// NewSession creates a session for one run.
func NewSession(cfg Config, sink Sink, opts ...Option) *Session {
	s := &Session{
		cfg:    cfg,
		sink:   sink,
		now:    time.Now,
		logger: logger.Get().Named("crawl"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stop aborts requests that have not started yet. In-flight requests finish.
func (s *Session) Stop() {
	s.stopped.Store(true)
}

func (s *Session) halted() bool {
	return s.stopped.Load() || s.ctx.Err() != nil
}

// Run crawls until completion. It can only be called once per session.
func (s *Session) Run(ctx context.Context) (Stats, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Stats{}, ErrSessionUsed
	}
	if len(s.cfg.StartURLs) == 0 && len(s.cfg.Seeds) == 0 {
		return Stats{}, ErrNoStartURLs
	}
	s.ctx = ctx

	c, err := s.collector()
	if err != nil {
		metrics.RecordCrawlRun("failed")
		return Stats{}, err
	}

	start := time.Now()
	s.logger.Info(ctx, "crawl started",
		logger.Int("start_urls", len(s.cfg.StartURLs)),
		logger.Int("seeds", len(s.cfg.Seeds)),
	)

	for _, u := range s.cfg.StartURLs {
		s.visitListing(c, u, 1)
	}
	for _, u := range s.cfg.Seeds {
		s.visitDetail(c, u)
	}
	c.Wait()

	stats := s.stats()
	status := "completed"
	if ctx.Err() != nil {
		status = "cancelled"
	}
	metrics.RecordCrawlRun(status)
	s.logger.Info(ctx, "crawl finished",
		logger.String("status", status),
		logger.Int64("listings", stats.Listings),
		logger.Int64("pages", stats.Pages),
		logger.Int64("seen_skipped", stats.SeenSkipped),
		logger.Int64("errors", stats.Errors),
		logger.Duration("took", time.Since(start)),
	)
	return stats, ctx.Err()
}

func (s *Session) stats() Stats {
	return Stats{
		Listings:    s.listings.Load(),
		Pages:       s.pages.Load(),
		SeenSkipped: s.seenSkipped.Load(),
		Errors:      s.errs.Load(),
	}
}

func (s *Session) collector() (*colly.Collector, error) {
	opts := []colly.CollectorOption{colly.Async(true)}
	if s.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(s.cfg.UserAgent))
	}
	if len(s.cfg.AllowedDomains) > 0 {
		opts = append(opts, colly.AllowedDomains(s.cfg.AllowedDomains...))
	}
	c := colly.NewCollector(opts...)

	parallelism := s.cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       s.cfg.Delay,
		Parallelism: parallelism,
	}); err != nil {
		return nil, err
	}
	if s.cfg.RequestTimeout > 0 {
		c.SetRequestTimeout(s.cfg.RequestTimeout)
	}

	c.OnRequest(func(r *colly.Request) {
		if s.halted() {
			s.abort(r)
			return
		}
		if n := s.requests.Add(1); s.cfg.MaxPages > 0 && n > int64(s.cfg.MaxPages) {
			s.abort(r)
		}
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		switch e.Request.Ctx.Get(kindKey) {
		case kindListing:
			s.onListing(c, e)
		case kindDetail:
			s.onDetail(e)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		s.errs.Add(1)
		metrics.RecordErrorByComponent("crawl", "fetch")
		u := r.Request.Ctx.Get(urlKey)
		if r.Request.Ctx.Get(kindKey) == kindDetail && s.seen != nil {
			s.seen.Unrecord(s.ctx, u)
		}
		s.logger.Warn(s.ctx, "fetch failed",
			logger.String("url", u),
			logger.Int("status", r.StatusCode),
			logger.Error(err),
		)
	})

	return c, nil
}

// abort drops a request before it is sent. Detail URLs are forgotten so a
// later run can fetch them.
func (s *Session) abort(r *colly.Request) {
	r.Abort()
	if r.Ctx.Get(kindKey) == kindDetail && s.seen != nil {
		s.seen.Unrecord(s.ctx, r.Ctx.Get(urlKey))
	}
}

func (s *Session) onListing(c *colly.Collector, e *colly.HTMLElement) {
	s.listings.Add(1)
	base := e.Request.URL
	depth, _ := e.Request.Ctx.GetAny(depthKey).(int)

	for _, l := range linksOf(e.DOM, base) {
		if isCandidate(base, l.Href, l.Text) {
			s.visitDetail(c, l.Href)
		}
	}

	if s.cfg.MaxDepth > 0 && depth >= s.cfg.MaxDepth {
		return
	}
	for _, next := range nextPages(e.DOM, base) {
		s.visitListing(c, next, depth+1)
	}
}

func (s *Session) onDetail(e *colly.HTMLElement) {
	page := PageFromDocument(e.DOM, e.Request.URL, e.Response.StatusCode, s.now())
	page.URL = e.Request.Ctx.Get(urlKey)

	if err := s.sink.Accept(s.ctx, page); err != nil {
		if s.seen != nil {
			s.seen.Unrecord(s.ctx, page.URL)
		}
		s.logger.Warn(s.ctx, "sink rejected page, stopping",
			logger.String("url", page.URL),
			logger.Error(err),
		)
		s.Stop()
		return
	}
	s.pages.Add(1)
}

func (s *Session) visitListing(c *colly.Collector, u string, depth int) {
	if s.halted() {
		return
	}
	ctx := colly.NewContext()
	ctx.Put(kindKey, kindListing)
	ctx.Put(depthKey, depth)
	ctx.Put(urlKey, u)
	if err := c.Request("GET", u, nil, ctx, nil); err != nil && !errors.Is(err, colly.ErrAlreadyVisited) {
		s.logger.Debug(s.ctx, "listing not visited", logger.String("url", u), logger.Error(err))
	}
}

func (s *Session) visitDetail(c *colly.Collector, u string) {
	if s.halted() {
		return
	}
	if s.seen != nil && s.seen.SeenAndRecord(s.ctx, u) {
		s.seenSkipped.Add(1)
		metrics.RecordCrawlSeenSkip()
		return
	}
	ctx := colly.NewContext()
	ctx.Put(kindKey, kindDetail)
	ctx.Put(urlKey, u)
	if err := c.Request("GET", u, nil, ctx, nil); err != nil {
		if errors.Is(err, colly.ErrAlreadyVisited) {
			return
		}
		if s.seen != nil {
			s.seen.Unrecord(s.ctx, u)
		}
		s.logger.Debug(s.ctx, "detail not visited", logger.String("url", u), logger.Error(err))
	}
}
