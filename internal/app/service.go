// Package service wires crawling, ingestion and matching into one process
// and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/okian/scholarsync/internal/adapters/cache"
	"github.com/okian/scholarsync/internal/adapters/crawl"
	eventqueue "github.com/okian/scholarsync/internal/adapters/mq/queue"
	workerpool "github.com/okian/scholarsync/internal/adapters/mq/worker"
	"github.com/okian/scholarsync/internal/adapters/repository"
	"github.com/okian/scholarsync/internal/adapters/textgen"
	"github.com/okian/scholarsync/internal/config"
	"github.com/okian/scholarsync/internal/domain/dedupe"
	"github.com/okian/scholarsync/internal/domain/extract"
	"github.com/okian/scholarsync/internal/domain/ingest"
	"github.com/okian/scholarsync/internal/domain/match"
	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/internal/domain/normalize"
	"github.com/okian/scholarsync/internal/domain/scoring"
	"github.com/okian/scholarsync/pkg/logger"
)

const (
	stopTimeout     = 30 * time.Second
	cronStopTimeout = 10 * time.Second
)

// CrawlReport describes the most recent crawl run.
type CrawlReport struct {
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Seeds       int       `json:"seeds"`
	Listings    int64     `json:"listings"`
	Pages       int64     `json:"pages"`
	SeenSkipped int64     `json:"seen_skipped"`
	Errors      int64     `json:"errors"`
	Err         string    `json:"error,omitempty"`
}

// Service owns every long-lived component of the pipeline.
type Service struct {
	mu  sync.RWMutex
	cfg *config.Config

	// Core components
	store     repository.Store
	seen      dedupe.Deduper
	generator textgen.Generator
	scorer    scoring.Scorer
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool
	pipeline  *ingest.Pipeline
	engine    *match.Engine
	scheduler *cron.Cron
	redis     *redis.Client

	// closers release what Start built, in reverse order.
	closers []func()

	crawlMu   sync.Mutex
	reportMu  sync.Mutex
	lastCrawl *CrawlReport

	// State
	started     bool
	runCtx      context.Context
	cancelRun   context.CancelFunc
	crawlCtx    context.Context
	cancelCrawl context.CancelFunc

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service from cfg. Components are built by Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the store, seen set, text generator, ingestion workers,
// match engine and crawl schedule. A store that cannot be reached aborts
// startup.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting scholarsync service...")

	// Workers and background updaters outlive the caller's startup context.
	s.runCtx, s.cancelRun = context.WithCancel(context.WithoutCancel(ctx))
	s.crawlCtx, s.cancelCrawl = context.WithCancel(s.runCtx)

	if err := s.build(ctx); err != nil {
		s.release()
		s.cancelRun()
		return err
	}

	s.pool.Start(s.runCtx)

	if err := s.schedule(); err != nil {
		_ = s.pool.Shutdown(ctx)
		s.release()
		s.cancelRun()
		return err
	}

	s.started = true
	s.logger.Info(ctx, "scholarsync service started",
		logger.String("storage", s.cfg.StorageDriver),
		logger.String("scorer", s.cfg.Scorer),
		logger.String("normalizer", s.cfg.Normalizer),
		logger.Int("workers", s.pool.Size()),
	)
	return nil
}

func (s *Service) build(ctx context.Context) error {
	if err := s.buildStore(ctx); err != nil {
		return err
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	if err := s.buildSeen(ctx); err != nil {
		return err
	}
	if s.generator == nil && s.cfg.TextgenProvider == config.TextgenGemini {
		s.generator = textgen.NewGemini(s.cfg.GeminiAPIKey,
			textgen.WithModel(s.cfg.GeminiModel),
			textgen.WithBaseURL(s.cfg.GeminiBaseURL),
			textgen.WithTimeout(s.textgenTimeout()),
			textgen.WithRateLimit(s.cfg.TextgenRPS, 1),
		)
	}

	s.pipeline = ingest.NewPipeline(
		extract.New(
			extract.WithSourceWebsite(s.cfg.SourceWebsite),
			extract.WithClock(s.now),
		),
		s.normalizer(),
		ingest.NewUpserter(s.store, ingest.WithLockStripes(s.cfg.UpsertLockStripes)),
	)
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.QueueSize))
	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, s.pipeline)

	s.scorer = s.buildScorer()
	s.engine = match.NewEngine(s.store, s.scorer,
		match.WithTopK(s.cfg.MatchTopK),
		match.WithThreshold(s.cfg.MatchThreshold),
		match.WithConcurrency(s.cfg.MatchConcurrency),
		match.WithClock(s.now),
	)
	return nil
}

func (s *Service) buildStore(ctx context.Context) error {
	if s.store != nil {
		s.logger.Info(ctx, "using provided store")
		return nil
	}
	switch s.cfg.StorageDriver {
	case config.StorageMemory:
		mem := repository.NewMemStore(s.runCtx, repository.WithClock(s.now))
		s.closers = append(s.closers, func() { _ = mem.Close(); s.store = nil })
		s.store = mem
		s.logger.Info(ctx, "using in-memory store")
	case config.StoragePostgres:
		pool, err := repository.NewPostgresPool(ctx, s.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { pool.Close(); s.store = nil })
		pg := repository.NewPostgres(pool, repository.WithClock(s.now))
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		s.store = pg
		s.logger.Info(ctx, "using postgres store")
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, s.cfg.StorageDriver)
	}
	return nil
}

func (s *Service) buildSeen(ctx context.Context) error {
	if s.seen != nil {
		return nil
	}
	ttl := time.Duration(s.cfg.SeenTTLHours) * time.Hour
	if s.cfg.RedisURL == "" {
		s.seen = dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(s.cfg.DedupeSize),
			dedupe.WithTTL(ttl),
			dedupe.WithClock(s.now),
		)
		return nil
	}
	rdb, err := cache.NewRedisClient(ctx, s.cfg.RedisURL)
	if err != nil {
		return err
	}
	s.redis = rdb
	s.closers = append(s.closers, func() { _ = rdb.Close(); s.seen, s.redis = nil, nil })
	s.seen = cache.NewSeenSet(rdb, cache.WithTTL(ttl))
	s.logger.Info(ctx, "using redis seen set")
	return nil
}

func (s *Service) normalizer() normalize.Normalizer {
	if s.cfg.Normalizer == config.NormalizerLive && s.generator != nil {
		return normalize.NewLive(s.generator, normalize.WithTimeout(s.textgenTimeout()))
	}
	return normalize.PassThrough{}
}

func (s *Service) buildScorer() scoring.Scorer {
	if s.cfg.Scorer == config.ScorerLive && s.generator != nil {
		return scoring.NewResilient(
			scoring.NewLive(s.generator,
				scoring.WithTimeout(s.textgenTimeout()),
				scoring.WithUnavailableCheck(textgen.IsUnavailable),
			),
			scoring.NewHeuristic(),
			scoring.WithBreakerThreshold(s.cfg.ScorerBreakerThreshold),
		)
	}
	return scoring.NewHeuristic()
}

func (s *Service) textgenTimeout() time.Duration {
	return time.Duration(s.cfg.TextgenTimeoutMS) * time.Millisecond
}

func (s *Service) schedule() error {
	if s.cfg.CrawlSchedule == "" {
		return nil
	}
	cl := logger.CronLogger{L: s.logger.Named("cron")}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	crawlCtx := s.crawlCtx
	if _, err := c.AddFunc(s.cfg.CrawlSchedule, func() {
		if _, err := s.RunCrawl(crawlCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error(crawlCtx, "scheduled crawl failed", logger.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("crawl schedule %q: %w", s.cfg.CrawlSchedule, err)
	}
	c.Start()
	s.scheduler = c
	return nil
}

func (s *Service) release() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Stop halts the schedule, cancels a running scheduled crawl, drains the
// page queue and releases the store and Redis.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	scheduler := s.scheduler
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping scholarsync service...")

	// The scheduled crawl must not hold the lock while it winds down.
	s.cancelCrawl()
	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-time.After(cronStopTimeout):
			s.logger.Warn(ctx, "scheduled crawl did not stop in time")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	s.cancelRun()
	s.release()

	s.logger.Info(ctx, "scholarsync service stopped", logger.Any("outcomes", s.pool.Outcomes()))
}

// RunCrawl performs one crawl run and hands every fetched page to the
// ingestion workers. Feed items found at the configured feed URLs are
// visited as detail pages alongside the listings. Only one run is active
// at a time.
func (s *Service) RunCrawl(ctx context.Context) (CrawlReport, error) {
	s.mu.RLock()
	started, q, seen := s.started, s.queue, s.seen
	s.mu.RUnlock()
	if !started {
		return CrawlReport{}, ErrNotStarted
	}
	if !s.crawlMu.TryLock() {
		return CrawlReport{}, ErrCrawlRunning
	}
	defer s.crawlMu.Unlock()

	report := CrawlReport{StartedAt: s.now()}

	var seeds []string
	if len(s.cfg.CrawlFeedURLs) > 0 {
		var err error
		seeds, err = crawl.FeedSeeds(ctx, s.cfg.CrawlFeedURLs, s.cfg.CrawlUserAgent)
		if err != nil {
			s.logger.Warn(ctx, "some feeds could not be read", logger.Error(err))
		}
	}
	report.Seeds = len(seeds)

	sess := crawl.NewSession(crawl.Config{
		StartURLs:      s.cfg.CrawlStartURLs,
		Seeds:          seeds,
		AllowedDomains: s.cfg.CrawlAllowedDomains,
		MaxPages:       s.cfg.CrawlMaxPages,
		MaxDepth:       s.cfg.CrawlMaxDepth,
		Delay:          time.Duration(s.cfg.CrawlDelayMS) * time.Millisecond,
		Parallelism:    s.cfg.CrawlParallelism,
		UserAgent:      s.cfg.CrawlUserAgent,
		RequestTimeout: time.Duration(s.cfg.CrawlRequestTimeoutS) * time.Second,
	}, crawl.SinkFunc(q.EnqueueWait),
		crawl.WithDeduper(seen),
		crawl.WithClock(s.now),
	)

	stats, err := sess.Run(ctx)
	report.FinishedAt = s.now()
	report.Listings = stats.Listings
	report.Pages = stats.Pages
	report.SeenSkipped = stats.SeenSkipped
	report.Errors = stats.Errors
	if err != nil {
		report.Err = err.Error()
	}

	s.reportMu.Lock()
	s.lastCrawl = &report
	s.reportMu.Unlock()

	s.logger.Info(ctx, "crawl finished",
		logger.Int("seeds", report.Seeds),
		logger.Int64("listings", report.Listings),
		logger.Int64("pages", report.Pages),
		logger.Int64("seen_skipped", report.SeenSkipped),
		logger.Int64("errors", report.Errors),
		logger.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, err
}

// Outcomes returns the ingestion tally since Start.
func (s *Service) Outcomes() ingest.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return ingest.Summary{}
	}
	return s.pool.Outcomes()
}

// Suggestions implements api.Dependencies. When the pool cannot be read or
// a recomputed set cannot be stored, the previous set is served.
func (s *Service) Suggestions(ctx context.Context, userID string, refresh bool) ([]model.Suggestion, error) {
	s.mu.RLock()
	store, engine := s.store, s.engine
	s.mu.RUnlock()
	if engine == nil {
		return nil, ErrNotStarted
	}

	profile, err := store.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", userID, err)
	}

	set, err := engine.Suggest(ctx, profile, refresh)
	if errors.Is(err, match.ErrReplaceFailed) || errors.Is(err, match.ErrCandidates) {
		s.logger.Warn(ctx, "serving previous suggestion set",
			logger.String("user_id", userID), logger.Error(err))
		return set, nil
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// SaveProfile stores a user profile for matching.
func (s *Service) SaveProfile(ctx context.Context, p model.UserProfile) error {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return ErrNotStarted
	}
	return store.SaveProfile(ctx, p)
}

// Scholarship implements api.Dependencies.
func (s *Service) Scholarship(ctx context.Context, id string) (model.Scholarship, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return model.Scholarship{}, ErrNotStarted
	}
	return store.GetByID(ctx, id)
}

// Scholarships implements api.Dependencies.
func (s *Service) Scholarships(ctx context.Context, f model.Filter, offset, limit int) ([]model.Scholarship, int, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return nil, 0, ErrNotStarted
	}
	return store.Search(ctx, f, offset, limit)
}

// GetStats returns current service statistics.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"storage":    s.cfg.StorageDriver,
		"scorer":     s.cfg.Scorer,
		"normalizer": s.cfg.Normalizer,
	}
	if !s.started {
		return stats
	}

	if n, err := s.store.Count(ctx); err == nil {
		stats["scholarships"] = n
	} else {
		s.logger.Warn(ctx, "count failed", logger.Error(err))
	}
	stats["queue_length"] = s.queue.Len(ctx)
	stats["queue_capacity"] = s.cfg.QueueSize
	stats["workers"] = s.pool.Size()
	stats["seen"] = s.seen.Size()

	outcomes := map[string]int{}
	for k, v := range s.pool.Outcomes() {
		outcomes[string(k)] = v
	}
	stats["outcomes"] = outcomes

	if r, ok := s.scorer.(*scoring.Resilient); ok {
		stats["scorer_breaker_open"] = r.Open()
	}
	s.reportMu.Lock()
	if s.lastCrawl != nil {
		stats["last_crawl"] = *s.lastCrawl
	}
	s.reportMu.Unlock()
	return stats
}
