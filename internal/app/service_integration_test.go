package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	service "github.com/okian/scholarsync/internal/app"
	"github.com/okian/scholarsync/internal/adapters/repository"
	"github.com/okian/scholarsync/internal/adapters/textgen"
	"github.com/okian/scholarsync/internal/config"
	"github.com/okian/scholarsync/internal/domain/ingest"
	"github.com/okian/scholarsync/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var testNow = time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)

const listingPage = `<html><head><title>Scholarships | Opportunity Desk</title></head><body>
<div class="entry-content">%s</div>
%s
</body></html>`

const detailPage = `<html><head><title>%[1]s | Opportunity Desk</title></head><body>
<h1 class="entry-title">%[1]s</h1>
<div class="entry-content">
<p>The %[1]s scholarship is offered by the University of Sussex for engineering students.</p>
<p>Application Deadline: 31 March 2025</p>
<h3>Eligibility</h3><p>Open to all nationalities with a bachelor's degree.</p>
<h3>Benefits</h3><p>Full tuition and a monthly stipend.</p>
<p><a href="https://apply.example.org/%[2]s">Apply Now</a></p>
</div></body></html>`

type scholarshipSite struct {
	*httptest.Server
	hits atomic.Int64
}

// newSite serves two paginated listings, four posts and an RSS feed with
// one extra post.
func newSite() *scholarshipSite {
	s := &scholarshipSite{}
	mux := http.NewServeMux()
	listing := func(path, links, next string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, listingPage, links, next)
		})
	}
	detail := func(path, title string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			s.hits.Add(1)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, detailPage, title, strings.Trim(path, "/"))
		})
	}

	listing("/list/",
		`<a href="/2025/01/10/alpha-scholarship/">Alpha Scholarship 2025</a>
		 <a href="/2025/01/11/beta-fellowship/">Beta Fellowship</a>`,
		`<a class="next" href="/list/page/2/">Next</a>`)
	listing("/list/page/2/",
		`<a href="/2025/01/12/gamma-scholarship/">Gamma Scholarship</a>
		 <a href="/2025/01/13/delta-bursary/">Delta Bursary</a>`,
		``)
	detail("/2025/01/10/alpha-scholarship/", "Alpha Scholarship 2025")
	detail("/2025/01/11/beta-fellowship/", "Beta Fellowship")
	detail("/2025/01/12/gamma-scholarship/", "Gamma Scholarship")
	detail("/2025/01/13/delta-bursary/", "Delta Bursary")
	detail("/2025/01/14/epsilon-scholarship/", "Epsilon Scholarship")

	s.Server = httptest.NewServer(mux)
	mux.HandleFunc("/feed/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Opportunity Desk</title>
<item><title>Epsilon</title><link>%[1]s/2025/01/14/epsilon-scholarship/</link></item>
<item><title>Alpha</title><link>%[1]s/2025/01/10/alpha-scholarship/</link></item>
</channel></rss>`, s.URL)
	})
	return s
}

func profile(userID string) model.UserProfile {
	return model.UserProfile{
		UserID:          userID,
		LevelOfStudy:    "Masters",
		FieldOfStudy:    "engineering",
		Country:         "Nigeria",
		SkillsInterests: "engineering stipend",
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

type fixedGenerator struct {
	reply string
	err   error
	calls atomic.Int64
}

func (g *fixedGenerator) Generate(context.Context, string) (string, error) {
	g.calls.Add(1)
	return g.reply, g.err
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a running service pointed at a scholarship site", t, func() {
		site := newSite()
		Reset(site.Close)

		cfg := testConfig()
		cfg.CrawlStartURLs = []string{site.URL + "/list/"}
		cfg.CrawlFeedURLs = []string{site.URL + "/feed/"}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		Reset(cancel)

		store := repository.NewMemStore(ctx, repository.WithClock(func() time.Time { return testNow }))
		Reset(func() { _ = store.Close() })

		svc := service.New(cfg,
			service.WithStore(store),
			service.WithClock(func() time.Time { return testNow }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When a crawl runs", func() {
			report, err := svc.RunCrawl(ctx)
			So(err, ShouldBeNil)

			drained := waitFor(5*time.Second, func() bool {
				return svc.Outcomes().Total() == int(report.Pages)
			})

			Convey("Then every post is fetched once, including the feed-only one", func() {
				So(report.Seeds, ShouldEqual, 2)
				So(report.Listings, ShouldEqual, 2)
				So(report.Pages, ShouldEqual, 5)
				So(site.hits.Load(), ShouldEqual, 5)
			})

			Convey("Then every page is ingested as a new record", func() {
				So(drained, ShouldBeTrue)
				So(svc.Outcomes()[ingest.OutcomeInserted], ShouldEqual, 5)

				recs, total, err := svc.Scholarships(ctx, model.Filter{}, 0, 10)
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 5)
				So(recs, ShouldHaveLength, 5)
				So(recs[0].SourceWebsite, ShouldEqual, cfg.SourceWebsite)

				got, err := svc.Scholarship(ctx, recs[0].ID)
				So(err, ShouldBeNil)
				So(got.SourceURL, ShouldEqual, recs[0].SourceURL)

				_, total, err = svc.Scholarships(ctx, model.Filter{Field: "Nursing"}, 0, 10)
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 0)
			})

			Convey("Then stats report the pool and the last crawl", func() {
				So(drained, ShouldBeTrue)
				stats := svc.GetStats(ctx)
				So(stats["scholarships"], ShouldEqual, 5)
				last, ok := stats["last_crawl"].(service.CrawlReport)
				So(ok, ShouldBeTrue)
				So(last.Pages, ShouldEqual, 5)
				So(stats["outcomes"], ShouldResemble, map[string]int{"inserted": 5})
			})

			Convey("And a second crawl skips everything already seen", func() {
				So(drained, ShouldBeTrue)
				again, err := svc.RunCrawl(ctx)
				So(err, ShouldBeNil)
				So(again.Pages, ShouldEqual, 0)
				So(again.SeenSkipped, ShouldEqual, 6)
				So(site.hits.Load(), ShouldEqual, 5)
			})

			Convey("And a profile gets a bounded, ranked suggestion set", func() {
				So(drained, ShouldBeTrue)
				So(svc.SaveProfile(ctx, profile("u1")), ShouldBeNil)

				set, err := svc.Suggestions(ctx, "u1", false)
				So(err, ShouldBeNil)
				So(set, ShouldNotBeEmpty)
				So(len(set), ShouldBeLessThanOrEqualTo, cfg.MatchTopK)
				for i, s := range set {
					So(s.Rank, ShouldEqual, i+1)
					So(s.Score, ShouldBeGreaterThan, cfg.MatchThreshold)
					So(s.GeneratedAt.Equal(testNow), ShouldBeTrue)
				}

				stored, err := store.Suggestions(ctx, "u1")
				So(err, ShouldBeNil)
				So(stored, ShouldHaveLength, len(set))

				Convey("And the stored set is served until a refresh is asked for", func() {
					again, err := svc.Suggestions(ctx, "u1", false)
					So(err, ShouldBeNil)
					So(again, ShouldResemble, stored)

					refreshed, err := svc.Suggestions(ctx, "u1", true)
					So(err, ShouldBeNil)
					So(refreshed, ShouldHaveLength, len(set))
				})
			})
		})

		Convey("When a crawl is cancelled before it starts", func() {
			cctx, ccancel := context.WithCancel(ctx)
			ccancel()
			_, err := svc.RunCrawl(cctx)

			Convey("Then nothing is fetched", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(site.hits.Load(), ShouldEqual, 0)
			})
		})
	})
}

func TestServiceLiveScoring(t *testing.T) {
	Convey("Given a service scoring through a text generator", t, func() {
		cfg := testConfig()
		cfg.Scorer = config.ScorerLive
		cfg.TextgenProvider = config.TextgenGemini
		cfg.GeminiAPIKey = "test-key"
		cfg.ScorerBreakerThreshold = 2

		ctx := context.Background()
		store := repository.NewMemStore(ctx, repository.WithClock(func() time.Time { return testNow }))
		Reset(func() { _ = store.Close() })
		for _, slug := range []string{"alpha", "beta", "gamma"} {
			_, err := store.Upsert(ctx, model.Scholarship{
				Title:     strings.ToUpper(slug[:1]) + slug[1:] + " Scholarship",
				SourceURL: "https://opportunitydesk.org/2025/01/10/" + slug + "-scholarship/",
			})
			So(err, ShouldBeNil)
		}
		So(store.SaveProfile(ctx, profile("u1")), ShouldBeNil)

		Convey("When the generator answers", func() {
			gen := &fixedGenerator{reply: "Score: 85"}
			svc := service.New(cfg, service.WithStore(store), service.WithGenerator(gen),
				service.WithClock(func() time.Time { return testNow }))
			So(svc.Start(ctx), ShouldBeNil)
			Reset(svc.Stop)

			set, err := svc.Suggestions(ctx, "u1", true)

			Convey("Then its scores rank the set", func() {
				So(err, ShouldBeNil)
				So(set, ShouldHaveLength, 3)
				So(set[0].Score, ShouldEqual, 85)
				So(gen.calls.Load(), ShouldEqual, 3)
				So(svc.GetStats(ctx)["scorer_breaker_open"], ShouldEqual, false)
			})
		})

		Convey("When the generator is down", func() {
			gen := &fixedGenerator{err: fmt.Errorf("%w: connection refused", textgen.ErrUnavailable)}
			cfg.MatchConcurrency = 1
			svc := service.New(cfg, service.WithStore(store), service.WithGenerator(gen),
				service.WithClock(func() time.Time { return testNow }))
			So(svc.Start(ctx), ShouldBeNil)
			Reset(svc.Stop)

			set, err := svc.Suggestions(ctx, "u1", true)

			Convey("Then the heuristic takes over after the breaker trips", func() {
				So(err, ShouldBeNil)
				So(len(set), ShouldBeLessThanOrEqualTo, 3)
				So(gen.calls.Load(), ShouldEqual, 2)
				So(svc.GetStats(ctx)["scorer_breaker_open"], ShouldEqual, true)
			})
		})

		Convey("When the generator rejects every request", func() {
			gen := &fixedGenerator{err: fmt.Errorf("%w: status 400", textgen.ErrRejected)}
			cfg.MatchConcurrency = 1
			svc := service.New(cfg, service.WithStore(store), service.WithGenerator(gen),
				service.WithClock(func() time.Time { return testNow }))
			So(svc.Start(ctx), ShouldBeNil)
			Reset(svc.Stop)

			set, err := svc.Suggestions(ctx, "u1", true)

			Convey("Then every pair scores zero and the breaker stays closed", func() {
				So(err, ShouldBeNil)
				So(set, ShouldBeEmpty)
				So(gen.calls.Load(), ShouldEqual, 3)
				So(svc.GetStats(ctx)["scorer_breaker_open"], ShouldEqual, false)
			})
		})
	})
}
