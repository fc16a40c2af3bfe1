package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/okian/scholarsync/internal/adapters/crawl"
	"github.com/okian/scholarsync/internal/domain/dedupe"
	"github.com/okian/scholarsync/internal/domain/model"
	logging "github.com/okian/scholarsync/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

const listingTmpl = `<html><head><title>Scholarships | Opportunity Desk</title></head><body>
<div class="entry-content">
%s
</div>
<a href="/about/">About us</a>
<a href="/category/grants/">Grants</a>
%s
</body></html>`

const detailTmpl = `<html><head><title>%[1]s | Opportunity Desk</title><script>var x = 1;</script></head><body>
<h1 class="entry-title">%[1]s</h1>
<div class="entry-content">
<p>The %[1]s is offered by the University of Sussex.</p>
<h3>Eligibility</h3><p>Applicants must hold a bachelor's degree.</p>
<h3>Benefits</h3><p>Full tuition.</p>
<p><a href="https://apply.example.org/%[2]s">Apply Now</a></p>
</div></body></html>`

// site serves three paginated listing pages and their detail posts.
func site() *httptest.Server {
	mux := http.NewServeMux()
	listing := func(path, links, next string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, listingTmpl, links, next)
		})
	}
	detail := func(path, title string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, detailTmpl, title, strings.Trim(path, "/"))
		})
	}

	listing("/list/",
		`<a href="/2025/01/10/alpha-scholarship/">Alpha Scholarship 2025</a>
		 <a href="/2025/01/11/beta-fellowship/">Beta Fellowship</a>
		 <a href="/2025/01/10/alpha-scholarship/#comments">Comments</a>`,
		`<a class="next" href="/list/page/2/">Next</a>`)
	listing("/list/page/2/",
		`<a href="/2025/02/01/gamma-grant/">Gamma Grant</a>
		 <a href="/2025/02/02/missing-scholarship/">Missing Scholarship</a>`,
		`<a rel="next" href="/list/page/3/">Older posts</a>`)
	listing("/list/page/3/",
		`<a href="/2025/03/01/delta-bursary/">Delta Bursary</a>`,
		``)
	detail("/2025/01/10/alpha-scholarship/", "Alpha Scholarship 2025")
	detail("/2025/01/11/beta-fellowship/", "Beta Fellowship")
	detail("/2025/02/01/gamma-grant/", "Gamma Grant")
	detail("/2025/03/01/delta-bursary/", "Delta Bursary")
	mux.HandleFunc("/2025/02/02/missing-scholarship/", http.NotFound)
	mux.HandleFunc("/about/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>About</h1></body></html>`)
	})

	return httptest.NewServer(mux)
}

type collectingSink struct {
	mu    sync.Mutex
	pages []model.Page
	fail  error
}

func (c *collectingSink) Accept(_ context.Context, p model.Page) error { //nolint:gocritic // hugeParam
	if c.fail != nil {
		return c.fail
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = append(c.pages, p)
	return nil
}

func (c *collectingSink) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.pages))
	for _, p := range c.pages {
		i := strings.Index(p.URL, "/20")
		out = append(out, p.URL[i:])
	}
	sort.Strings(out)
	return out
}

func TestSession(t *testing.T) {
	Convey("Given a paginated listing site", t, func() {
		srv := site()
		Reset(srv.Close)

		cfg := crawl.Config{
			StartURLs:   []string{srv.URL + "/list/"},
			Parallelism: 4,
		}
		sink := &collectingSink{}

		Convey("When crawling without a depth bound", func() {
			stats, err := crawl.NewSession(cfg, sink).Run(context.Background())

			Convey("Then every reachable detail page is emitted once", func() {
				So(err, ShouldBeNil)
				So(sink.paths(), ShouldResemble, []string{
					"/2025/01/10/alpha-scholarship/",
					"/2025/01/11/beta-fellowship/",
					"/2025/02/01/gamma-grant/",
					"/2025/03/01/delta-bursary/",
				})
				So(stats.Pages, ShouldEqual, 4)
				So(stats.Listings, ShouldEqual, 3)
			})

			Convey("Then the failed detail page produces no item", func() {
				So(stats.Errors, ShouldEqual, 1)
				for _, p := range sink.pages {
					So(p.URL, ShouldNotContainSubstring, "missing")
				}
			})

			Convey("Then pages carry the parsed document", func() {
				var alpha model.Page
				for _, p := range sink.pages {
					if strings.Contains(p.URL, "alpha") {
						alpha = p
					}
				}
				So(alpha.Status, ShouldEqual, http.StatusOK)
				So(alpha.Heading, ShouldEqual, "Alpha Scholarship 2025")
				So(alpha.Content, ShouldContainSubstring, "offered by the University of Sussex")
				So(alpha.Content, ShouldNotContainSubstring, "var x")
				So(alpha.Links, ShouldContain, model.Link{Text: "Apply Now", Href: "https://apply.example.org/2025/01/10/alpha-scholarship"})
			})
		})

		Convey("When the depth is bounded to the first listing page", func() {
			cfg.MaxDepth = 1
			stats, err := crawl.NewSession(cfg, sink).Run(context.Background())

			Convey("Then pagination is not followed", func() {
				So(err, ShouldBeNil)
				So(stats.Listings, ShouldEqual, 1)
				So(sink.paths(), ShouldResemble, []string{
					"/2025/01/10/alpha-scholarship/",
					"/2025/01/11/beta-fellowship/",
				})
			})
		})

		Convey("When the page budget is tiny", func() {
			cfg.MaxPages = 2
			cfg.Parallelism = 1
			stats, err := crawl.NewSession(cfg, sink).Run(context.Background())

			Convey("Then at most the budget is fetched", func() {
				So(err, ShouldBeNil)
				So(stats.Listings+stats.Pages+stats.Errors, ShouldBeLessThanOrEqualTo, 2)
			})
		})

		Convey("When two runs share a deduper", func() {
			seen := dedupe.NewInMemoryDeduper()
			_, err := crawl.NewSession(cfg, sink, crawl.WithDeduper(seen)).Run(context.Background())
			So(err, ShouldBeNil)

			second := &collectingSink{}
			stats, err := crawl.NewSession(cfg, second, crawl.WithDeduper(seen)).Run(context.Background())

			Convey("Then the second run skips what the first ingested", func() {
				So(err, ShouldBeNil)
				So(second.paths(), ShouldBeEmpty)
				So(stats.SeenSkipped, ShouldEqual, 4)
			})

			Convey("Then the failed page is retried", func() {
				So(stats.Errors, ShouldEqual, 1)
			})
		})

		Convey("When the sink refuses pages", func() {
			seen := dedupe.NewInMemoryDeduper()
			sink.fail = errors.New("queue closed")
			stats, _ := crawl.NewSession(cfg, sink, crawl.WithDeduper(seen)).Run(context.Background())

			Convey("Then the run stops and refused pages stay unseen", func() {
				So(stats.Pages, ShouldEqual, 0)
				So(seen.SeenAndRecord(context.Background(), srv.URL+"/2025/01/10/alpha-scholarship/"), ShouldBeFalse)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			stats, err := crawl.NewSession(cfg, sink).Run(ctx)

			Convey("Then nothing is fetched and the cause is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(stats.Pages, ShouldEqual, 0)
			})
		})

		Convey("When seeds are given instead of listings", func() {
			cfg.StartURLs = nil
			cfg.Seeds = []string{srv.URL + "/2025/03/01/delta-bursary/"}
			_, err := crawl.NewSession(cfg, sink).Run(context.Background())

			Convey("Then seeds are fetched as detail pages", func() {
				So(err, ShouldBeNil)
				So(sink.paths(), ShouldResemble, []string{"/2025/03/01/delta-bursary/"})
			})
		})
	})

	Convey("Given a session", t, func() {
		Convey("Then it refuses to run without urls", func() {
			_, err := crawl.NewSession(crawl.Config{}, &collectingSink{}).Run(context.Background())
			So(errors.Is(err, crawl.ErrNoStartURLs), ShouldBeTrue)
		})

		Convey("Then it refuses a second run", func() {
			srv := site()
			defer srv.Close()
			s := crawl.NewSession(crawl.Config{Seeds: []string{srv.URL + "/about/"}}, &collectingSink{})
			_, err := s.Run(context.Background())
			So(err, ShouldBeNil)
			_, err = s.Run(context.Background())
			So(errors.Is(err, crawl.ErrSessionUsed), ShouldBeTrue)
		})
	})
}

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Opportunity Desk</title>
<item><title>Alpha</title><link>https://opportunitydesk.org/2025/01/10/alpha-scholarship/</link></item>
<item><title>Beta</title><link>https://opportunitydesk.org/2025/01/11/beta-fellowship/</link></item>
<item><title>Alpha again</title><link>https://opportunitydesk.org/2025/01/10/alpha-scholarship/</link></item>
</channel></rss>`

func TestFeedSeeds(t *testing.T) {
	Convey("Given a feed server", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/feed/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, rss)
		}))
		Reset(srv.Close)

		Convey("When the feed is readable", func() {
			seeds, err := crawl.FeedSeeds(context.Background(), []string{srv.URL + "/feed/"}, "scholarsync-test")

			Convey("Then item links become unique seeds in order", func() {
				So(err, ShouldBeNil)
				So(seeds, ShouldResemble, []string{
					"https://opportunitydesk.org/2025/01/10/alpha-scholarship/",
					"https://opportunitydesk.org/2025/01/11/beta-fellowship/",
				})
			})
		})

		Convey("When one feed is broken", func() {
			seeds, err := crawl.FeedSeeds(context.Background(), []string{srv.URL + "/nope/", srv.URL + "/feed/"}, "")

			Convey("Then the good feed still yields seeds and the error names the broken one", func() {
				So(seeds, ShouldHaveLength, 2)
				So(errors.Is(err, crawl.ErrFeed), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "/nope/")
			})
		})
	})
}
