package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/scholarsync/internal/adapters/repository"
	"github.com/okian/scholarsync/internal/domain/extract"
	"github.com/okian/scholarsync/internal/domain/ingest"
	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func page(url, heading, content string) model.Page {
	return model.Page{URL: url, Status: 200, Heading: heading, Content: content}
}

type failingStore struct {
	repository.Store
	failFor string
}

func (f failingStore) Upsert(ctx context.Context, rec model.Scholarship) (model.UpsertResult, error) {
	if rec.SourceURL == f.failFor {
		return model.UpsertResult{}, errors.New("connection reset")
	}
	return f.Store.Upsert(ctx, rec)
}

type brokenNormalizer struct{}

func (brokenNormalizer) Normalize(_ context.Context, rec model.Scholarship) (model.Scholarship, error) {
	rec.Title = "should never be used"
	return rec, errors.New("upstream timeout")
}

type upperNormalizer struct{}

func (upperNormalizer) Normalize(_ context.Context, rec model.Scholarship) (model.Scholarship, error) {
	rec.Provider = "Normalized " + rec.Provider
	return rec, nil
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	clock := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	Convey("Given a pipeline over an in-memory store", t, func() {
		store := repository.NewMemStore(ctx)
		Reset(func() { _ = store.Close() })
		ex := extract.New(extract.WithClock(clock))
		p := ingest.NewPipeline(ex, nil, ingest.NewUpserter(store))

		Convey("When the same URL is ingested with a new title", func() {
			first := p.Process(ctx, page("https://x/y", "Alpha Scholarship", "A scholarship offered by Acme."))
			second := p.Process(ctx, page("https://x/y", "Beta Scholarship", "A scholarship offered by Acme."))

			Convey("Then one row carries the latest title", func() {
				So(first.Outcome, ShouldEqual, ingest.OutcomeInserted)
				So(second.Outcome, ShouldEqual, ingest.OutcomeUpdated)
				So(second.ID, ShouldEqual, first.ID)

				n, _ := store.Count(ctx)
				So(n, ShouldEqual, 1)
				rec, _ := store.GetBySourceURL(ctx, "https://x/y")
				So(rec.Title, ShouldEqual, "Beta Scholarship")
			})
		})

		Convey("When pages are dropped", func() {
			non200 := page("https://x/404", "Scholarship", "scholarship")
			non200.Status = 404

			Convey("Then each drop has its outcome and nothing is stored", func() {
				So(p.Process(ctx, non200).Outcome, ShouldEqual, ingest.OutcomeSkipped)
				So(p.Process(ctx, page("https://x/about", "About", "Our team")).Outcome, ShouldEqual, ingest.OutcomeRejected)
				So(p.Process(ctx, page("https://x/untitled", "", "A scholarship")).Outcome, ShouldEqual, ingest.OutcomeRejected)

				stale := p.Process(ctx, page("https://x/old", "Old Scholarship", "Deadline: 2022."))
				So(stale.Outcome, ShouldEqual, ingest.OutcomeStale)
				So(errors.Is(stale.Err, extract.ErrStale), ShouldBeTrue)

				n, _ := store.Count(ctx)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When normalization fails", func() {
			p := ingest.NewPipeline(ex, brokenNormalizer{}, ingest.NewUpserter(store))
			res := p.Process(ctx, page("https://x/n", "Gamma Scholarship", "scholarship"))

			Convey("Then the raw record is stored", func() {
				So(res.Outcome, ShouldEqual, ingest.OutcomeInserted)
				rec, _ := store.GetByID(ctx, res.ID)
				So(rec.Title, ShouldEqual, "Gamma Scholarship")
			})
		})

		Convey("When normalization succeeds", func() {
			p := ingest.NewPipeline(ex, upperNormalizer{}, ingest.NewUpserter(store))
			res := p.Process(ctx, page("https://x/m", "Delta Scholarship", "A scholarship offered by Acme."))

			Convey("Then the normalized record is stored", func() {
				rec, _ := store.GetByID(ctx, res.ID)
				So(rec.Provider, ShouldEqual, "Normalized Acme")
			})
		})

		Convey("When one item of a batch fails to store", func() {
			p := ingest.NewPipeline(ex, nil, ingest.NewUpserter(failingStore{Store: store, failFor: "https://x/2"}))
			sum := p.ProcessBatch(ctx, []model.Page{
				page("https://x/1", "One Scholarship", "scholarship"),
				page("https://x/2", "Two Scholarship", "scholarship"),
				page("https://x/3", "Three Scholarship", "scholarship"),
			})

			Convey("Then the rest of the batch is committed", func() {
				So(sum[ingest.OutcomeInserted], ShouldEqual, 2)
				So(sum[ingest.OutcomeFailed], ShouldEqual, 1)
				So(sum.Total(), ShouldEqual, 3)
				_, err := store.GetBySourceURL(ctx, "https://x/2")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			sum := p.ProcessBatch(cctx, []model.Page{page("https://x/1", "One Scholarship", "scholarship")})

			So(sum.Total(), ShouldEqual, 0)
		})

		Convey("When workers race on the same URLs", func() {
			var wg sync.WaitGroup
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 10; i++ {
						p.Process(ctx, page(fmt.Sprintf("https://x/%d", i), fmt.Sprintf("Scholarship v%d", w), "scholarship"))
					}
				}(w)
			}
			wg.Wait()

			Convey("Then each URL has exactly one row", func() {
				n, _ := store.Count(ctx)
				So(n, ShouldEqual, 10)
			})
		})
	})
}
