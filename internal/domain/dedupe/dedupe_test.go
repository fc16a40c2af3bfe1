package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	dedupe "github.com/okian/scholarsync/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When a URL is new", func() {
			seen := d.SeenAndRecord(ctx, "https://x/a")

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And recording it again reports it as seen", func() {
				So(d.SeenAndRecord(ctx, "https://x/a"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And unrecording lets it through again", func() {
				d.Unrecord(ctx, "https://x/a")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "https://x/a"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown URL", func() {
			d.SeenAndRecord(ctx, "https://x/a")
			d.Unrecord(ctx, "https://x/missing")

			Convey("Then the size is unchanged", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 4; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("u%d", i))
		}

		Convey("Then the oldest entry is evicted", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "u4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "u2"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "u1"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("u%d", i))
		}

		So(d.Size(), ShouldEqual, 1000)
	})

	Convey("Given a deduper with a TTL", t, func() {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		d := dedupe.NewInMemoryDeduper(
			dedupe.WithTTL(time.Hour),
			dedupe.WithClock(func() time.Time { return now }),
		)
		d.SeenAndRecord(ctx, "https://x/a")

		Convey("When the entry is still fresh", func() {
			now = now.Add(59 * time.Minute)

			Convey("Then it counts as seen", func() {
				So(d.SeenAndRecord(ctx, "https://x/a"), ShouldBeTrue)
			})
		})

		Convey("When the entry has expired", func() {
			now = now.Add(2 * time.Hour)

			Convey("Then it is recorded again", func() {
				So(d.SeenAndRecord(ctx, "https://x/a"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "https://x/a"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given goroutines racing on the same URLs", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0

		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(context.Background(), fmt.Sprintf("u%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each URL is new exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
