package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/okian/scholarsync/pkg/logger"
)

const feedTimeout = 30 * time.Second

// FeedSeeds expands RSS/Atom feeds into detail page URLs, in feed order and
// without duplicates. A feed that cannot be read is skipped; the error lists
// every skipped feed and is nil when all of them were read.
func FeedSeeds(ctx context.Context, feedURLs []string, userAgent string) ([]string, error) {
	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: feedTimeout}
	if userAgent != "" {
		fp.UserAgent = userAgent
	}
	log := logger.Get().Named("crawl-feed")

	var (
		seeds []string
		errs  []error
	)
	seen := map[string]bool{}
	for _, u := range feedURLs {
		feed, err := fp.ParseURLWithContext(u, ctx)
		if err != nil {
			log.Warn(ctx, "feed skipped", logger.String("feed", u), logger.Error(err))
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrFeed, u, err))
			continue
		}
		for _, item := range feed.Items {
			link := resolve(nil, item.Link)
			if link == "" || seen[link] {
				continue
			}
			seen[link] = true
			seeds = append(seeds, link)
		}
		log.Debug(ctx, "feed read", logger.String("feed", u), logger.Int("items", len(feed.Items)))
	}
	return seeds, errors.Join(errs...)
}
