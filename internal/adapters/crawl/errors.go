package crawl

import "errors"

var (
	ErrNoStartURLs = errors.New("crawl: no start or seed urls")
	ErrSessionUsed = errors.New("crawl: session already run")
	ErrFeed        = errors.New("crawl: feed unavailable")
)
