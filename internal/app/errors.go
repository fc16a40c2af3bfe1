package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need running components.
	ErrNotStarted = errors.New("service not started")
	// ErrCrawlRunning is returned when a crawl is requested while one is in progress.
	ErrCrawlRunning = errors.New("crawl already running")
	// ErrUnknownStorage reports an unsupported storage driver.
	ErrUnknownStorage = errors.New("unknown storage driver")
)
