package service

import (
	"time"

	"github.com/okian/scholarsync/internal/adapters/repository"
	"github.com/okian/scholarsync/internal/adapters/textgen"
	"github.com/okian/scholarsync/internal/domain/dedupe"
	"github.com/okian/scholarsync/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore uses store instead of building one from the storage driver.
// The caller keeps ownership; Stop does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithGenerator uses gen instead of building one from the textgen provider.
func WithGenerator(gen textgen.Generator) Option {
	return func(s *Service) {
		s.generator = gen
	}
}

// WithDeduper uses d as the seen-URL set instead of Redis or memory.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.seen = d
	}
}

// WithClock overrides the clock handed to every component.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
