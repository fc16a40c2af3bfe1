// Package ingest runs fetched pages through extraction, normalization and
// the deduplicating upsert.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/pkg/metrics"
)

const defaultLockStripes = 64

// RecordStore persists records keyed by source_url.
type RecordStore interface {
	Upsert(ctx context.Context, rec model.Scholarship) (model.UpsertResult, error)
}

// Upserter serializes upserts of the same source_url inside this process.
// Distinct URLs hash to independent stripes most of the time; the store's
// uniqueness constraint covers writers in other processes.
type Upserter struct {
	store RecordStore
	locks []sync.Mutex
}

// UpserterOption configures an Upserter.
type UpserterOption func(*Upserter)

// WithLockStripes sets the number of lock stripes.
func WithLockStripes(n int) UpserterOption {
	return func(u *Upserter) {
		if n > 0 {
			u.locks = make([]sync.Mutex, n)
		}
	}
}

// NewUpserter builds an Upserter over store.
func NewUpserter(store RecordStore, opts ...UpserterOption) *Upserter {
	u := &Upserter{store: store, locks: make([]sync.Mutex, defaultLockStripes)}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Upserter) lockFor(sourceURL string) *sync.Mutex {
	return &u.locks[xxhash.Sum64String(sourceURL)%uint64(len(u.locks))]
}

// Upsert writes rec, holding the stripe lock of its source_url.
func (u *Upserter) Upsert(ctx context.Context, rec model.Scholarship) (model.UpsertResult, error) {
	mu := u.lockFor(rec.SourceURL)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	res, err := u.store.Upsert(ctx, rec)
	if err != nil {
		metrics.RecordUpsertError()
		metrics.RecordErrorByComponent("upserter", "store_error")
		return model.UpsertResult{}, err
	}

	op := "update"
	if res.Inserted {
		op = "insert"
	}
	metrics.RecordUpsert(op, float64(time.Since(start).Milliseconds()))
	return res, nil
}
