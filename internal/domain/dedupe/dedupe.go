// Package dedupe tracks recently seen page URLs so repeated crawl runs skip
// detail pages they already ingested.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen (and has not expired), false if it
	// was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the next run retries it. Used when a page was
	// recorded but could not be handed to the pipeline.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type entry struct {
	id string
	at time.Time
}

// inMemoryDeduper keeps at most maxSize keys, evicting the oldest first.
// Keys older than ttl count as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is the most recently recorded
	maxSize int        // 0 or negative = unbounded
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &inMemoryDeduper{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: s.maxSize,
		ttl:     s.ttl,
		now:     s.now,
	}
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.seen[id]; ok {
		e := el.Value.(*entry) //nolint:forcetypeassert // only *entry is stored
		if d.ttl <= 0 || now.Sub(e.at) < d.ttl {
			return true
		}
		e.at = now
		d.order.MoveToFront(el)
		return false
	}

	d.seen[id] = d.order.PushFront(&entry{id: id, at: now})
	if d.maxSize > 0 {
		for d.order.Len() > d.maxSize {
			d.remove(d.order.Back())
		}
	}
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.remove(el)
	}
}

// remove must be called with d.mu held.
func (d *inMemoryDeduper) remove(el *list.Element) {
	e := d.order.Remove(el).(*entry) //nolint:forcetypeassert // only *entry is stored
	delete(d.seen, e.id)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
