package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/pkg/metrics"
)

// MemStore keeps everything in process memory. It backs tests and the
// storage_driver=memory mode.
type MemStore struct {
	mu          sync.RWMutex
	byID        map[string]model.Scholarship
	bySource    map[string]string // source_url -> id
	suggestions map[string][]model.Suggestion
	profiles    map[string]model.UserProfile

	settings settings
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemStore constructs an in-memory store and starts its metrics updater.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		byID:        make(map[string]model.Scholarship),
		bySource:    make(map[string]string),
		suggestions: make(map[string][]model.Suggestion),
		profiles:    make(map[string]model.UserProfile),
		settings:    applyOptions(opts),
		stopChan:    make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the metrics updater.
func (s *MemStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Ping implements Store.
func (s *MemStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Upsert implements Store.
func (s *MemStore) Upsert(ctx context.Context, rec model.Scholarship) (model.UpsertResult, error) {
	if err := validate(rec); err != nil {
		return model.UpsertResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.UpsertResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.settings.now()
	if id, ok := s.bySource[rec.SourceURL]; ok {
		prev := s.byID[id]
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
		rec.UpdatedAt = now
		s.byID[id] = rec
		return model.UpsertResult{ID: id}, nil
	}

	rec.ID = s.settings.newID()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.byID[rec.ID] = rec
	s.bySource[rec.SourceURL] = rec.ID
	return model.UpsertResult{ID: rec.ID, Inserted: true}, nil
}

// GetByID implements Store.
func (s *MemStore) GetByID(_ context.Context, id string) (model.Scholarship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return model.Scholarship{}, ErrNotFound
	}
	return rec, nil
}

// GetBySourceURL implements Store.
func (s *MemStore) GetBySourceURL(_ context.Context, sourceURL string) (model.Scholarship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySource[sourceURL]
	if !ok {
		return model.Scholarship{}, ErrNotFound
	}
	return s.byID[id], nil
}

// List implements Store.
func (s *MemStore) List(ctx context.Context, offset, limit int) ([]model.Scholarship, error) {
	out, _, err := s.Search(ctx, model.Filter{}, offset, limit)
	return out, err
}

// Search implements Store.
func (s *MemStore) Search(_ context.Context, f model.Filter, offset, limit int) ([]model.Scholarship, int, error) {
	s.mu.RLock()
	out := make([]model.Scholarship, 0, len(s.byID))
	for _, rec := range s.byID {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []model.Scholarship{}, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

// Count implements Store.
func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Suggestions implements Store.
func (s *MemStore) Suggestions(_ context.Context, userID string) ([]model.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.suggestions[userID]
	out := make([]model.Suggestion, len(set))
	copy(out, set)
	return out, nil
}

// ReplaceSuggestions implements Store. The new set is built aside and
// swapped in under the lock.
func (s *MemStore) ReplaceSuggestions(ctx context.Context, userID string, set []model.Suggestion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := make([]model.Suggestion, len(set))
	for i, sg := range set {
		sg.UserID = userID
		next[i] = sg
	}
	sort.SliceStable(next, func(i, j int) bool { return next[i].Rank < next[j].Rank })

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sg := range next {
		if _, ok := s.byID[sg.ScholarshipID]; !ok {
			return ErrNotFound
		}
	}
	s.suggestions[userID] = next
	return nil
}

// Profile implements Store.
func (s *MemStore) Profile(_ context.Context, userID string) (model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return model.UserProfile{}, ErrNotFound
	}
	return p, nil
}

// SaveProfile implements Store.
func (s *MemStore) SaveProfile(_ context.Context, p model.UserProfile) error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrInvalidProfile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *MemStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.settings.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				n, _ := s.Count(ctx)
				metrics.UpdateTotalScholarships(n)
			}
		}
	}()
}

func validate(rec model.Scholarship) error {
	if strings.TrimSpace(rec.SourceURL) == "" || strings.TrimSpace(rec.Title) == "" {
		return ErrInvalidRecord
	}
	return nil
}
