// Package repository persists scholarship records, user profiles and
// per-user suggestion sets.
package repository

import (
	"context"

	"github.com/okian/scholarsync/internal/domain/model"
)

// Store provides read/write access to the record pool and suggestion sets.
type Store interface {
	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Upsert inserts rec if its source_url is unknown, otherwise updates the
	// existing row in place. id and created_at of an existing row are
	// preserved, updated_at is refreshed. The write is a single transaction.
	Upsert(ctx context.Context, rec model.Scholarship) (model.UpsertResult, error)

	// GetByID returns ErrNotFound if the id is unknown.
	GetByID(ctx context.Context, id string) (model.Scholarship, error)
	// GetBySourceURL returns ErrNotFound if the url is unknown.
	GetBySourceURL(ctx context.Context, sourceURL string) (model.Scholarship, error)
	// List returns records ordered by id, at most limit (0 = all).
	List(ctx context.Context, offset, limit int) ([]model.Scholarship, error)
	// Search returns the page of records passing f, ordered by id, and how
	// many records pass f in total.
	Search(ctx context.Context, f model.Filter, offset, limit int) ([]model.Scholarship, int, error)
	// Count returns the number of records in the pool.
	Count(ctx context.Context) (int, error)

	// Suggestions returns the live suggestion set of a user ordered by rank.
	Suggestions(ctx context.Context, userID string) ([]model.Suggestion, error)
	// ReplaceSuggestions atomically swaps the user's suggestion set. On error
	// the previous set is left intact.
	ReplaceSuggestions(ctx context.Context, userID string, set []model.Suggestion) error

	// Profile returns ErrNotFound if the user has no profile.
	Profile(ctx context.Context, userID string) (model.UserProfile, error)
	SaveProfile(ctx context.Context, p model.UserProfile) error
}
