// Package scoring defines the contract for rating how well a scholarship
// fits a user profile.
package scoring

import (
	"context"

	"github.com/okian/scholarsync/internal/domain/model"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// Rubric weights. They add up to MaxScore.
const (
	WeightLevel       = 30
	WeightField       = 25
	WeightEligibility = 20
	WeightGeography   = 15
	WeightSkills      = 10
)

// Scorer rates a (profile, scholarship) pair. Implementations may return
// values outside [MinScore, MaxScore]; callers clamp.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, profile model.UserProfile, rec model.Scholarship) (int, error)
}

// Generator is the text-generation capability the live scorer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Clamp bounds v to [MinScore, MaxScore].
func Clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
