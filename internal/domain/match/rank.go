package match

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/okian/scholarsync/internal/domain/model"
)

// Scored pairs a candidate with its clamped score.
type Scored struct {
	Scholarship model.Scholarship
	Score       int
}

// Rank keeps candidates scoring above threshold and orders them by score
// descending, then nearer deadline, then ascending id. It returns at most
// k entries. now anchors "nearer": upcoming deadlines come first (soonest
// first), then passed ones (most recent first), then undated ones.
func Rank(cands []Scored, threshold, k int, now time.Time) []Scored {
	type keyed struct {
		Scored
		bucket   int
		distance time.Duration
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	qualified := make([]keyed, 0, len(cands))
	for _, c := range cands {
		if c.Score <= threshold {
			continue
		}
		kd := keyed{Scored: c, bucket: 2}
		if d, ok := c.Scholarship.DeadlineTime(); ok {
			if d.Before(today) {
				kd.bucket, kd.distance = 1, today.Sub(d)
			} else {
				kd.bucket, kd.distance = 0, d.Sub(today)
			}
		}
		qualified = append(qualified, kd)
	}

	slices.SortFunc(qualified, func(a, b keyed) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.bucket, b.bucket); c != 0 {
			return c
		}
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return strings.Compare(a.Scholarship.ID, b.Scholarship.ID)
	})

	if k >= 0 && len(qualified) > k {
		qualified = qualified[:k]
	}
	out := make([]Scored, len(qualified))
	for i, q := range qualified {
		out[i] = q.Scored
	}
	return out
}
