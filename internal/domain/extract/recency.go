package extract

import (
	"regexp"
	"strconv"
	"time"
)

var yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// Freshness is the verdict of the recency filter.
type Freshness struct {
	Stale      bool
	LatestYear int // 0 when the text carried no usable year
}

// RecencyFilter classifies listings by the years mentioned in their text.
type RecencyFilter struct {
	now func() time.Time
	// staleAge is how many years in the past the newest year must be for
	// the listing to count as stale.
	staleAge int
	// horizon ignores years further ahead than this; they are rarely
	// deadlines ("Vision 2063").
	horizon int
}

// NewRecencyFilter returns a filter that treats listings whose newest year
// is two or more years old as stale.
func NewRecencyFilter(now func() time.Time) RecencyFilter {
	if now == nil {
		now = time.Now
	}
	return RecencyFilter{now: now, staleAge: 2, horizon: 5}
}

// Classify looks at every year in text. The newest plausible year decides:
// current or future years keep the listing, years at least staleAge in the
// past drop it. Text without any year is kept.
func (f RecencyFilter) Classify(text string) Freshness {
	current := f.now().Year()
	latest := 0
	for _, m := range yearPattern.FindAllString(text, -1) {
		y, err := strconv.Atoi(m)
		if err != nil || y > current+f.horizon {
			continue
		}
		if y > latest {
			latest = y
		}
	}
	if latest == 0 {
		return Freshness{}
	}
	return Freshness{Stale: latest <= current-f.staleAge, LatestYear: latest}
}
