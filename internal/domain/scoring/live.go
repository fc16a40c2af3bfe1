package scoring

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okian/scholarsync/internal/domain/model"
)

const defaultLiveTimeout = 20 * time.Second

// Live delegates scoring to a text-generation collaborator. Replies are
// free text; the first digit run is the score.
type Live struct {
	gen         Generator
	timeout     time.Duration
	unavailable func(error) bool
}

// Option configures a Live scorer.
type Option func(*Live)

// WithTimeout bounds a single generation call.
func WithTimeout(d time.Duration) Option {
	return func(l *Live) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithUnavailableCheck decides which generator errors mean the collaborator
// is unreachable. Only those wrap ErrUnavailable.
func WithUnavailableCheck(fn func(error) bool) Option {
	return func(l *Live) {
		if fn != nil {
			l.unavailable = fn
		}
	}
}

func deadlineOnly(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// NewLive builds a live scorer on top of gen. Without an unavailable check
// only timeouts count as unreachable.
func NewLive(gen Generator, opts ...Option) *Live {
	l := &Live{gen: gen, timeout: defaultLiveTimeout, unavailable: deadlineOnly}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Score implements Scorer. Errors the unavailable check accepts wrap
// ErrUnavailable; other generator errors are returned as-is with a zero
// score. Replies without digits return 0 and ErrUnparseable.
func (l *Live) Score(ctx context.Context, p model.UserProfile, rec model.Scholarship) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	reply, err := l.gen.Generate(ctx, MatchPrompt(p, rec))
	if err != nil {
		if l.unavailable(err) {
			return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return 0, err
	}
	return ParseScore(reply)
}

var digits = regexp.MustCompile(`\d+`)

// ParseScore reads the first digit run of reply and clamps it.
func ParseScore(reply string) (int, error) {
	m := digits.FindString(reply)
	if m == "" {
		return 0, ErrUnparseable
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return MaxScore, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return Clamp(v), nil
}

// MatchPrompt renders the rubric request for one pair.
func MatchPrompt(p model.UserProfile, rec model.Scholarship) string {
	var b strings.Builder
	b.WriteString("Analyze the match between this user profile and scholarship opportunity.\n\n")
	b.WriteString("User profile:\n")
	line(&b, "Level of study", p.LevelOfStudy)
	line(&b, "Field of study", p.FieldOfStudy)
	line(&b, "Institution", p.Institution)
	line(&b, "Academic performance", p.AcademicPerformance)
	line(&b, "Country", p.Country)
	line(&b, "State of origin", p.StateOfOrigin)
	line(&b, "Gender", p.Gender)
	line(&b, "Religion", p.Religion)
	line(&b, "Skills and interests", p.SkillsInterests)

	b.WriteString("\nScholarship:\n")
	line(&b, "Title", rec.Title)
	line(&b, "Level of study", rec.LevelOfStudy)
	line(&b, "Field of study", rec.FieldOfStudy)
	line(&b, "Eligibility", rec.Eligibility)
	line(&b, "Academic requirements", strings.Join(rec.AcademicRequirements, "; "))
	line(&b, "CGPA requirements", strings.Join(rec.CGPARequirements, "; "))
	line(&b, "Country", rec.Country)

	fmt.Fprintf(&b, "\nScore the match from 0 to 100 using these weights: level of study %d%%, "+
		"field of study %d%%, eligibility criteria %d%%, geographic relevance %d%%, skills and interests %d%%.\n",
		WeightLevel, WeightField, WeightEligibility, WeightGeography, WeightSkills)
	b.WriteString("Return only the number.")
	return b.String()
}

func line(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		value = "Not specified"
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}
