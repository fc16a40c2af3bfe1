package scoring

import (
	"context"
	"regexp"
	"strings"

	"github.com/okian/scholarsync/internal/domain/model"
)

// Heuristic scores by attribute overlap over the five rubric dimensions.
// It is deterministic and never fails.
type Heuristic struct{}

// NewHeuristic returns the deterministic scorer.
func NewHeuristic() Heuristic { return Heuristic{} }

var (
	openToAll = regexp.MustCompile(`(?i)\b(open to all|all nationalities|any nationality|all countries|worldwide|everyone|international (?:students|applicants))\b`)
	anywhere  = regexp.MustCompile(`(?i)\b(international|worldwide|global|any country|all countries|online)\b`)
	wordRx    = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "studies": true,
	"study": true, "from": true, "all": true, "any": true, "of": true,
}

// Score implements Scorer.
func (Heuristic) Score(ctx context.Context, p model.UserProfile, rec model.Scholarship) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	total := levelScore(p, rec) + fieldScore(p, rec) + eligibilityScore(p, rec) +
		geographyScore(p, rec) + skillsScore(p, rec)
	return Clamp(total), nil
}

func levelScore(p model.UserProfile, rec model.Scholarship) int {
	want := model.CanonicalLevel(p.LevelOfStudy)
	have := model.CanonicalLevel(rec.LevelOfStudy)
	switch {
	case have == model.LevelUnspecified:
		return WeightLevel / 2
	case want == have:
		return WeightLevel
	case have == model.LevelPostgraduate && (want == model.LevelMasters || want == model.LevelPhD),
		want == model.LevelPostgraduate && (have == model.LevelMasters || have == model.LevelPhD):
		return WeightLevel * 2 / 3
	}
	return 0
}

func fieldScore(p model.UserProfile, rec model.Scholarship) int {
	want := strings.ToLower(strings.TrimSpace(p.FieldOfStudy))
	have := strings.ToLower(strings.TrimSpace(rec.FieldOfStudy))
	if want == "" {
		return WeightField / 2
	}
	if have == "" {
		if strings.Contains(strings.ToLower(rec.Title+" "+rec.Description), want) {
			return WeightField * 3 / 4
		}
		return WeightField / 2
	}
	if strings.Contains(have, want) || strings.Contains(want, have) {
		return WeightField
	}
	if overlap(tokens(want), tokens(have)) > 0 {
		return WeightField / 2
	}
	return 0
}

func eligibilityScore(p model.UserProfile, rec model.Scholarship) int {
	text := rec.Eligibility + " " + strings.Join(rec.AcademicRequirements, " ")
	switch {
	case strings.TrimSpace(text) == "":
		return WeightEligibility / 2
	case openToAll.MatchString(text):
		return WeightEligibility
	case mentions(text, p.Country), mentions(text, p.Gender), mentions(text, p.Institution):
		return WeightEligibility
	}
	return WeightEligibility / 4
}

func geographyScore(p model.UserProfile, rec model.Scholarship) int {
	switch {
	case strings.TrimSpace(rec.Country) == "":
		return WeightGeography / 2
	case anywhere.MatchString(rec.Country), mentions(rec.Country, p.Country),
		mentions(rec.Eligibility, p.Country):
		return WeightGeography
	}
	return WeightGeography / 3
}

func skillsScore(p model.UserProfile, rec model.Scholarship) int {
	skills := tokens(p.SkillsInterests)
	if len(skills) == 0 {
		return 0
	}
	corpus := tokens(rec.Title + " " + rec.Description + " " + rec.FieldOfStudy + " " + strings.Join(rec.Keywords, " "))
	switch n := overlap(skills, corpus); {
	case n >= 2:
		return WeightSkills
	case n == 1:
		return WeightSkills / 2
	}
	return 0
}

func mentions(text, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(term))
}

func tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range wordRx.FindAllString(strings.ToLower(s), -1) {
		if len(w) < 3 || stopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

func overlap(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}
