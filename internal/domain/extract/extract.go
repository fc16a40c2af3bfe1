// Package extract turns fetched scholarship pages into candidate records.
//
// Every field is described by a Chain: an ordered list of matchers where
// the first non-empty capture wins and exhaustion yields an empty value.
package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okian/scholarsync/internal/domain/model"
)

// Extractor is stateless after construction and safe for concurrent use.
type Extractor struct {
	now           func() time.Time
	sourceWebsite string
	countries     []string

	fields  fields
	recency RecencyFilter
}

// New builds an Extractor with the default vocabularies.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		now:       time.Now,
		countries: knownCountries,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.fields = newFields(e.countries)
	e.recency = NewRecencyFilter(e.now)
	return e
}

// Relevant reports whether the page mentions any scholarship indicator in
// its title, heading or content.
func Relevant(p model.Page) bool {
	return relevanceTerms.MatchString(p.Heading) ||
		relevanceTerms.MatchString(p.Title) ||
		relevanceTerms.MatchString(p.Content)
}

// Extract classifies the page and extracts a candidate record.
//
// It returns ErrNotScholarship when no indicator term is present,
// ErrMissingTitle when no title can be found and ErrStale when the listing
// only carries old year evidence. On ErrStale the extracted record is
// returned as well so callers can log it.
func (e *Extractor) Extract(p model.Page) (model.Scholarship, error) {
	if !Relevant(p) {
		return model.Scholarship{}, ErrNotScholarship
	}

	in := &Input{
		URL:      p.SourceURL(),
		RawTitle: p.Title,
		Heading:  p.Heading,
		Content:  p.Content,
		Sections: p.Sections,
		Links:    p.Links,
	}

	t, _ := e.fields.title.Eval(in)
	if t == "" {
		return model.Scholarship{}, ErrMissingTitle
	}
	in.Title = t

	rec := e.fill(in)
	rec.Title = t
	rec.SourceURL = in.URL
	rec.SourceWebsite = e.website(in.URL)
	rec.ExtractedDate = e.now().Format("2006-01-02")
	rec = rec.Clean()

	// Description is truncated by Clean; a missing deadline falls back to
	// the full page text.
	evidence := rec.Deadline
	if evidence == "" {
		evidence = in.Content
	}
	if f := e.recency.Classify(evidence); f.Stale {
		return rec, fmt.Errorf("%w: newest year %d", ErrStale, f.LatestYear)
	}
	return rec, nil
}

func (e *Extractor) fill(in *Input) model.Scholarship {
	f := e.fields
	var rec model.Scholarship
	rec.Description = in.Content
	rec.Provider, _ = f.provider.Eval(in)
	rec.Deadline, _ = f.deadline.Eval(in)
	rec.Country, _ = f.country.Eval(in)
	rec.LevelOfStudy, _ = f.level.Eval(in)
	rec.FieldOfStudy, _ = f.field.Eval(in)
	rec.Eligibility, _ = f.eligibility.Eval(in)
	rec.Benefits, _ = f.benefits.Eval(in)
	rec.ApplicationLink, _ = f.applyLink.Eval(in)
	rec.ContactEmail, _ = f.email.Eval(in)
	rec.AcademicRequirements, _ = f.academicReqs.Eval(in)
	rec.CGPARequirements, _ = f.cgpaReqs.Eval(in)
	rec.Keywords, _ = f.keywords.Eval(in)
	return rec
}

func (e *Extractor) website(raw string) string {
	if e.sourceWebsite != "" {
		return e.sourceWebsite
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
