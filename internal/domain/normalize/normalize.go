// Package normalize canonicalizes extracted records through a
// text-generation collaborator, falling back to the raw record.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/scholarsync/internal/domain/model"
)

// Normalizer canonicalizes a candidate record. The returned record is
// always usable: on any failure it is the input unchanged and the error
// only reports why.
type Normalizer interface {
	Normalize(ctx context.Context, rec model.Scholarship) (model.Scholarship, error)
}

// Generator is the text-generation capability the live normalizer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PassThrough returns records unchanged.
type PassThrough struct{}

// Normalize implements Normalizer.
func (PassThrough) Normalize(_ context.Context, rec model.Scholarship) (model.Scholarship, error) {
	return rec, nil
}

// Live asks a Generator for a canonical JSON rendition of the record.
type Live struct {
	gen     Generator
	timeout time.Duration
}

// Option configures a Live normalizer.
type Option func(*Live)

// WithTimeout bounds a single generation call.
func WithTimeout(d time.Duration) Option {
	return func(l *Live) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// NewLive builds a live normalizer on top of gen.
func NewLive(gen Generator, opts ...Option) *Live {
	l := &Live{gen: gen, timeout: 20 * time.Second}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Normalize implements Normalizer.
func (l *Live) Normalize(ctx context.Context, rec model.Scholarship) (model.Scholarship, error) {
	prompt, err := Prompt(rec)
	if err != nil {
		return rec, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	reply, err := l.gen.Generate(ctx, prompt)
	if err != nil {
		return rec, fmt.Errorf("%w: %w", ErrGeneratorError, err)
	}

	out, err := Overlay(rec, reply)
	if err != nil {
		return rec, err
	}
	return out, nil
}

// Prompt renders the normalization request for rec.
func Prompt(rec model.Scholarship) (string, error) {
	raw, err := json.MarshalIndent(contentOf(rec), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	var b strings.Builder
	b.WriteString("Clean and standardize the following scholarship data.\n\nRaw data:\n")
	b.Write(raw)
	b.WriteString("\n\nReturn a single JSON object with exactly these fields: ")
	b.WriteString(strings.Join(model.ContentFields, ", "))
	b.WriteString(".\n")
	b.WriteString("Rules: level_of_study is one of Undergraduate, Masters, PhD, Postgraduate or empty; ")
	b.WriteString("deadline uses YYYY-MM-DD when the date is known; ")
	b.WriteString("academic_requirements, cgpa_requirements and keywords are arrays of strings; ")
	b.WriteString("use an empty string or empty array for unknown values.\n")
	b.WriteString("Return only the JSON object, no additional text.")
	return b.String(), nil
}

func contentOf(rec model.Scholarship) map[string]any {
	return map[string]any{
		"title":                 rec.Title,
		"description":           rec.Description,
		"provider":              rec.Provider,
		"deadline":              rec.Deadline,
		"country":               rec.Country,
		"level_of_study":        rec.LevelOfStudy,
		"field_of_study":        rec.FieldOfStudy,
		"eligibility":           rec.Eligibility,
		"academic_requirements": rec.AcademicRequirements,
		"cgpa_requirements":     rec.CGPARequirements,
		"benefits":              rec.Benefits,
		"application_link":      rec.ApplicationLink,
		"contact_email":         rec.ContactEmail,
		"keywords":              rec.Keywords,
	}
}

// Overlay parses the first JSON object in reply and copies the known
// content fields onto a copy of rec. Identity fields are never touched and
// an empty title keeps the original one.
func Overlay(rec model.Scholarship, reply string) (model.Scholarship, error) {
	obj, ok := FirstObject(reply)
	if !ok {
		return rec, ErrNoJSON
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	out := rec
	applied := 0
	text := func(key string, dst *string) {
		if v, ok := decodeText(fields[key]); ok {
			*dst = v
			applied++
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := decodeList(fields[key]); ok {
			*dst = v
			applied++
		}
	}

	text("title", &out.Title)
	text("description", &out.Description)
	text("provider", &out.Provider)
	text("deadline", &out.Deadline)
	text("country", &out.Country)
	text("level_of_study", &out.LevelOfStudy)
	text("field_of_study", &out.FieldOfStudy)
	text("eligibility", &out.Eligibility)
	text("benefits", &out.Benefits)
	text("application_link", &out.ApplicationLink)
	text("contact_email", &out.ContactEmail)
	list("academic_requirements", &out.AcademicRequirements)
	list("cgpa_requirements", &out.CGPARequirements)
	list("keywords", &out.Keywords)

	if applied == 0 {
		return rec, ErrNoKnownFields
	}
	if strings.TrimSpace(out.Title) == "" {
		out.Title = rec.Title
	}
	if out.LevelOfStudy != "" {
		out.LevelOfStudy = model.CanonicalLevel(out.LevelOfStudy)
	}
	return out.Clean(), nil
}

// decodeText accepts strings and numbers; null and other shapes are skipped.
func decodeText(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// decodeList accepts an array of strings or a comma separated string.
func decodeList(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return model.NewSet(items...), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return model.SplitList(s), true
	}
	return nil, false
}
