package model

import (
	"strings"
	"time"
)

// Levels of study recognised by extraction and scoring. An empty level means
// the listing did not say.
const (
	LevelUndergraduate = "Undergraduate"
	LevelPostgraduate  = "Postgraduate"
	LevelMasters       = "Masters"
	LevelPhD           = "PhD"
	LevelUnspecified   = ""
)

// Scholarship is one scholarship listing. JSON names are the canonical
// field names shared with the normalizer prompt and the storage schema.
type Scholarship struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Provider             string    `json:"provider"`
	Deadline             string    `json:"deadline"`
	Country              string    `json:"country"`
	LevelOfStudy         string    `json:"level_of_study"`
	FieldOfStudy         string    `json:"field_of_study"`
	Eligibility          string    `json:"eligibility"`
	AcademicRequirements []string  `json:"academic_requirements"`
	CGPARequirements     []string  `json:"cgpa_requirements"`
	Benefits             string    `json:"benefits"`
	ApplicationLink      string    `json:"application_link"`
	ContactEmail         string    `json:"contact_email"`
	Keywords             []string  `json:"keywords"`
	SourceURL            string    `json:"source_url"`
	SourceWebsite        string    `json:"source_website"`
	ExtractedDate        string    `json:"extracted_date"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ContentFields are the fields a normalizer may rewrite. Identity and
// bookkeeping fields (id, source_url, source_website, extracted_date,
// timestamps) are owned by the pipeline.
var ContentFields = []string{
	"title", "description", "provider", "deadline", "country",
	"level_of_study", "field_of_study", "eligibility",
	"academic_requirements", "cgpa_requirements", "benefits",
	"application_link", "contact_email", "keywords",
}

// Limits applied by Clean.
const (
	MaxTitleLen       = 500
	MaxDescriptionLen = 5000
)

// Clean trims string fields, truncates oversized title/description and
// turns list fields into sets. It returns the cleaned copy.
func (s Scholarship) Clean() Scholarship {
	s.Title = truncate(strings.TrimSpace(s.Title), MaxTitleLen)
	s.Description = truncate(strings.TrimSpace(s.Description), MaxDescriptionLen)
	s.Provider = strings.TrimSpace(s.Provider)
	s.Deadline = strings.TrimSpace(s.Deadline)
	s.Country = strings.TrimSpace(s.Country)
	s.LevelOfStudy = strings.TrimSpace(s.LevelOfStudy)
	s.FieldOfStudy = strings.TrimSpace(s.FieldOfStudy)
	s.Eligibility = strings.TrimSpace(s.Eligibility)
	s.Benefits = strings.TrimSpace(s.Benefits)
	s.ApplicationLink = strings.TrimSpace(s.ApplicationLink)
	s.ContactEmail = strings.TrimSpace(s.ContactEmail)
	s.AcademicRequirements = NewSet(s.AcademicRequirements...)
	s.CGPARequirements = NewSet(s.CGPARequirements...)
	s.Keywords = NewSet(s.Keywords...)
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// DeadlineTime parses the free-text deadline, see ParseDeadline.
func (s Scholarship) DeadlineTime() (time.Time, bool) {
	return ParseDeadline(s.Deadline)
}

// CanonicalLevel maps free-text level names ("master's", "doctoral",
// "BSc") onto the level constants. Unknown text maps to LevelUnspecified.
func CanonicalLevel(s string) string {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "undergrad"), strings.Contains(l, "bachelor"), strings.Contains(l, "bsc"):
		return LevelUndergraduate
	case strings.Contains(l, "phd"), strings.Contains(l, "doctor"):
		return LevelPhD
	case strings.Contains(l, "master"), strings.Contains(l, "msc"), strings.Contains(l, "mba"):
		return LevelMasters
	case strings.Contains(l, "postgrad"), strings.Contains(l, "graduate"):
		return LevelPostgraduate
	}
	return LevelUnspecified
}
