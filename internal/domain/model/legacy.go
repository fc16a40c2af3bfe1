package model

import (
	"encoding/json"
	"strings"
	"time"
)

// LegacyScholarship is a row of the first-generation scholarships table,
// which used name/benefits/country and kept requirements as loose text.
// It only exists to feed the one-time migration.
type LegacyScholarship struct {
	Name                    string
	Description             string
	Provider                string
	Deadline                string
	Country                 string
	LevelOfStudy            string
	FieldOfStudy            string
	Eligibility             string
	Benefits                string
	ApplicationLink         string
	ContactEmail            string
	GenderRequirements      string
	NationalityRequirements string
	InstitutionRequirements string
	CGPARequirements        string
	SourceURL               string
	SourceWebsite           string
	ExtractedDate           string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ToScholarship maps a legacy row onto the canonical schema. Gender,
// nationality and institution requirements become academic requirements.
func (l LegacyScholarship) ToScholarship() Scholarship {
	var reqs []string
	if v := strings.TrimSpace(l.GenderRequirements); v != "" {
		reqs = append(reqs, "Gender: "+v)
	}
	if v := strings.TrimSpace(l.NationalityRequirements); v != "" {
		reqs = append(reqs, "Nationality: "+v)
	}
	if v := strings.TrimSpace(l.InstitutionRequirements); v != "" {
		reqs = append(reqs, "Institution: "+v)
	}

	s := Scholarship{
		Title:                l.Name,
		Description:          l.Description,
		Provider:             l.Provider,
		Deadline:             l.Deadline,
		Country:              l.Country,
		LevelOfStudy:         l.LevelOfStudy,
		FieldOfStudy:         l.FieldOfStudy,
		Eligibility:          l.Eligibility,
		AcademicRequirements: reqs,
		CGPARequirements:     decodeLooseList(l.CGPARequirements),
		Benefits:             l.Benefits,
		ApplicationLink:      l.ApplicationLink,
		ContactEmail:         l.ContactEmail,
		SourceURL:            l.SourceURL,
		SourceWebsite:        l.SourceWebsite,
		ExtractedDate:        l.ExtractedDate,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
	return s.Clean()
}

// decodeLooseList accepts either a JSON array or a comma separated string.
func decodeLooseList(v string) []string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "[") {
		var items []string
		if err := json.Unmarshal([]byte(v), &items); err == nil {
			return NewSet(items...)
		}
	}
	return SplitList(v)
}
