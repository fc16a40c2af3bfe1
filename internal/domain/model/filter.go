package model

import "strings"

// Filter narrows a record listing. Each non-empty field must appear,
// case-insensitively, inside the matching record field.
type Filter struct {
	Country  string
	Level    string
	Field    string
	Deadline string
}

// IsZero reports whether f matches every record.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether rec passes f.
func (f Filter) Match(rec Scholarship) bool {
	return contains(rec.Country, f.Country) &&
		contains(rec.LevelOfStudy, f.Level) &&
		contains(rec.FieldOfStudy, f.Field) &&
		contains(rec.Deadline, f.Deadline)
}

func contains(value, want string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.Contains(strings.ToLower(value), strings.ToLower(want))
}
