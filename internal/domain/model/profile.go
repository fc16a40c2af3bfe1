package model

import "time"

// UserProfile is the academic profile matched against the record pool.
// The matcher only reads it.
type UserProfile struct {
	UserID              string `json:"user_id"`
	LevelOfStudy        string `json:"level_of_study"`
	FieldOfStudy        string `json:"field_of_study"`
	Institution         string `json:"institution"`
	AcademicPerformance string `json:"academic_performance"`
	Country             string `json:"country"`
	StateOfOrigin       string `json:"state_of_origin"`
	Gender              string `json:"gender"`
	Religion            string `json:"religion"`
	SkillsInterests     string `json:"skills_interests"`
}

// Suggestion is one ranked entry of a user's suggestion set.
type Suggestion struct {
	UserID        string    `json:"user_id"`
	ScholarshipID string    `json:"scholarship_id"`
	Rank          int       `json:"rank"`
	Score         int       `json:"score"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// UpsertResult reports what a store upsert did.
type UpsertResult struct {
	ID       string
	Inserted bool
}
