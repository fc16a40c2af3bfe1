package model_test

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewSet(t *testing.T) {
	convey.Convey("Given values with duplicates and noise", t, func() {
		set := model.NewSet("  STEM ", "engineering", "stem", "", "Engineering", "data   science")

		convey.Convey("Then duplicates collapse case-insensitively and order is stable", func() {
			convey.So(set, convey.ShouldResemble, []string{"data science", "engineering", "STEM"})
		})

		convey.Convey("Then permuted input yields the same set", func() {
			other := model.NewSet("data science", "stem", "engineering", "STEM")
			convey.So(len(other), convey.ShouldEqual, len(set))
		})
	})

	convey.Convey("Given no values", t, func() {
		convey.Convey("Then the set is empty but not nil", func() {
			set := model.NewSet()
			convey.So(set, convey.ShouldNotBeNil)
			convey.So(set, convey.ShouldBeEmpty)

			b, _ := json.Marshal(set)
			convey.So(string(b), convey.ShouldEqual, "[]")
		})
	})

	convey.Convey("Given a comma separated list", t, func() {
		convey.So(model.SplitList("Nigeria, Ghana,,nigeria"), convey.ShouldResemble, []string{"Ghana", "Nigeria"})
	})
}

func TestParseDeadline(t *testing.T) {
	convey.Convey("Given deadline text in common formats", t, func() {
		cases := map[string]time.Time{
			"Deadline: March 15, 2025":            time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
			"Applications close 15th June 2025":   time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC),
			"due 2025-01-31 at midnight":          time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
			"31/12/2024":                          time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
			"November 2024":                       time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC),
			"Sept. 3rd, 2026 (11:59 PM GMT)":      time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC),
			"the 1st of February, 2027, rolling.": time.Date(2027, time.February, 1, 0, 0, 0, 0, time.UTC),
		}

		for text, want := range cases {
			got, ok := model.ParseDeadline(text)
			convey.Convey("Then "+text+" parses", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(got.Equal(want), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given text without a date", t, func() {
		for _, text := range []string{"", "rolling", "Not specified", "February 30, 2025"} {
			_, ok := model.ParseDeadline(text)
			convey.So(ok, convey.ShouldBeFalse)
		}
	})
}

func TestScholarshipClean(t *testing.T) {
	convey.Convey("Given a raw record with oversized fields", t, func() {
		raw := model.Scholarship{
			Title:       "  " + strings.Repeat("t", 600),
			Description: strings.Repeat("d", 6000),
			Keywords:    []string{"Grant", "grant", " STEM"},
		}

		cleaned := raw.Clean()

		convey.Convey("Then title and description are truncated", func() {
			convey.So(len([]rune(cleaned.Title)), convey.ShouldEqual, model.MaxTitleLen)
			convey.So(cleaned.Title, convey.ShouldEndWith, "...")
			convey.So(len([]rune(cleaned.Description)), convey.ShouldEqual, model.MaxDescriptionLen)
		})

		convey.Convey("Then list fields become sets", func() {
			convey.So(cleaned.Keywords, convey.ShouldResemble, []string{"Grant", "STEM"})
			convey.So(cleaned.CGPARequirements, convey.ShouldNotBeNil)
		})
	})
}

func TestScholarshipJSONSchema(t *testing.T) {
	convey.Convey("Given the canonical record", t, func() {
		b, err := json.Marshal(model.Scholarship{})
		convey.So(err, convey.ShouldBeNil)

		var fields map[string]any
		convey.So(json.Unmarshal(b, &fields), convey.ShouldBeNil)

		convey.Convey("Then every content field is part of the JSON schema", func() {
			for _, name := range model.ContentFields {
				_, ok := fields[name]
				convey.So(ok, convey.ShouldBeTrue)
			}
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			convey.So(keys, convey.ShouldContain, "source_url")
			convey.So(len(keys), convey.ShouldEqual, 20)
		})
	})
}

func TestLegacyScholarship(t *testing.T) {
	convey.Convey("Given a first-generation row", t, func() {
		created := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
		legacy := model.LegacyScholarship{
			Name:                    "Chevening Scholarship",
			Benefits:                "Full tuition",
			Country:                 "UK",
			GenderRequirements:      "Female",
			NationalityRequirements: "Nigerian",
			CGPARequirements:        `["3.5 GPA", "3.5 gpa", "Second Class Upper"]`,
			SourceURL:               "https://opportunitydesk.org/2023/05/01/chevening",
			CreatedAt:               created,
		}

		s := legacy.ToScholarship()

		convey.Convey("Then it maps onto the canonical schema", func() {
			convey.So(s.Title, convey.ShouldEqual, "Chevening Scholarship")
			convey.So(s.Benefits, convey.ShouldEqual, "Full tuition")
			convey.So(s.Country, convey.ShouldEqual, "UK")
			convey.So(s.AcademicRequirements, convey.ShouldResemble, []string{"Gender: Female", "Nationality: Nigerian"})
			convey.So(s.CGPARequirements, convey.ShouldResemble, []string{"3.5 GPA", "Second Class Upper"})
			convey.So(s.CreatedAt, convey.ShouldEqual, created)
		})

		convey.Convey("Then comma separated CGPA text is accepted", func() {
			legacy.CGPARequirements = "3.0, 2:1"
			convey.So(legacy.ToScholarship().CGPARequirements, convey.ShouldResemble, []string{"2:1", "3.0"})
		})
	})
}

func TestPageSourceURL(t *testing.T) {
	convey.Convey("Given a redirected page", t, func() {
		p := model.Page{URL: "https://x/a", FinalURL: "https://x/b"}
		convey.So(p.SourceURL(), convey.ShouldEqual, "https://x/b")
		p.FinalURL = ""
		convey.So(p.SourceURL(), convey.ShouldEqual, "https://x/a")
	})
}

func TestCanonicalLevel(t *testing.T) {
	convey.Convey("Given free-text levels", t, func() {
		convey.So(model.CanonicalLevel("Master's degree"), convey.ShouldEqual, model.LevelMasters)
		convey.So(model.CanonicalLevel("masters"), convey.ShouldEqual, model.LevelMasters)
		convey.So(model.CanonicalLevel("Doctoral"), convey.ShouldEqual, model.LevelPhD)
		convey.So(model.CanonicalLevel("Undergraduate"), convey.ShouldEqual, model.LevelUndergraduate)
		convey.So(model.CanonicalLevel("Postgraduate"), convey.ShouldEqual, model.LevelPostgraduate)
		convey.So(model.CanonicalLevel("all"), convey.ShouldEqual, model.LevelUnspecified)
	})
}
