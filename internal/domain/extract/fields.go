package extract

import (
	"regexp"
	"strings"

	"github.com/okian/scholarsync/internal/domain/model"
)

// relevanceTerms mark a page as a scholarship listing.
var relevanceTerms = regexp.MustCompile(`(?i)\b(scholarships?|fellowships?|grants?|bursar(?:y|ies)|financial aid|funding|fully[- ]funded)\b`)

// knownCountries are matched on word boundaries. All-caps names are matched
// case-sensitively so "UK" does not fire on "uk" inside prose.
var knownCountries = []string{
	"Nigeria", "Ghana", "Kenya", "South Africa", "Egypt",
	"USA", "United States", "UK", "United Kingdom", "Canada", "Australia",
	"New Zealand", "Ireland", "Germany", "France", "Netherlands", "Belgium",
	"Sweden", "Norway", "Denmark", "Finland", "Switzerland", "Austria",
	"Italy", "Spain", "Hungary", "Japan", "China", "South Korea", "Singapore",
	"India", "Turkey",
}

type levelTerm struct {
	term  string
	level string
}

// Checked in order, so "undergraduate" wins over "graduate"-like terms.
var levelTerms = []levelTerm{
	{"undergraduate", model.LevelUndergraduate},
	{"bachelor", model.LevelUndergraduate},
	{"postgraduate", model.LevelPostgraduate},
	{"master", model.LevelMasters},
	{"phd", model.LevelPhD},
	{"doctorate", model.LevelPhD},
	{"doctoral", model.LevelPhD},
}

var disciplines = []string{
	"Computer Science", "Engineering", "Medicine", "Public Health", "Law",
	"Business", "Economics", "Agriculture", "Education", "Journalism",
	"Arts", "Humanities", "Social Sciences", "Mathematics", "Physics",
	"Chemistry", "Biology", "Data Science", "Information Technology",
	"Environmental Science", "Architecture", "Nursing", "Pharmacy",
}

var keywordTerms = []string{
	"Scholarship", "Fellowship", "Grant", "Bursary", "Financial Aid",
	"Fully Funded", "Partially Funded", "Tuition", "Stipend",
	"International Students", "Women", "Africa", "STEM", "Research",
	"Exchange", "Leadership", "Undergraduate", "Masters", "PhD",
	"Postgraduate", "Online", "Short Course",
}

type termMatcher struct {
	term string
	rx   *regexp.Regexp
}

func compileTerms(terms []string) []termMatcher {
	out := make([]termMatcher, len(terms))
	for i, t := range terms {
		flags := "(?i)"
		if t == strings.ToUpper(t) {
			flags = ""
		}
		out[i] = termMatcher{term: t, rx: regexp.MustCompile(flags + `\b` + regexp.QuoteMeta(t) + `\b`)}
	}
	return out
}

// termsIn reports which vocabulary terms occur in the selected text.
func termsIn(name string, terms []termMatcher, source func(*Input) string) Rule[[]string] {
	return Rule[[]string]{
		Name: name,
		Match: func(in *Input) []string {
			text := source(in)
			var found []string
			for _, t := range terms {
				if t.rx.MatchString(text) {
					found = append(found, t.term)
				}
			}
			return model.NewSet(found...)
		},
	}
}

func joined(r Rule[[]string]) Rule[string] {
	return Rule[string]{
		Name: r.Name,
		Match: func(in *Input) string {
			return strings.Join(r.Match(in), ", ")
		},
	}
}

func firstLevel(name string, source func(*Input) string) Rule[string] {
	return Rule[string]{
		Name: name,
		Match: func(in *Input) string {
			text := strings.ToLower(source(in))
			for _, lt := range levelTerms {
				if strings.Contains(text, lt.term) {
					return lt.level
				}
			}
			return ""
		},
	}
}

// section returns the text under the first heading containing any of the
// given words.
func section(name string, words ...string) Rule[string] {
	return Rule[string]{
		Name: name,
		Match: func(in *Input) string {
			for _, s := range in.Sections {
				h := strings.ToLower(s.Heading)
				for _, w := range words {
					if strings.Contains(h, w) && strings.TrimSpace(s.Text) != "" {
						return MaxLen(2000)(clean(s.Text))
					}
				}
			}
			return ""
		},
	}
}

func linkWhere(name string, pred func(model.Link) bool) Rule[string] {
	return Rule[string]{
		Name: name,
		Match: func(in *Input) string {
			for _, l := range in.Links {
				if l.Href != "" && l.Href != in.URL && pred(l) {
					return l.Href
				}
			}
			return ""
		},
	}
}

var (
	womenInTitle = regexp.MustCompile(`(?i)\b(women|female|girls?)\b`)
	menInTitle   = regexp.MustCompile(`(?i)\b(men|male|boys?)\b`)
)

func genderFromTitle(in *Input) []string {
	switch {
	case womenInTitle.MatchString(in.Title):
		return []string{"Gender: Female"}
	case menInTitle.MatchString(in.Title):
		return []string{"Gender: Male"}
	}
	return nil
}

// siteSuffix strips " | Site Name" or " - Site Name" from a <title>.
var siteSuffix = regexp.MustCompile(`\s+[|–-]\s+[^|–-]{2,40}$`)

// fields holds the compiled chain for every extracted field.
type fields struct {
	title        Chain[string]
	provider     Chain[string]
	deadline     Chain[string]
	country      Chain[string]
	level        Chain[string]
	field        Chain[string]
	eligibility  Chain[string]
	benefits     Chain[string]
	applyLink    Chain[string]
	email        Chain[string]
	academicReqs Chain[[]string]
	cgpaReqs     Chain[[]string]
	keywords     Chain[[]string]
}

func newFields(countries []string) fields {
	countryTerms := compileTerms(countries)
	disciplineTerms := compileTerms(disciplines)
	keywordMatchers := compileTerms(keywordTerms)
	titleAndContent := func(in *Input) string { return in.Title + " " + in.Content }

	return fields{
		title: Text("title",
			PatternOn("heading", func(in *Input) string { return in.Heading }, `(?s)^\s*(.+?)\s*$`),
			PatternOn("document_title", func(in *Input) string { return in.RawTitle }, `(?s)^\s*(.+?)\s*$`,
				func(s string) string { return siteSuffix.ReplaceAllString(s, "") }),
		),
		provider: Text("provider",
			Pattern("offered_by", `(?i)\b(?:offered|provided|sponsored|funded|awarded)\s+by\s+(?:the\s+)?([^,.;\n]{2,100})`),
			Pattern("by_capitalised", `\bby\s+(?:the\s+)?([A-Z][^,.;\n]{3,50})`),
			PatternOn("title_at", title, `\s+at\s+(?:the\s+)?(.{3,})$`),
		),
		deadline: Text("deadline",
			Pattern("deadline_label", `(?i)(?:application deadline|deadline|closing date)\s*(?:is|:|-)?\s*([^\n;]{3,80})`, UntilYear),
			Pattern("applications_close", `(?i)(?:applications|submissions)\s+close\s*(?:on|:)?\s*([^\n;]{3,80})`, UntilYear),
			Pattern("due_date", `(?i)(?:due date|last date)\s*(?:is|:|-)?\s*([^\n;]{3,80})`, UntilYear),
		),
		country: Text("country",
			joined(termsIn("known_in_title", countryTerms, title)),
			joined(termsIn("known_in_content", countryTerms, content)),
			Pattern("country_label", `(?i)(?:host country|country|location)\s*:\s*([^\n.,;]{2,60})`),
			Pattern("study_in", `(?i)\b(?:study in|based in|located in|tenable in)\s+([A-Z][^\n.,;]{1,60})`),
		),
		level: Text("level_of_study",
			firstLevel("url", func(in *Input) string { return in.URL }),
			firstLevel("text", titleAndContent),
		),
		field: Text("field_of_study",
			Pattern("field_label", `(?i)(?:fields? of study|disciplines?|subjects?|majors?)\s*:\s*([^\n.;]{2,120})`),
			Pattern("open_to_discipline", `(?i)(?:available for|open to)\s+([^.,;\n]*(?:engineering|science|arts|humanities|business|medicine|law|computer|technology)[^.,;\n]*)`),
			joined(termsIn("known_in_title", disciplineTerms, title)),
		),
		eligibility: Text("eligibility",
			section("section", "eligib", "requirement", "who can apply"),
			Pattern("inline", `(?is)(?:eligibility(?: criteria)?|requirements|who can apply)\s*:?\s+(.+?)\s*(?:benefits|value|award|how to apply|application process)`, MaxLen(2000)),
			Pattern("eligible_candidates", `(?is)(?:eligible candidates|eligible applicants)\s*:?\s+(.+?)\s*(?:how to apply|application|documents)`, MaxLen(2000)),
		),
		benefits: Text("benefits",
			section("section", "benefit", "value", "award", "coverage", "funding"),
			Pattern("inline", `(?is)(?:benefits|scholarship value|value|award)\s*:?\s+(.+?)\s*(?:how to apply|application process|eligibility)`, MaxLen(2000)),
		),
		applyLink: Text("application_link",
			linkWhere("anchor_text", func(l model.Link) bool {
				t := strings.ToLower(l.Text)
				return strings.Contains(t, "apply") || strings.Contains(t, "application")
			}),
			linkWhere("href", func(l model.Link) bool {
				h := strings.ToLower(l.Href)
				return strings.Contains(h, "apply") || strings.Contains(h, "application")
			}),
			Pattern("inline_url", `(?i)(?:apply here|application link|apply (?:online )?at)\s*:?\s*(https?://[^\s"'<>]+)`,
				func(s string) string { return strings.TrimRight(s, ".,)") }),
		),
		email: Text("contact_email",
			Pattern("address", `([A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,})`),
		),
		academicReqs: Set("academic_requirements",
			Union("labelled",
				Rule[[]string]{Name: "gender_title", Match: genderFromTitle},
				Prefixed("Nationality: ", Patterns("nationality",
					`(?i)\b(?:nationality|citizenship)\s*:\s*([^\n.;]{2,100})`,
					`(?i)\b(?:must be|open to) (?:a )?citizens? of\s+([^\n.;]{2,100})`)),
				Prefixed("Institution: ", Patterns("institution",
					`(?i)\b(?:institution|university|college)\s*:\s*([^\n.;]{2,100})`)),
				Patterns("must_hold",
					`(?i)\b(?:applicants|candidates)?\s*must (?:have|hold|possess)\s+((?:an?|the)\s+(?:[^\n.;]|\.\d){5,150})`),
			),
		),
		cgpaReqs: Set("cgpa_requirements",
			Patterns("numeric",
				`(?i)\b((?:c?gpa|grade point average)\s*(?:of|:)?\s*(?:at least\s+)?\d(?:\.\d{1,2})?(?:\s*/\s*\d(?:\.\d)?)?)`,
				`(?i)\b(\d\.\d{1,2}\s*(?:/\s*\d(?:\.\d)?\s*)?c?gpa)\b`),
			Patterns("degree_class",
				`(?i)\b((?:first class|second class (?:upper|lower)|upper second[- ]class|2:1|2\.1))`),
			Patterns("grade_label", `(?i)\b(?:cgpa|gpa|grade)\s*:\s*([^\n.,;]{1,60})`),
		),
		keywords: Set("keywords",
			termsIn("vocabulary", keywordMatchers, titleAndContent),
		),
	}
}
