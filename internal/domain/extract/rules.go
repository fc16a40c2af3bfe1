package extract

import (
	"regexp"
	"strings"

	"github.com/okian/scholarsync/internal/domain/model"
)

// Input is the page text a rule matches against.
type Input struct {
	URL      string
	Title    string // resolved title, set once the title chain ran
	RawTitle string // <title> text
	Heading  string
	Content  string
	Sections []model.Section
	Links    []model.Link
}

// Rule is one matcher of a field chain. Match returns the zero value of T
// when it does not apply.
type Rule[T any] struct {
	Name  string
	Match func(in *Input) T
}

// Chain is an ordered list of rules for one field. The first rule producing
// a non-empty value wins; when none does the chain yields its typed default.
type Chain[T any] struct {
	Field string
	Rules []Rule[T]
	empty func(T) bool
	def   func() T
}

// Eval runs the chain and reports the winning rule name ("" for the default).
func (c Chain[T]) Eval(in *Input) (T, string) {
	for _, r := range c.Rules {
		if v := r.Match(in); !c.empty(v) {
			return v, r.Name
		}
	}
	return c.def(), ""
}

// Text builds a chain for a string field; the default is "".
func Text(field string, rules ...Rule[string]) Chain[string] {
	return Chain[string]{
		Field: field,
		Rules: rules,
		empty: func(v string) bool { return strings.TrimSpace(v) == "" },
		def:   func() string { return "" },
	}
}

// Set builds a chain for a set field; the default is an empty, non-nil set.
func Set(field string, rules ...Rule[[]string]) Chain[[]string] {
	return Chain[[]string]{
		Field: field,
		Rules: rules,
		empty: func(v []string) bool { return len(v) == 0 },
		def:   func() []string { return []string{} },
	}
}

// Transform post-processes a captured value.
type Transform func(string) string

// Pattern matches re against the content and returns the first capture
// group, passed through the transforms.
func Pattern(name, re string, transforms ...Transform) Rule[string] {
	return PatternOn(name, content, re, transforms...)
}

// PatternOn is Pattern over an arbitrary piece of the input.
func PatternOn(name string, source func(*Input) string, re string, transforms ...Transform) Rule[string] {
	rx := regexp.MustCompile(re)
	return Rule[string]{
		Name: name,
		Match: func(in *Input) string {
			m := rx.FindStringSubmatch(source(in))
			if len(m) < 2 {
				return ""
			}
			v := clean(m[1])
			for _, t := range transforms {
				v = t(v)
			}
			return v
		},
	}
}

// Patterns collects every capture of every expression into one set, so
// the same value found by several expressions appears once.
func Patterns(name string, res ...string) Rule[[]string] {
	rxs := make([]*regexp.Regexp, len(res))
	for i, re := range res {
		rxs[i] = regexp.MustCompile(re)
	}
	return Rule[[]string]{
		Name: name,
		Match: func(in *Input) []string {
			var found []string
			for _, rx := range rxs {
				for _, m := range rx.FindAllStringSubmatch(in.Content, -1) {
					if len(m) > 1 {
						found = append(found, clean(m[1]))
					}
				}
			}
			return model.NewSet(found...)
		},
	}
}

// Union merges the results of several set rules into one rule.
func Union(name string, rules ...Rule[[]string]) Rule[[]string] {
	return Rule[[]string]{
		Name: name,
		Match: func(in *Input) []string {
			var all []string
			for _, r := range rules {
				all = append(all, r.Match(in)...)
			}
			return model.NewSet(all...)
		},
	}
}

// Prefixed labels every value of a set rule.
func Prefixed(prefix string, r Rule[[]string]) Rule[[]string] {
	return Rule[[]string]{
		Name: r.Name,
		Match: func(in *Input) []string {
			vals := r.Match(in)
			for i, v := range vals {
				vals[i] = prefix + v
			}
			return vals
		},
	}
}

func content(in *Input) string { return in.Content }
func title(in *Input) string   { return in.Title }

// clean collapses whitespace and strips surrounding punctuation.
func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " :-–,;")
}

// MaxLen caps a captured value, cutting at a word boundary.
func MaxLen(n int) Transform {
	return func(s string) string {
		if len(s) <= n {
			return s
		}
		cut := strings.LastIndex(s[:n], " ")
		if cut <= 0 {
			cut = n
		}
		return strings.TrimSpace(s[:cut])
	}
}

var throughYear = regexp.MustCompile(`^(.*?\b(?:19|20)\d{2})\b`)

// UntilYear cuts a value right after its first year, or at the first
// sentence break when there is no year, so a deadline capture does not run
// into the next sentence.
func UntilYear(s string) string {
	if m := throughYear.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if i := strings.Index(s, ". "); i > 0 {
		return s[:i]
	}
	return strings.TrimSuffix(s, ".")
}
