package project

import "strings"

// Category is the label assigned to a record by a Categorizer.
type Category string

const (
	MachineLearning     Category = "Machine Learning"
	WebDevelopment      Category = "Web Development"
	PythonDevelopment   Category = "Python Development"
	JavaDevelopment     Category = "Java Development"
	SoftwareEngineering Category = "Software Engineering"
)

// Fallback is assigned when no rule matches.
const Fallback = SoftwareEngineering

// Rule maps a keyword set to a category. A rule matches when any keyword
// occurs as a substring of the folded text.
type Rule struct {
	Category Category
	Keywords []string
}

func (r Rule) matches(text string) bool {
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var defaultRules = []Rule{
	{Category: MachineLearning, Keywords: []string{"ml", "machine learning", "nlp", "vision", "training", "data science", "emotion-recognition"}},
	{Category: WebDevelopment, Keywords: []string{"web", "html", "css", "react", "flask", "django", "frontend", "backend", "js"}},
	{Category: PythonDevelopment, Keywords: []string{"python", "script", "automation", "bot"}},
	{Category: JavaDevelopment, Keywords: []string{"java", "android", "spring"}},
}

// DefaultRules returns a copy of the built-in rules in priority order.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	for i, r := range defaultRules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Categorizer evaluates an ordered rule list; the first matching rule wins.
// A Categorizer is immutable and safe for concurrent use.
type Categorizer struct {
	rules    []Rule
	fallback Category
}

// NewCategorizer builds a Categorizer from rules in priority order.
// Keywords are lowercased once here. A nil slice yields DefaultRules.
func NewCategorizer(rules []Rule) *Categorizer {
	if rules == nil {
		rules = defaultRules
	}
	cp := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kws = append(kws, strings.ToLower(kw))
		}
		cp = append(cp, Rule{Category: r.Category, Keywords: kws})
	}
	return &Categorizer{rules: cp, fallback: Fallback}
}

// Categorize labels a project from its name and description.
func (c *Categorizer) Categorize(name, description string) Category {
	text := strings.ToLower(name + " " + description)
	for _, r := range c.rules {
		if r.matches(text) {
			return r.Category
		}
	}
	return c.fallback
}

var std = NewCategorizer(nil)

// Categorize labels a project using the default rules.
func Categorize(name, description string) Category {
	return std.Categorize(name, description)
}
