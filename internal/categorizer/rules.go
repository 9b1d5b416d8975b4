package categorizer

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// Rule maps any of its keywords to a category.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules is the built-in keyword table. Order matters: the first rule
// with a matching keyword wins.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "RESTAURANT", Keywords: []string{"starbucks", "coffee", "cafe"}},
		{Category: "TRANSPORT", Keywords: []string{"uber", "ola", "taxi", "cab"}},
		{Category: "ENTERTAINMENT", Keywords: []string{"netflix", "spotify", "prime"}},
		{Category: "SHOPPING", Keywords: []string{"grocery", "walmart", "costco", "target", "amazon"}},
		{Category: "FOOD", Keywords: []string{"burger", "pizza", "food", "restaurant", "diner"}},
		{Category: "HEALTH", Keywords: []string{"gym", "fitness", "yoga", "sports"}},
		{Category: "MEDICAL", Keywords: []string{"hospital", "doctor", "pharmacy", "medicine"}},
		{Category: "FUEL", Keywords: []string{"gas", "fuel", "petrol", "diesel"}},
	}
}

// RuleSet matches descriptions against an ordered list of rules. Matching is
// a case- and accent-insensitive substring test.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates rules and prepares their keywords for matching.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	prepared := make([]Rule, 0, len(rules))
	for i, r := range rules {
		category := strings.ToUpper(strings.TrimSpace(r.Category))
		if category == "" {
			return nil, fmt.Errorf("rule %d: category is required", i)
		}
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = normalize(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s): at least one keyword is required", i, category)
		}
		prepared = append(prepared, Rule{Category: category, Keywords: keywords})
	}
	return &RuleSet{rules: prepared}, nil
}

// DefaultRuleSet returns the built-in rules.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet(DefaultRules())
	if err != nil {
		panic(err)
	}
	return rs
}

// LoadRules reads a YAML rule file of the form
//
//	rules:
//	  - category: RESTAURANT
//	    keywords: [starbucks, coffee]
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}
	return NewRuleSet(file.Rules)
}

// Rules returns a copy of the prepared rules.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Categories lists the category names of rs in order.
func (rs *RuleSet) Categories() []string {
	out := make([]string, 0, len(rs.rules))
	for _, r := range rs.rules {
		out = append(out, r.Category)
	}
	return out
}

// Match returns the first matching rule's category at ConfidenceRuleMatch,
// or UNCATEGORIZED at ConfidenceNoMatch.
func (rs *RuleSet) Match(description string) models.CategoryResult {
	desc := normalize(description)
	if desc != "" {
		for _, r := range rs.rules {
			for _, k := range r.Keywords {
				if strings.Contains(desc, k) {
					return models.CategoryResult{Category: r.Category, Confidence: models.ConfidenceRuleMatch}
				}
			}
		}
	}
	return models.CategoryResult{Category: models.CategoryUncategorized, Confidence: models.ConfidenceNoMatch}
}

// normalize lower-cases s and strips combining marks, so "Café" matches "cafe".
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
