package models

// CategoryUncategorized is assigned when no classifier produced a label.
const CategoryUncategorized = "UNCATEGORIZED"

const (
	// ConfidenceRuleMatch is the fixed confidence of a keyword rule hit.
	ConfidenceRuleMatch = 0.75
	// ConfidenceNoMatch is reported when no rule matched the description.
	ConfidenceNoMatch = 0.3
	// ConfidenceFailure is reported when categorization could not run at all.
	ConfidenceFailure = 0.0
)

// CategoryResult is the label and confidence produced by the categorizer.
type CategoryResult struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Uncategorized returns the degraded result for a failed categorization.
func Uncategorized() CategoryResult {
	return CategoryResult{Category: CategoryUncategorized, Confidence: ConfidenceFailure}
}
