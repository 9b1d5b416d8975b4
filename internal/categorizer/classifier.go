package categorizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// Classifier is a remote categorization backend. Errors make the service
// fall through to the next classifier and finally to the rule table.
type Classifier interface {
	Classify(ctx context.Context, description string, amount decimal.Decimal) (models.CategoryResult, error)
	Name() string
}

var errInvalidResponse = errors.New("invalid classifier response")

// classification is the {category, confidence} body returned by remote
// classifiers. Confidence may arrive as a number or a numeric string.
type classification struct {
	Category   string          `json:"category"`
	Confidence json.RawMessage `json:"confidence"`
}

func parseClassification(data []byte) (models.CategoryResult, error) {
	var c classification
	if err := json.Unmarshal(data, &c); err != nil {
		return models.CategoryResult{}, fmt.Errorf("%w: %v", errInvalidResponse, err)
	}

	category := strings.ToUpper(strings.TrimSpace(c.Category))
	if category == "" {
		return models.CategoryResult{}, fmt.Errorf("%w: missing category", errInvalidResponse)
	}

	confidence, err := parseConfidence(c.Confidence)
	if err != nil {
		return models.CategoryResult{}, err
	}
	return models.CategoryResult{Category: category, Confidence: confidence}, nil
}

func parseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: missing confidence", errInvalidResponse)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: confidence is not a number", errInvalidResponse)
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0, fmt.Errorf("%w: confidence is not a number", errInvalidResponse)
		}
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("%w: confidence %v outside [0, 1]", errInvalidResponse, f)
	}
	return f, nil
}

// cleanModelJSON strips Markdown fences and anything around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}
