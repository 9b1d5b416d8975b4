package categorizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the part of *genai.Models the classifier needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClassifier asks a Gemini model to label a transaction with one of
// the rule table's categories.
type GeminiClassifier struct {
	models     contentGenerator
	model      string
	categories []string
}

// NewGeminiClassifier creates a Gemini API client for apiKey.
func NewGeminiClassifier(ctx context.Context, apiKey, model string, categories []string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiClassifier(client.Models, model, categories), nil
}

func newGeminiClassifier(gen contentGenerator, model string, categories []string) *GeminiClassifier {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClassifier{models: gen, model: model, categories: categories}
}

func (c *GeminiClassifier) Name() string {
	return "gemini"
}

func (c *GeminiClassifier) Classify(ctx context.Context, description string, amount decimal.Decimal) (models.CategoryResult, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(c.prompt(description, amount)), cfg)
	if err != nil {
		return models.CategoryResult{}, fmt.Errorf("generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return models.CategoryResult{}, fmt.Errorf("%w: empty response from model", errInvalidResponse)
	}
	return parseClassification([]byte(cleanModelJSON(raw)))
}

func (c *GeminiClassifier) prompt(description string, amount decimal.Decimal) string {
	var b strings.Builder
	b.WriteString("You categorize personal banking transactions.\n")
	b.WriteString("Allowed categories: ")
	b.WriteString(strings.Join(c.categories, ", "))
	b.WriteString(", " + models.CategoryUncategorized + ".\n")
	b.WriteString("Return ONLY raw JSON of the form {\"category\": \"<CATEGORY>\", \"confidence\": <0..1>}.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n\n")
	fmt.Fprintf(&b, "Description: %s\nAmount: %s\n", description, amount.StringFixed(models.AmountScale))
	return b.String()
}
