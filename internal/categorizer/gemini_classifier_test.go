package categorizer

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

type fakeGenerator struct {
	text   string
	err    error
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func TestGeminiClassifier_Classify(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"category\": \"fuel\", \"confidence\": 0.81}\n```"}
	c := newGeminiClassifier(gen, "", DefaultRuleSet().Categories())

	got, err := c.Classify(context.Background(), "Shell station 42", decimal.RequireFromString("-60"))
	require.NoError(t, err)
	assert.Equal(t, "FUEL", got.Category)
	assert.InDelta(t, 0.81, got.Confidence, 1e-9)

	assert.Equal(t, DefaultGeminiModel, gen.model)
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	assert.Contains(t, gen.prompt, "Shell station 42")
	assert.Contains(t, gen.prompt, "-60.00")
	assert.Contains(t, gen.prompt, "RESTAURANT, TRANSPORT")
}

func TestGeminiClassifier_Errors(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"api error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"empty response", &fakeGenerator{text: ""}},
		{"prose instead of json", &fakeGenerator{text: "I think this is fuel."}},
		{"confidence out of range", &fakeGenerator{text: `{"category":"FUEL","confidence":7}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newGeminiClassifier(tt.gen, "gemini-test", nil)
			_, err := c.Classify(context.Background(), "Shell", decimal.NewFromInt(-1))
			assert.Error(t, err)
		})
	}
}

func TestGeminiClassifier_FallsBackThroughService(t *testing.T) {
	c := newGeminiClassifier(&fakeGenerator{err: errors.New("unavailable")}, "", nil)
	svc := NewService(nil, WithClassifier(c))

	preview := &models.Transaction{Description: "Netflix monthly"}
	got := svc.Categorize(context.Background(), preview)
	assert.Equal(t, "ENTERTAINMENT", got.Category)
}
