package categorizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// maxResponseBytes caps how much of a classifier response is read.
const maxResponseBytes = 64 << 10

// HTTPClassifier posts {description, amount} to an external endpoint and
// expects {category, confidence} back.
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClassifier creates a classifier for endpoint. The API key is sent as
// a bearer token when set. A nil client gets one with the given timeout.
func NewHTTPClassifier(endpoint, apiKey string, client *http.Client, timeout time.Duration) *HTTPClassifier {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPClassifier{endpoint: endpoint, apiKey: apiKey, client: client}
}

func (c *HTTPClassifier) Name() string {
	return "http"
}

type classifyRequest struct {
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, description string, amount decimal.Decimal) (models.CategoryResult, error) {
	body, err := json.Marshal(classifyRequest{
		Description: description,
		Amount:      json.Number(amount.StringFixed(models.AmountScale)),
	})
	if err != nil {
		return models.CategoryResult{}, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.CategoryResult{}, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.CategoryResult{}, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.CategoryResult{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.CategoryResult{}, fmt.Errorf("read classifier response: %w", err)
	}
	return parseClassification(data)
}
