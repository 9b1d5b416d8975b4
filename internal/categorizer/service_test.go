package categorizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/storage/memory"
)

func seededStore(t *testing.T, description string) (*memory.MemoryLedgerStore, models.Transaction) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	require.NoError(t, store.CreateAccount(ctx, models.Account{ID: "acc-1", UserID: "user-1", Balance: decimal.NewFromInt(100)}))

	tx := models.Transaction{
		ID:          "tx-1",
		UserID:      "user-1",
		InitiatedBy: "user-1",
		AccountID:   "acc-1",
		Amount:      decimal.RequireFromString("-4.50"),
		Type:        models.TypeWithdraw,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.WithinTx(ctx, func(ltx interfaces.LedgerTx) error {
		return ltx.AppendTransaction(ctx, &tx)
	}))
	return store, tx
}

type fakeClassifier struct {
	result models.CategoryResult
	err    error
	panics bool
	calls  atomic.Int32
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Classify(ctx context.Context, description string, amount decimal.Decimal) (models.CategoryResult, error) {
	f.calls.Add(1)
	if f.panics {
		panic("boom")
	}
	return f.result, f.err
}

type failingWriter struct{}

func (failingWriter) UpdateCategory(ctx context.Context, transactionID, category string, confidence float64) error {
	return errors.New("database is gone")
}

func TestService_RulesWithoutRemote(t *testing.T) {
	svc := NewService(nil)

	tests := []struct {
		description string
		want        models.CategoryResult
	}{
		{"Starbucks Coffee #221", models.CategoryResult{Category: "RESTAURANT", Confidence: 0.75}},
		{"xyz123 unknown vendor", models.CategoryResult{Category: models.CategoryUncategorized, Confidence: 0.3}},
		{"", models.CategoryResult{Category: models.CategoryUncategorized, Confidence: 0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			preview := &models.Transaction{Description: tt.description, Amount: decimal.RequireFromString("-4.50")}
			assert.Equal(t, tt.want, svc.Categorize(context.Background(), preview))
			assert.Nil(t, preview.Category, "previews are not labelled in place")
		})
	}
}

func TestService_NilTransaction(t *testing.T) {
	logger := logging.NewMockLogger()
	svc := NewService(nil, WithLogger(logger))

	assert.Equal(t, models.Uncategorized(), svc.Categorize(context.Background(), nil))
	assert.True(t, logger.HasEntry("WARN", "Attempted to categorize nil transaction"))
}

func TestService_WritesBackPersistedTransaction(t *testing.T) {
	store, tx := seededStore(t, "Uber to airport")
	svc := NewService(store)

	result := svc.Categorize(context.Background(), &tx)
	assert.Equal(t, models.CategoryResult{Category: "TRANSPORT", Confidence: 0.75}, result)

	stored, err := store.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Category)
	assert.Equal(t, "TRANSPORT", *stored.Category)
	assert.Equal(t, 0.75, *stored.Confidence)
	require.NotNil(t, tx.Category)
	assert.Equal(t, "TRANSPORT", *tx.Category)
}

func TestService_RecategorizationOverwrites(t *testing.T) {
	store, tx := seededStore(t, "Uber to airport")
	remote := &fakeClassifier{result: models.CategoryResult{Category: "TRAVEL", Confidence: 0.9}}

	NewService(store).Categorize(context.Background(), &tx)
	NewService(store, WithClassifier(remote)).Categorize(context.Background(), &tx)

	stored, err := store.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "TRAVEL", *stored.Category)
}

func TestService_WriteFailureDegrades(t *testing.T) {
	_, tx := seededStore(t, "Starbucks")
	svc := NewService(failingWriter{})

	assert.Equal(t, models.Uncategorized(), svc.Categorize(context.Background(), &tx))
}

func TestService_RemoteFirstThenFallback(t *testing.T) {
	tests := []struct {
		name   string
		remote *fakeClassifier
		want   models.CategoryResult
	}{
		{
			name:   "remote answer wins",
			remote: &fakeClassifier{result: models.CategoryResult{Category: "GROCERIES", Confidence: 0.95}},
			want:   models.CategoryResult{Category: "GROCERIES", Confidence: 0.95},
		},
		{
			name:   "remote error falls back to rules",
			remote: &fakeClassifier{err: errors.New("503")},
			want:   models.CategoryResult{Category: "RESTAURANT", Confidence: 0.75},
		},
		{
			name:   "remote panic falls back to rules",
			remote: &fakeClassifier{panics: true},
			want:   models.CategoryResult{Category: "RESTAURANT", Confidence: 0.75},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(nil, WithClassifier(tt.remote))
			preview := &models.Transaction{Description: "Starbucks Coffee #221"}

			assert.Equal(t, tt.want, svc.Categorize(context.Background(), preview))
			assert.Equal(t, int32(1), tt.remote.calls.Load())
		})
	}
}

func TestService_ClassifierChain(t *testing.T) {
	first := &fakeClassifier{err: errors.New("down")}
	second := &fakeClassifier{result: models.CategoryResult{Category: "FOOD", Confidence: 0.6}}
	svc := NewService(nil, WithClassifier(first), WithClassifier(second))

	got := svc.Categorize(context.Background(), &models.Transaction{Description: "lunch"})
	assert.Equal(t, "FOOD", got.Category)
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
}

func TestHTTPClassifier(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"category":"ENTERTAINMENT","confidence":0.88}`))
	}))
	defer server.Close()

	svc := NewService(nil, WithClassifier(NewHTTPClassifier(server.URL, "secret", nil, time.Second)))
	got := svc.Categorize(context.Background(), &models.Transaction{
		Description: "Cinema tickets",
		Amount:      decimal.RequireFromString("-25.00"),
	})

	assert.Equal(t, models.CategoryResult{Category: "ENTERTAINMENT", Confidence: 0.88}, got)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "Cinema tickets", gotBody["description"])
	assert.Equal(t, -25.0, gotBody["amount"])
}

func TestHTTPClassifier_FallbackCases(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
		{"unparsable confidence", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"category":"FOOD","confidence":"very"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			svc := NewService(nil, WithClassifier(NewHTTPClassifier(server.URL, "", nil, time.Second)))
			got := svc.Categorize(context.Background(), &models.Transaction{Description: "Starbucks Coffee #221"})
			assert.Equal(t, models.CategoryResult{Category: "RESTAURANT", Confidence: 0.75}, got)
		})
	}
}

func TestHTTPClassifier_SlowEndpointTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	svc := NewService(nil,
		WithClassifier(NewHTTPClassifier(server.URL, "", nil, time.Minute)),
		WithTimeout(50*time.Millisecond))

	start := time.Now()
	got := svc.Categorize(context.Background(), &models.Transaction{Description: "xyz123 unknown vendor"})
	assert.Equal(t, models.CategoryResult{Category: models.CategoryUncategorized, Confidence: 0.3}, got)
	assert.Less(t, time.Since(start), 5*time.Second)
}
