package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/categorizer"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledger"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/storage/memory"
)

type testServer struct {
	handler http.Handler
	store   *memory.MemoryLedgerStore
	logger  *logging.MockLogger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	for _, acc := range []models.Account{
		{ID: "acc-a", UserID: "user-1", Name: "Checking", Type: "CHECKING"},
		{ID: "acc-b", UserID: "user-1", Name: "Savings", Type: "SAVINGS"},
		{ID: "acc-x", UserID: "user-2", Name: "Checking", Type: "CHECKING"},
	} {
		require.NoError(t, store.CreateAccount(ctx, acc))
	}

	logger := logging.NewMockLogger()
	l := ledger.NewLedger(store,
		ledger.WithCategorizer(categorizer.NewService(store)),
		ledger.WithUserDirectory(memory.NewUserDirectory(map[string]string{"user-1": "Ada"})),
		ledger.WithLogger(logger))
	return &testServer{handler: NewHandler(l, logger).Routes(), store: store, logger: logger}
}

func (s *testServer) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody[map[string]string](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestRequiresUserHeader(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/transactions", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeUnauthenticated, decodeBody[ErrorResponse](t, rec).Error)
}

func TestDepositWithdrawTransfer(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/accounts/acc-a/deposit", "user-1", `{"amount":"100.00","description":"Salary"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dep := decodeBody[models.Transaction](t, rec)
	assert.Equal(t, models.TypeDeposit, dep.Type)
	assert.True(t, dep.Amount.Equal(decimal.NewFromInt(100)))

	rec = s.do(t, http.MethodPost, "/api/accounts/acc-a/withdraw", "user-1", `{"amount":"4.50","description":"Starbucks Coffee"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wd := decodeBody[models.Transaction](t, rec)
	assert.True(t, wd.Amount.Equal(decimal.RequireFromString("-4.50")))
	assert.Equal(t, "RESTAURANT", wd.CategoryName())

	rec = s.do(t, http.MethodPost, "/api/transfers", "user-1",
		`{"from_account_id":"acc-a","to_account_id":"acc-b","amount":"20.00","description":"Savings"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decodeBody[models.Transaction](t, rec)
	assert.Equal(t, models.TypeTransferOut, out.Type)
	assert.Equal(t, "acc-b", out.RelatedAccountID)

	acc, err := s.store.GetAccount(context.Background(), "acc-a")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("75.50")))
}

func TestErrorKindsMapToStatus(t *testing.T) {
	s := newTestServer(t)
	_ = s.do(t, http.MethodPost, "/api/accounts/acc-a/deposit", "user-1", `{"amount":"10.00"}`)

	tests := []struct {
		name       string
		method     string
		path       string
		user       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"insufficient funds", http.MethodPost, "/api/accounts/acc-a/withdraw", "user-1", `{"amount":"50.00"}`, http.StatusConflict, "INSUFFICIENT_FUNDS"},
		{"invalid amount", http.MethodPost, "/api/accounts/acc-a/deposit", "user-1", `{"amount":"-5"}`, http.StatusUnprocessableEntity, "INVALID_AMOUNT"},
		{"too many decimals", http.MethodPost, "/api/accounts/acc-a/deposit", "user-1", `{"amount":"1.005"}`, http.StatusUnprocessableEntity, "INVALID_AMOUNT"},
		{"foreign account", http.MethodPost, "/api/accounts/acc-x/deposit", "user-1", `{"amount":"1.00"}`, http.StatusForbidden, "FORBIDDEN"},
		{"unknown account", http.MethodPost, "/api/accounts/nope/deposit", "user-1", `{"amount":"1.00"}`, http.StatusNotFound, "NOT_FOUND"},
		{"self transfer", http.MethodPost, "/api/transfers", "user-1", `{"from_account_id":"acc-a","to_account_id":"acc-a","amount":"1.00"}`, http.StatusBadRequest, "INVALID_OPERATION"},
		{"malformed body", http.MethodPost, "/api/accounts/acc-a/deposit", "user-1", `{"amount":`, http.StatusBadRequest, codeBadRequest},
		{"unknown field", http.MethodPost, "/api/accounts/acc-a/deposit", "user-1", `{"amount":"1.00","currency":"EUR"}`, http.StatusBadRequest, codeBadRequest},
		{"foreign history", http.MethodGet, "/api/accounts/acc-x/transactions", "user-1", "", http.StatusForbidden, "FORBIDDEN"},
		{"bad page", http.MethodGet, "/api/transactions?page=two", "user-1", "", http.StatusBadRequest, codeBadRequest},
		{"bad date", http.MethodGet, "/api/transactions/date-range?start=yesterday&end=2025-01-01", "user-1", "", http.StatusBadRequest, codeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeBody[ErrorResponse](t, rec).Error)
		})
	}
}

func TestQueries(t *testing.T) {
	s := newTestServer(t)
	for _, body := range []string{
		`{"amount":"100.00","description":"Salary"}`,
		`{"amount":"5.00","description":"Pizza night"}`,
		`{"amount":"7.00","description":"Uber ride"}`,
	} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/accounts/acc-a/deposit", "user-1", body).Code)
	}

	t.Run("list", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/transactions", "user-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		txs := decodeBody[[]models.Transaction](t, rec)
		require.Len(t, txs, 3)
		assert.Equal(t, "Uber ride", txs[0].Description)
	})

	t.Run("paginated", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/transactions?page=1&size=2", "user-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		page := decodeBody[models.Page](t, rec)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, 3, page.TotalElements)
		assert.Equal(t, 2, page.TotalPages)
		assert.True(t, page.HasPrevious)
		assert.False(t, page.HasNext)
	})

	t.Run("search", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/transactions/search?q=PIZZA", "user-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]models.Transaction](t, rec), 1)
	})

	t.Run("category", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/transactions/category/TRANSPORT", "user-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		txs := decodeBody[[]models.Transaction](t, rec)
		require.Len(t, txs, 1)
		assert.Equal(t, "Uber ride", txs[0].Description)
	})

	t.Run("type is case-insensitive", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/transactions/type/deposit", "user-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]models.Transaction](t, rec), 3)
	})

	t.Run("filter", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/transactions/filter", "user-1", `{"min_amount":"6","max_amount":"50"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		txs := decodeBody[[]models.Transaction](t, rec)
		require.Len(t, txs, 1)
		assert.Equal(t, "Uber ride", txs[0].Description)
	})

	t.Run("date range without bounds", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/transactions/date-range", "user-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decodeBody[[]models.Transaction](t, rec))
	})

	t.Run("date range", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/transactions/date-range?start=2000-01-01&end=2999-01-01", "user-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]models.Transaction](t, rec), 3)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/transactions", "user-2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})

	t.Run("reconcile", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/accounts/acc-a/reconcile", "user-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		r := decodeBody[models.Reconciliation](t, rec)
		assert.True(t, r.Balanced)
		assert.Equal(t, 3, r.Entries)
	})

	t.Run("export", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/transactions/export?delimiter=;", "user-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "date;transaction_id;"))
	})
}

func TestDetailAndCategorize(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/transfers", "user-1",
		`{"from_account_id":"acc-a","to_account_id":"acc-b","amount":"0.00"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/accounts/acc-a/deposit", "user-1", `{"amount":"50.00"}`).Code)
	rec = s.do(t, http.MethodPost, "/api/transfers", "user-1",
		`{"from_account_id":"acc-a","to_account_id":"acc-b","amount":"10.00","description":"Netflix share"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	out := decodeBody[models.Transaction](t, rec)

	rec = s.do(t, http.MethodGet, "/api/transactions/"+out.ID, "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[models.TransactionDetail](t, rec)
	assert.Equal(t, "Ada", detail.CounterpartyName)
	assert.Equal(t, "Netflix", detail.Merchant)
	require.NotNil(t, detail.RelatedAccount)
	assert.Equal(t, "acc-b", detail.RelatedAccount.ID)

	rec = s.do(t, http.MethodGet, "/api/transactions/"+out.ID, "user-2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/transactions/"+out.ID+"/categorize", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CategoryResult{Category: "ENTERTAINMENT", Confidence: 0.75}, decodeBody[models.CategoryResult](t, rec))
}

func TestPredict(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/categorize/predict", "", `{"description":"Shell petrol","amount":"40.00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CategoryResult{Category: "FUEL", Confidence: 0.75}, decodeBody[models.CategoryResult](t, rec))

	rec = s.do(t, http.MethodPost, "/api/categorize/predict", "", `{"description":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_OPERATION", decodeBody[ErrorResponse](t, rec).Error)
}

func TestRecovery(t *testing.T) {
	logger := logging.NewMockLogger()
	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, codeInternal, decodeBody[ErrorResponse](t, rec).Error)
	assert.True(t, logger.HasEntry("ERROR", "Panic recovered"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
}

func TestLoggerRecordsStatus(t *testing.T) {
	logger := logging.NewMockLogger()
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", bytes.NewReader(nil)))

	entries := logger.GetEntriesByLevel("INFO")
	require.Len(t, entries, 1)
	assert.Equal(t, "HTTP request", entries[0].Message)
}

func TestStatusFor(t *testing.T) {
	tests := map[ledgererror.Kind]int{
		ledgererror.KindNotFound:          http.StatusNotFound,
		ledgererror.KindForbidden:         http.StatusForbidden,
		ledgererror.KindInvalidAmount:     http.StatusUnprocessableEntity,
		ledgererror.KindInsufficientFunds: http.StatusConflict,
		ledgererror.KindInvalidOperation:  http.StatusBadRequest,
		ledgererror.KindInternal:          http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, StatusFor(kind), string(kind))
	}
}
