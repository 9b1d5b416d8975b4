// Package api exposes the ledger over HTTP. Callers are identified by the
// X-User-ID header set by the authenticating proxy in front of the service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/export"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// Request headers.
const (
	HeaderUserID    = "X-User-ID"
	HeaderRequestID = "X-Request-ID"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Ledger is the subset of the ledger engine served over HTTP.
type Ledger interface {
	Deposit(ctx context.Context, userID, accountID string, amount decimal.Decimal, description string) (models.Transaction, error)
	Withdraw(ctx context.Context, userID, accountID string, amount decimal.Decimal, description string) (models.Transaction, error)
	Transfer(ctx context.Context, userID, fromAccountID, toAccountID string, amount decimal.Decimal, description string) (models.Transaction, error)

	GetTransactionDetail(ctx context.Context, userID, transactionID string) (models.TransactionDetail, error)
	List(ctx context.Context, userID string) ([]models.Transaction, error)
	ListPaginated(ctx context.Context, userID string, page, size int) (models.Page, error)
	Filter(ctx context.Context, userID string, filter models.Filter) ([]models.Transaction, error)
	Search(ctx context.Context, userID, query string) ([]models.Transaction, error)
	ByCategory(ctx context.Context, userID, category string) ([]models.Transaction, error)
	ByType(ctx context.Context, userID string, typ models.TransactionType) ([]models.Transaction, error)
	ByDateRange(ctx context.Context, userID string, start, end time.Time) ([]models.Transaction, error)
	AccountHistory(ctx context.Context, userID, accountID string) ([]models.Transaction, error)
	Reconcile(ctx context.Context, userID, accountID string) (models.Reconciliation, error)

	CategorizeTransaction(ctx context.Context, userID, transactionID string) (models.CategoryResult, error)
	Predict(ctx context.Context, description string, amount decimal.Decimal) (models.CategoryResult, error)
}

// Handler serves the ledger API.
type Handler struct {
	ledger Ledger
	log    logging.Logger
}

// NewHandler creates a handler for ledger.
func NewHandler(ledger Ledger, log logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{ledger: ledger, log: log}
}

// Routes returns the API mux wrapped in the standard middleware chain.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)

	mux.HandleFunc("POST /api/accounts/{accountID}/deposit", h.withUser(h.deposit))
	mux.HandleFunc("POST /api/accounts/{accountID}/withdraw", h.withUser(h.withdraw))
	mux.HandleFunc("GET /api/accounts/{accountID}/transactions", h.withUser(h.accountHistory))
	mux.HandleFunc("GET /api/accounts/{accountID}/reconcile", h.withUser(h.reconcile))
	mux.HandleFunc("POST /api/transfers", h.withUser(h.transfer))

	mux.HandleFunc("GET /api/transactions", h.withUser(h.list))
	mux.HandleFunc("POST /api/transactions/filter", h.withUser(h.filter))
	mux.HandleFunc("GET /api/transactions/search", h.withUser(h.search))
	mux.HandleFunc("GET /api/transactions/date-range", h.withUser(h.dateRange))
	mux.HandleFunc("GET /api/transactions/export", h.withUser(h.export))
	mux.HandleFunc("GET /api/transactions/category/{category}", h.withUser(h.byCategory))
	mux.HandleFunc("GET /api/transactions/type/{type}", h.withUser(h.byType))
	mux.HandleFunc("GET /api/transactions/{transactionID}", h.withUser(h.detail))
	mux.HandleFunc("POST /api/transactions/{transactionID}/categorize", h.withUser(h.categorize))

	mux.HandleFunc("POST /api/categorize/predict", h.predict)

	return Recovery(h.log)(Logger(h.log)(RequestID(mux)))
}

type userHandlerFunc func(w http.ResponseWriter, r *http.Request, userID string)

// withUser rejects requests that carry no caller identity.
func (h *Handler) withUser(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, HeaderUserID+" header is required")
			return
		}
		next(w, r, userID)
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type movementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type transferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

type predictRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request, userID string) {
	var req movementRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.ledger.Deposit(r.Context(), userID, r.PathValue("accountID"), req.Amount, req.Description)
	h.respond(w, http.StatusCreated, t, err)
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request, userID string) {
	var req movementRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.ledger.Withdraw(r.Context(), userID, r.PathValue("accountID"), req.Amount, req.Description)
	h.respond(w, http.StatusCreated, t, err)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request, userID string) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.ledger.Transfer(r.Context(), userID, req.FromAccountID, req.ToAccountID, req.Amount, req.Description)
	h.respond(w, http.StatusCreated, t, err)
}

func (h *Handler) accountHistory(w http.ResponseWriter, r *http.Request, userID string) {
	txs, err := h.ledger.AccountHistory(r.Context(), userID, r.PathValue("accountID"))
	h.respond(w, http.StatusOK, txs, err)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request, userID string) {
	rec, err := h.ledger.Reconcile(r.Context(), userID, r.PathValue("accountID"))
	h.respond(w, http.StatusOK, rec, err)
}

// list returns the full history, or one page of it when page or size is
// given.
func (h *Handler) list(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	if !q.Has("page") && !q.Has("size") {
		txs, err := h.ledger.List(r.Context(), userID)
		h.respond(w, http.StatusOK, txs, err)
		return
	}

	page, err := intParam(q.Get("page"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "page must be an integer")
		return
	}
	size, err := intParam(q.Get("size"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "size must be an integer")
		return
	}
	p, err := h.ledger.ListPaginated(r.Context(), userID, page, size)
	h.respond(w, http.StatusOK, p, err)
}

func (h *Handler) filter(w http.ResponseWriter, r *http.Request, userID string) {
	var f models.Filter
	if !h.decode(w, r, &f) {
		return
	}
	txs, err := h.ledger.Filter(r.Context(), userID, f)
	h.respond(w, http.StatusOK, txs, err)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, userID string) {
	txs, err := h.ledger.Search(r.Context(), userID, r.URL.Query().Get("q"))
	h.respond(w, http.StatusOK, txs, err)
}

func (h *Handler) byCategory(w http.ResponseWriter, r *http.Request, userID string) {
	txs, err := h.ledger.ByCategory(r.Context(), userID, r.PathValue("category"))
	h.respond(w, http.StatusOK, txs, err)
}

func (h *Handler) byType(w http.ResponseWriter, r *http.Request, userID string) {
	typ := models.TransactionType(strings.ToUpper(r.PathValue("type")))
	txs, err := h.ledger.ByType(r.Context(), userID, typ)
	h.respond(w, http.StatusOK, txs, err)
}

func (h *Handler) dateRange(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	start, err := timeParam(q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	end, err := timeParam(q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	txs, err := h.ledger.ByDateRange(r.Context(), userID, start, end)
	h.respond(w, http.StatusOK, txs, err)
}

// export streams the caller's history as a CSV statement, optionally
// restricted to one account.
func (h *Handler) export(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()

	delimiter := rune(export.DefaultDelimiter)
	if d := q.Get("delimiter"); d != "" {
		delimiter = []rune(d)[0]
	}

	var (
		txs []models.Transaction
		err error
	)
	if accountID := q.Get("account_id"); accountID != "" {
		txs, err = h.ledger.AccountHistory(r.Context(), userID, accountID)
	} else {
		txs, err = h.ledger.List(r.Context(), userID)
	}
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="statement.csv"`)
	if err := export.WriteCSV(w, txs, delimiter); err != nil {
		h.log.WithError(err).Error("Failed to write statement",
			logging.F(logging.FieldUserID, userID))
	}
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request, userID string) {
	d, err := h.ledger.GetTransactionDetail(r.Context(), userID, r.PathValue("transactionID"))
	h.respond(w, http.StatusOK, d, err)
}

func (h *Handler) categorize(w http.ResponseWriter, r *http.Request, userID string) {
	res, err := h.ledger.CategorizeTransaction(r.Context(), userID, r.PathValue("transactionID"))
	h.respond(w, http.StatusOK, res, err)
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.ledger.Predict(r.Context(), req.Description, req.Amount)
	h.respond(w, http.StatusOK, res, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, status, body)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// timeParam accepts RFC 3339 timestamps or bare dates. A missing value is the
// zero time.
func timeParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
