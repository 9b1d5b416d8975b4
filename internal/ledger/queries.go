package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/ledgererror"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// UnknownUser replaces a counterparty name that could not be resolved.
const UnknownUser = "Unknown User"

// DefaultPageSize applies when ListPaginated is asked for a non-positive size.
const DefaultPageSize = 10

// GetTransactionDetail returns one of userID's transactions enriched with
// account snapshots, a merchant token and, for transfer legs, the display
// name of the counterparty account's owner.
func (l *Ledger) GetTransactionDetail(ctx context.Context, userID, transactionID string) (models.TransactionDetail, error) {
	t, err := l.ownedTransaction(ctx, userID, transactionID)
	if err != nil {
		return models.TransactionDetail{}, err
	}

	acc, err := l.store.GetAccount(ctx, t.AccountID)
	if err != nil {
		return models.TransactionDetail{}, ledgererror.Internal(err, "load account %s", t.AccountID)
	}

	detail := models.TransactionDetail{
		Transaction: t,
		Account:     acc.Summary(),
		Merchant:    merchant(t.Description),
	}

	if t.RelatedAccountID != "" {
		related, err := l.store.GetAccount(ctx, t.RelatedAccountID)
		if err != nil {
			l.logger.WithError(err).Warn("Could not load related account",
				logging.F(logging.FieldTransactionID, t.ID),
				logging.F(logging.FieldAccountID, t.RelatedAccountID))
		} else {
			summary := related.Summary()
			detail.RelatedAccount = &summary
		}
		if t.Type.IsTransfer() {
			detail.CounterpartyName = l.counterpartyName(ctx, related, err)
		}
	}
	return detail, nil
}

func (l *Ledger) counterpartyName(ctx context.Context, related models.Account, lookupErr error) string {
	if lookupErr != nil || l.users == nil {
		return UnknownUser
	}
	name, err := l.users.DisplayName(ctx, related.UserID)
	if err != nil || name == "" {
		l.logger.WithError(err).Warn("Could not resolve counterparty name",
			logging.F(logging.FieldAccountID, related.ID))
		return UnknownUser
	}
	return name
}

// merchant is the first whitespace-delimited word of the description.
func merchant(description string) string {
	words := strings.Fields(description)
	if len(words) == 0 {
		return ""
	}
	return words[0]
}

// List returns every transaction owned by userID, newest first.
func (l *Ledger) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	return l.query(ctx, userID, models.Filter{})
}

// ListPaginated returns one page of userID's history, newest first. A
// non-positive size falls back to DefaultPageSize; a negative page is page 0.
func (l *Ledger) ListPaginated(ctx context.Context, userID string, page, size int) (models.Page, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 0 {
		page = 0
	}

	all, err := l.query(ctx, userID, models.Filter{})
	if err != nil {
		return models.Page{}, err
	}

	total := len(all)
	totalPages := (total + size - 1) / size
	start := min(page*size, total)
	end := min(start+size, total)

	return models.Page{
		Items:         all[start:end],
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		HasNext:       page+1 < totalPages,
		HasPrevious:   page > 0,
	}, nil
}

// Filter returns userID's transactions matching every set predicate.
func (l *Ledger) Filter(ctx context.Context, userID string, filter models.Filter) ([]models.Transaction, error) {
	return l.query(ctx, userID, filter)
}

// Search matches description substrings case-insensitively. A blank query
// returns nothing.
func (l *Ledger) Search(ctx context.Context, userID, query string) ([]models.Transaction, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Transaction{}, nil
	}
	return l.query(ctx, userID, models.Filter{Description: query})
}

// ByCategory returns userID's transactions labelled category.
func (l *Ledger) ByCategory(ctx context.Context, userID, category string) ([]models.Transaction, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return []models.Transaction{}, nil
	}
	return l.query(ctx, userID, models.Filter{Category: category})
}

// ByType returns userID's transactions of the given type.
func (l *Ledger) ByType(ctx context.Context, userID string, typ models.TransactionType) ([]models.Transaction, error) {
	if strings.TrimSpace(string(typ)) == "" {
		return []models.Transaction{}, nil
	}
	return l.query(ctx, userID, models.Filter{Type: typ})
}

// ByDateRange returns userID's transactions created within [start, end].
// Either bound being zero yields no results.
func (l *Ledger) ByDateRange(ctx context.Context, userID string, start, end time.Time) ([]models.Transaction, error) {
	if start.IsZero() || end.IsZero() {
		return []models.Transaction{}, nil
	}
	return l.query(ctx, userID, models.Filter{StartDate: &start, EndDate: &end, InclusiveDates: true})
}

// AccountHistory returns every transaction posted to an account owned by
// userID, newest first.
func (l *Ledger) AccountHistory(ctx context.Context, userID, accountID string) ([]models.Transaction, error) {
	if _, err := l.ownedAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return l.query(ctx, userID, models.Filter{AccountID: accountID})
}

// Reconcile replays an account's committed transactions and compares their
// sum with the stored balance. Accounts are created with a zero balance, so
// a balanced account satisfies balance == sum of signed amounts.
func (l *Ledger) Reconcile(ctx context.Context, userID, accountID string) (models.Reconciliation, error) {
	acc, err := l.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return models.Reconciliation{}, err
	}
	txs, err := l.query(ctx, acc.UserID, models.Filter{AccountID: accountID})
	if err != nil {
		return models.Reconciliation{}, err
	}

	sum := models.Sum(txs)
	rec := models.Reconciliation{
		AccountID: accountID,
		Balance:   acc.Balance,
		LedgerSum: sum,
		Entries:   len(txs),
		Balanced:  acc.Balance.Equal(sum),
	}
	if !rec.Balanced {
		l.logger.Error("Account balance does not match its ledger",
			logging.F(logging.FieldAccountID, accountID),
			logging.F(logging.FieldBalance, acc.Balance.String()),
			logging.F("ledger_sum", sum.String()))
	}
	return rec, nil
}

func (l *Ledger) query(ctx context.Context, userID string, filter models.Filter) ([]models.Transaction, error) {
	txs, err := l.store.QueryTransactions(ctx, userID, filter)
	if err != nil {
		return nil, ledgererror.Internal(err, "query transactions")
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

func (l *Ledger) ownedAccount(ctx context.Context, userID, accountID string) (models.Account, error) {
	acc, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, ledgererror.Internal(err, "load account %s", accountID)
	}
	if !acc.OwnedBy(userID) {
		return models.Account{}, ledgererror.Forbidden("account %s does not belong to user %s", accountID, userID)
	}
	return acc, nil
}

func (l *Ledger) ownedTransaction(ctx context.Context, userID, transactionID string) (models.Transaction, error) {
	t, err := l.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return models.Transaction{}, ledgererror.Internal(err, "load transaction %s", transactionID)
	}
	if t.UserID != userID {
		l.logger.Warn("Unauthorized access to transaction",
			logging.F(logging.FieldTransactionID, transactionID),
			logging.F(logging.FieldUserID, userID))
		return models.Transaction{}, ledgererror.Forbidden("transaction %s does not belong to you", transactionID)
	}
	return t, nil
}
