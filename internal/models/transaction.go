package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType labels what kind of ledger movement produced a record.
type TransactionType string

const (
	TypeDeposit     TransactionType = "DEPOSIT"
	TypeWithdraw    TransactionType = "WITHDRAW"
	TypeTransferOut TransactionType = "TRANSFER_OUT"
	TypeTransferIn  TransactionType = "TRANSFER_IN"
)

// Valid reports whether t is one of the four known types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdraw, TypeTransferOut, TypeTransferIn:
		return true
	}
	return false
}

// IsTransfer reports whether t is either leg of a transfer.
func (t TransactionType) IsTransfer() bool {
	return t == TypeTransferOut || t == TypeTransferIn
}

// Transaction is one immutable entry posted to a single account.
// Amount is signed: positive credits AccountID, negative debits it.
// A transfer produces two of these (legs) pointing at each other through
// RelatedAccountID.
type Transaction struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	InitiatedBy      string          `json:"initiated_by"`
	AccountID        string          `json:"account_id"`
	RelatedAccountID string          `json:"related_account_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Type             TransactionType `json:"type"`
	Description      string          `json:"description"`
	Category         *string         `json:"category,omitempty"`
	Confidence       *float64        `json:"category_confidence,omitempty"`
	Seq              int64           `json:"-"` // commit order, assigned by the store
	CreatedAt        time.Time       `json:"created_at"`
}

// Persisted reports whether the record was committed to the transaction log.
// Transient previews have no identifier.
func (t Transaction) Persisted() bool {
	return t.ID != ""
}

// CategoryName returns the assigned category or "" when none is set.
func (t Transaction) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

// TransactionDetail enriches a stored record with account snapshots.
type TransactionDetail struct {
	Transaction
	Account          AccountSummary  `json:"account"`
	RelatedAccount   *AccountSummary `json:"related_account,omitempty"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`
	Merchant         string          `json:"merchant,omitempty"`
}

// Page is one slice of a user's newest-first history.
type Page struct {
	Items         []Transaction `json:"content"`
	Page          int           `json:"page"`
	Size          int           `json:"size"`
	TotalElements int           `json:"total_elements"`
	TotalPages    int           `json:"total_pages"`
	HasNext       bool          `json:"has_next"`
	HasPrevious   bool          `json:"has_previous"`
}

// Reconciliation compares an account's stored balance with the sum of its
// committed transactions.
type Reconciliation struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
	Entries   int             `json:"entries"`
	Balanced  bool            `json:"balanced"`
}
