package interfaces

import (
	"context"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// LedgerStore is the durable account store plus transaction log. Money
// movement only happens inside WithinTx.
type LedgerStore interface {
	// WithinTx runs fn in a single atomic unit. If fn returns an error, or
	// panics, nothing fn wrote becomes visible.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error

	GetAccount(ctx context.Context, accountID string) (models.Account, error)
	GetTransaction(ctx context.Context, transactionID string) (models.Transaction, error)

	// QueryTransactions returns userID's transactions matching filter,
	// newest first. Never fails on an empty result.
	QueryTransactions(ctx context.Context, userID string, filter models.Filter) ([]models.Transaction, error)

	// UpdateCategory overwrites the category fields of a committed record.
	UpdateCategory(ctx context.Context, transactionID, category string, confidence float64) error
}

// LedgerTx is the view of the store inside one atomic unit.
type LedgerTx interface {
	// GetAccountForUpdate reads an account and holds it against concurrent
	// writers until the unit ends.
	GetAccountForUpdate(ctx context.Context, accountID string) (models.Account, error)
	SaveAccount(ctx context.Context, account models.Account) error

	// AppendTransaction records a leg and assigns its commit sequence.
	AppendTransaction(ctx context.Context, t *models.Transaction) error
}

// AccountCreator is implemented by stores that accept new account shells
// from the account-management collaborator.
type AccountCreator interface {
	CreateAccount(ctx context.Context, account models.Account) error
}
