package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// TopicTransactionCommitted is the default topic committed legs are published to.
const TopicTransactionCommitted = "transaction_committed"

// TransactionCommitted is emitted once per committed leg for the audit and
// analytics consumers.
type TransactionCommitted struct {
	TransactionID    string          `json:"transaction_id"`
	UserID           string          `json:"user_id"`
	InitiatedBy      string          `json:"initiated_by"`
	AccountID        string          `json:"account_id"`
	RelatedAccountID string          `json:"related_account_id,omitempty"`
	Type             string          `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// FromTransaction builds the event for a committed leg.
func FromTransaction(t models.Transaction) TransactionCommitted {
	return TransactionCommitted{
		TransactionID:    t.ID,
		UserID:           t.UserID,
		InitiatedBy:      t.InitiatedBy,
		AccountID:        t.AccountID,
		RelatedAccountID: t.RelatedAccountID,
		Type:             string(t.Type),
		Amount:           t.Amount,
		Description:      t.Description,
		OccurredAt:       t.CreatedAt,
	}
}
