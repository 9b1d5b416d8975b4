package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a balance holder owned by exactly one user.
// Balance never goes below zero in any committed state.
type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OwnedBy reports whether userID owns the account.
func (a Account) OwnedBy(userID string) bool {
	return a.UserID != "" && a.UserID == userID
}

// Summary returns the public snapshot used in detail responses.
func (a Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Name: a.Name, Type: a.Type, Balance: a.Balance}
}

// AccountSummary is the account snapshot attached to a transaction detail.
type AccountSummary struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}
