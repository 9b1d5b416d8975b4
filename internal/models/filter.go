package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Filter is a conjunction of independent predicates over a user's history.
// A zero-valued field places no restriction on its axis.
type Filter struct {
	AccountID   string           `json:"account_id,omitempty"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Category    string           `json:"category,omitempty"`
	Type        TransactionType  `json:"type,omitempty"`
	MinAmount   *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount   *decimal.Decimal `json:"max_amount,omitempty"`
	Description string           `json:"description,omitempty"`

	// InclusiveDates makes both date bounds inclusive. By default the range
	// is open at both ends and only applies when both bounds are set.
	InclusiveDates bool `json:"-"`
}

// Matches reports whether t satisfies every predicate in f.
func (f Filter) Matches(t Transaction) bool {
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.StartDate != nil && f.EndDate != nil {
		if f.InclusiveDates {
			if t.CreatedAt.Before(*f.StartDate) || t.CreatedAt.After(*f.EndDate) {
				return false
			}
		} else if !t.CreatedAt.After(*f.StartDate) || !t.CreatedAt.Before(*f.EndDate) {
			return false
		}
	}
	if f.Category != "" && t.CategoryName() != f.Category {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.MinAmount != nil || f.MaxAmount != nil {
		abs := t.Amount.Abs()
		min := decimal.Zero
		if f.MinAmount != nil {
			min = *f.MinAmount
		}
		if abs.LessThan(min) {
			return false
		}
		if f.MaxAmount != nil && abs.GreaterThan(*f.MaxAmount) {
			return false
		}
	}
	if f.Description != "" &&
		!strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Description)) {
		return false
	}
	return true
}

// Apply returns the subset of txs matching f, preserving order.
func (f Filter) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
