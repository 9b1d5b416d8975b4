package models

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits carried by every amount.
const AmountScale = 2

// ValidAmount reports whether d is a strictly positive value that fits in
// AmountScale fractional digits. 10.50 and 10.500 are accepted, 10.505 is not.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(AmountScale))
}

// NormalizeAmount rescales d to exactly AmountScale fractional digits.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// Sum adds the signed amounts of txs.
func Sum(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
